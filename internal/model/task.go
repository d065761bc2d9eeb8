package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// ParseStatus accepts the two known statuses.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusDone:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("unknown status %q, expected pending or done", raw)
	}
}

// Task represents a single leaf item inside a group.
type Task struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Deadline      *time.Time `json:"deadline"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	ReminderHours *int       `json:"reminderHours,omitempty"`
	Reminded      bool       `json:"reminded,omitempty"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Deadline = cloneTime(t.Deadline)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.ReminderHours = cloneInt(t.ReminderHours)
	return &c
}

// SortKey selects the ordering applied by a task sort.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortByDeadline SortKey = "deadline"
	SortByStatus   SortKey = "status"
)

func ParseSortKey(raw string) (SortKey, error) {
	switch SortKey(raw) {
	case SortByName, SortByDeadline, SortByStatus:
		return SortKey(raw), nil
	default:
		return "", fmt.Errorf("unknown sort key %q, expected name, deadline or status", raw)
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
