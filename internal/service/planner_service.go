package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"task-queue/internal/model"
	"task-queue/internal/tree"
)

// StateSaver durably stores the tree after a committed mutation.
type StateSaver interface {
	Save(ctx context.Context, root *model.Root) error
}

// TaskInput represents data required to create a task.
type TaskInput struct {
	Name          string
	Description   string
	Deadline      *time.Time
	ReminderHours *int
}

// PlannerService applies a mutation to the tree and then persists it. The
// mutation and its save are one critical section, so saves land in order.
type PlannerService struct {
	store *tree.Store
	saver StateSaver
	mu    sync.Mutex
}

func NewPlannerService(store *tree.Store, saver StateSaver) *PlannerService {
	return &PlannerService{store: store, saver: saver}
}

// Store exposes the underlying tree for read-only queries.
func (s *PlannerService) Store() *tree.Store {
	return s.store
}

func (s *PlannerService) AddGroup(ctx context.Context, parent []string, name string) (*model.Group, error) {
	var g *model.Group
	err := s.commit(ctx, func() (err error) {
		g, err = s.store.CreateGroup(parent, name)
		return err
	})
	return g, err
}

func (s *PlannerService) AddTask(ctx context.Context, group []string, input TaskInput) (*model.Task, error) {
	var t *model.Task
	err := s.commit(ctx, func() (err error) {
		t, err = s.store.CreateTask(group, model.Task{
			Name:          input.Name,
			Description:   input.Description,
			Deadline:      input.Deadline,
			ReminderHours: input.ReminderHours,
		})
		return err
	})
	return t, err
}

func (s *PlannerService) Remove(ctx context.Context, path []string) (tree.NodeKind, error) {
	var kind tree.NodeKind
	err := s.commit(ctx, func() (err error) {
		kind, err = s.store.Remove(path)
		return err
	})
	return kind, err
}

// RemoveIfUnchanged removes the node at path only if it still matches a
// fingerprint taken earlier from the store.
func (s *PlannerService) RemoveIfUnchanged(ctx context.Context, path []string, kind tree.NodeKind, fingerprint string) error {
	return s.commit(ctx, func() error {
		return s.store.RemoveIfUnchanged(path, kind, fingerprint)
	})
}

func (s *PlannerService) Rename(ctx context.Context, path []string, newName string) (tree.NodeKind, error) {
	var kind tree.NodeKind
	err := s.commit(ctx, func() (err error) {
		kind, err = s.store.Rename(path, newName)
		return err
	})
	return kind, err
}

func (s *PlannerService) Move(ctx context.Context, from, to []string) (tree.NodeKind, error) {
	var kind tree.NodeKind
	err := s.commit(ctx, func() (err error) {
		kind, err = s.store.Move(from, to)
		return err
	})
	return kind, err
}

func (s *PlannerService) Sort(ctx context.Context, group []string, key model.SortKey) error {
	return s.commit(ctx, func() error {
		return s.store.SortTasks(group, key)
	})
}

func (s *PlannerService) SetStatus(ctx context.Context, path []string, status model.Status) (*model.Task, error) {
	var t *model.Task
	err := s.commit(ctx, func() (err error) {
		t, err = s.store.SetStatus(path, status)
		return err
	})
	return t, err
}

func (s *PlannerService) ClearCompleted(ctx context.Context) (int, error) {
	var removed int
	err := s.commit(ctx, func() error {
		removed = s.store.ClearCompleted()
		return nil
	})
	return removed, err
}

func (s *PlannerService) SetGlobalReminderHours(ctx context.Context, hours int) error {
	return s.commit(ctx, func() error {
		return s.store.SetGlobalReminderHours(hours)
	})
}

// SetReminderHours sets or, with nil hours, clears a group or task override.
func (s *PlannerService) SetReminderHours(ctx context.Context, path []string, hours *int) (tree.NodeKind, error) {
	var kind tree.NodeKind
	err := s.commit(ctx, func() (err error) {
		kind, err = s.store.SetReminderHours(path, hours)
		return err
	})
	return kind, err
}

// MarkReminded latches a task's reminder and persists only when it changed.
func (s *PlannerService) MarkReminded(ctx context.Context, path []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latched, err := s.store.MarkReminded(path)
	if err != nil || !latched {
		return false, err
	}
	if err := s.saver.Save(ctx, s.store.Snapshot()); err != nil {
		return true, fmt.Errorf("persist reminder latch: %w", err)
	}
	return true, nil
}

func (s *PlannerService) Search(keyword string) []tree.Match {
	return s.store.Search(keyword)
}

func (s *PlannerService) commit(ctx context.Context, mutate func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := mutate(); err != nil {
		return err
	}
	if err := s.saver.Save(ctx, s.store.Snapshot()); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}
