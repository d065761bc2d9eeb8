package service

import (
	"time"

	"task-queue/internal/model"
)

// EffectiveReminderHours resolves the reminder window of a task: its own
// override, else the nearest ancestor group's override, else globalDefault.
// ancestors run from the top level down to the task's own group.
func EffectiveReminderHours(task *model.Task, ancestors []*model.Group, globalDefault int) int {
	if task != nil && task.ReminderHours != nil {
		return *task.ReminderHours
	}
	for i := len(ancestors) - 1; i >= 0; i-- {
		if h := ancestors[i].ReminderHours; h != nil {
			return *h
		}
	}
	return globalDefault
}

// IsDueSoon reports whether a reminder should fire for task at now.
func IsDueSoon(task *model.Task, effectiveHours int, now time.Time) bool {
	if task == nil || task.Deadline == nil {
		return false
	}
	if task.Status == model.StatusDone || task.Reminded {
		return false
	}
	hours := task.Deadline.Sub(now).Hours()
	return hours >= 0 && hours <= float64(effectiveHours)
}
