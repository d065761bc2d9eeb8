package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"task-queue/internal/model"
	"task-queue/internal/tree"
)

// Notifier delivers a reminder to the owner.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Reminder is a task found due soon by a scan.
type Reminder struct {
	Path      []string
	Task      *model.Task
	HoursLeft float64
}

// ReminderService scans the tree and sends one-shot due-soon reminders.
type ReminderService struct {
	planner  *PlannerService
	notifier Notifier
}

func NewReminderService(planner *PlannerService, notifier Notifier) *ReminderService {
	return &ReminderService{planner: planner, notifier: notifier}
}

// DueSoon lists the tasks whose reminder should fire at now.
func (s *ReminderService) DueSoon(now time.Time) []Reminder {
	store := s.planner.Store()
	global := store.GlobalReminderHours()
	var due []Reminder
	store.ForEachTask(func(v tree.TaskVisit) {
		hours := EffectiveReminderHours(v.Task, v.Ancestors, global)
		if IsDueSoon(v.Task, hours, now) {
			due = append(due, Reminder{
				Path:      v.Path,
				Task:      v.Task,
				HoursLeft: v.Task.Deadline.Sub(now).Hours(),
			})
		}
	})
	return due
}

// Check sends a reminder for every due task and latches it only after a
// successful send. It returns how many reminders went out.
func (s *ReminderService) Check(ctx context.Context, now time.Time) (int, error) {
	sent := 0
	for _, r := range s.DueSoon(now) {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.notifier.Notify(ctx, FormatReminder(r)); err != nil {
			log.Printf("send reminder for %s: %v", tree.JoinPath(r.Path), err)
			continue
		}
		latched, err := s.planner.MarkReminded(ctx, r.Path)
		if err != nil {
			log.Printf("mark reminded %s: %v", tree.JoinPath(r.Path), err)
			continue
		}
		if latched {
			sent++
		}
	}
	if sent > 0 {
		log.Printf("[info] reminders sent=%d", sent)
	}
	return sent, nil
}

// FormatReminder renders the reminder message for the owner.
func FormatReminder(r Reminder) string {
	var in string
	if r.HoursLeft < 1 {
		in = fmt.Sprintf("%d minutes", int(math.Round(r.HoursLeft*60)))
	} else {
		in = fmt.Sprintf("%d hours", int(math.Round(r.HoursLeft)))
	}
	groupPath := tree.JoinPath(r.Path[:len(r.Path)-1])
	return fmt.Sprintf("⏰ Reminder: your task %q in %q is due soon (in %s). Deadline: %s.",
		r.Task.Name, groupPath, in, r.Task.Deadline.UTC().Format(time.RFC3339))
}
