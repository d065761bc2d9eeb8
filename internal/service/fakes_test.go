package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"task-queue/internal/model"
	"task-queue/internal/tree"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeSaver struct {
	mu    sync.Mutex
	saves []*model.Root
	err   error
}

func (f *fakeSaver) Save(_ context.Context, root *model.Root) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves = append(f.saves, root)
	return nil
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type fakeNotifier struct {
	sent []string
	fail bool
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	if f.fail {
		return errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, text)
	return nil
}

func newTestPlanner() (*PlannerService, *fakeSaver) {
	store := tree.NewStore(model.NewRoot(), tree.WithClock(func() time.Time { return testNow }))
	saver := &fakeSaver{}
	return NewPlannerService(store, saver), saver
}

func ptr[T any](v T) *T { return &v }
