package tree

import (
	"encoding/json"
	"testing"
	"time"

	"task-queue/internal/model"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(model.NewRoot(), WithClock(func() time.Time { return testNow }))
}

func mustGroup(t *testing.T, s *Store, parent []string, name string) {
	t.Helper()
	if _, err := s.CreateGroup(parent, name); err != nil {
		t.Fatalf("CreateGroup(%v, %q): %v", parent, name, err)
	}
}

func mustTask(t *testing.T, s *Store, group []string, task model.Task) {
	t.Helper()
	if _, err := s.CreateTask(group, task); err != nil {
		t.Fatalf("CreateTask(%v, %q): %v", group, task.Name, err)
	}
}

func snapshotJSON(t *testing.T, s *Store) string {
	t.Helper()
	b, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return string(b)
}

func taskNames(g *model.Group) []string {
	out := make([]string, 0, len(g.Tasks))
	for _, task := range g.Tasks {
		out = append(out, task.Name)
	}
	return out
}

func groupNames(groups []*model.Group) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Name)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
