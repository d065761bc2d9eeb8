package tree

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"task-queue/internal/model"
)

func TestCreate_ThenResolveReturnsNode(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "work")
	mustGroup(t, s, []string{"work"}, "Projects")

	deadline := testNow.Add(2 * time.Hour)
	created, err := s.CreateTask([]string{"work", "Projects"}, model.Task{
		Name:        "Report",
		Description: "quarterly",
		Deadline:    &deadline,
		Status:      model.StatusDone,
		Reminded:    true,
	})
	if err != nil {
		t.Fatalf("CreateTask error: %v", err)
	}
	if created.Status != model.StatusPending || !created.CreatedAt.Equal(testNow) || created.Reminded {
		t.Fatalf("expected fresh pending task; got %+v", created)
	}

	got, err := s.Task([]string{"work", "Projects", "Report"})
	if err != nil {
		t.Fatalf("Task lookup error: %v", err)
	}
	if !reflect.DeepEqual(got, created) {
		t.Fatalf("expected %+v; got %+v", created, got)
	}

	g, err := s.Group([]string{"work", "Projects"})
	if err != nil {
		t.Fatalf("Group lookup error: %v", err)
	}
	if g.Name != "Projects" || len(g.Tasks) != 1 {
		t.Fatalf("unexpected group: %+v", g)
	}
}

func TestCreateGroup_Errors(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "work")

	if _, err := s.CreateGroup([]string{"nope"}, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
	before := snapshotJSON(t, s)
	if _, err := s.CreateGroup(nil, "work"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate; got %v", err)
	}
	if _, err := s.CreateGroup(nil, "  "); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for empty name; got %v", err)
	}
	if _, err := s.CreateGroup(nil, "a/b"); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for slash in name; got %v", err)
	}
	if after := snapshotJSON(t, s); after != before {
		t.Fatalf("tree changed after failed creates")
	}
	// Names are case-sensitive.
	if _, err := s.CreateGroup(nil, "Work"); err != nil {
		t.Fatalf("expected Work to coexist with work; got %v", err)
	}
}

func TestCreateTask_Errors(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "work")
	mustTask(t, s, []string{"work"}, model.Task{Name: "a"})

	if _, err := s.CreateTask(nil, model.Task{Name: "x"}); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation at root; got %v", err)
	}
	if _, err := s.CreateTask([]string{"home"}, model.Task{Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
	if _, err := s.CreateTask([]string{"work"}, model.Task{Name: "a"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate; got %v", err)
	}
	if _, err := s.CreateTask([]string{"work"}, model.Task{Name: "b", ReminderHours: ptr(-1)}); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for negative hours; got %v", err)
	}
}

func TestRemove_GroupCascadesAndTask(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "work")
	mustGroup(t, s, []string{"work"}, "Projects")
	mustTask(t, s, []string{"work", "Projects"}, model.Task{Name: "Report"})
	mustTask(t, s, []string{"work"}, model.Task{Name: "Email"})

	if err := s.RemoveTask([]string{"work", "Email"}); err != nil {
		t.Fatalf("RemoveTask error: %v", err)
	}
	if err := s.RemoveTask([]string{"work", "Email"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove; got %v", err)
	}
	if err := s.RemoveGroup([]string{"work", "Projects"}); err != nil {
		t.Fatalf("RemoveGroup error: %v", err)
	}
	if _, err := s.Task([]string{"work", "Projects", "Report"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected subtree gone; got %v", err)
	}

	kind, err := s.Remove([]string{"work"})
	if err != nil || kind != KindGroup {
		t.Fatalf("expected group removal; got kind=%q err=%v", kind, err)
	}
	if _, err := s.Remove([]string{"work"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
	if _, err := s.Remove(nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty path; got %v", err)
	}
}

func TestRemoveIfUnchanged(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "work")
	mustTask(t, s, []string{"work"}, model.Task{Name: "Report"})

	kind, fp, err := s.Fingerprint([]string{"work"})
	if err != nil || kind != KindGroup {
		t.Fatalf("Fingerprint: kind=%q err=%v", kind, err)
	}

	// Another group takes the old path before the removal is confirmed.
	if _, err := s.Rename([]string{"work"}, "job"); err != nil {
		t.Fatalf("Rename error: %v", err)
	}
	mustGroup(t, s, nil, "work")
	before := snapshotJSON(t, s)
	if err := s.RemoveIfUnchanged([]string{"work"}, kind, fp); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale; got %v", err)
	}
	if after := snapshotJSON(t, s); after != before {
		t.Fatalf("tree changed by a stale removal:\n%s\n%s", before, after)
	}

	kind, fp, err = s.Fingerprint([]string{"job", "Report"})
	if err != nil || kind != KindTask {
		t.Fatalf("Fingerprint task: kind=%q err=%v", kind, err)
	}
	if err := s.RemoveIfUnchanged([]string{"job", "Report"}, KindGroup, fp); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale for kind mismatch; got %v", err)
	}
	if err := s.RemoveIfUnchanged([]string{"job", "Report"}, kind, fp); err != nil {
		t.Fatalf("RemoveIfUnchanged error: %v", err)
	}
	if _, err := s.Task([]string{"job", "Report"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected task removed; got %v", err)
	}
	if err := s.RemoveIfUnchanged([]string{"job", "Report"}, kind, fp); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestRename(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "work")
	mustGroup(t, s, nil, "home")
	mustTask(t, s, []string{"work"}, model.Task{Name: "a"})
	mustTask(t, s, []string{"work"}, model.Task{Name: "b"})

	before := snapshotJSON(t, s)
	if _, err := s.Rename([]string{"work"}, "home"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for group; got %v", err)
	}
	if _, err := s.Rename([]string{"work", "a"}, "b"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for task; got %v", err)
	}
	if _, err := s.Rename([]string{"nope"}, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
	if _, err := s.Rename([]string{"work"}, ""); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for empty name; got %v", err)
	}
	if after := snapshotJSON(t, s); after != before {
		t.Fatalf("tree changed after failed renames")
	}

	kind, err := s.Rename([]string{"work", "a"}, "c")
	if err != nil || kind != KindTask {
		t.Fatalf("expected task rename; got kind=%q err=%v", kind, err)
	}
	kind, err = s.Rename([]string{"work"}, "job")
	if err != nil || kind != KindGroup {
		t.Fatalf("expected group rename; got kind=%q err=%v", kind, err)
	}
	if _, err := s.Task([]string{"job", "c"}); err != nil {
		t.Fatalf("expected job/c to resolve; got %v", err)
	}
	// Renaming to the current name is not a collision.
	if _, err := s.Rename([]string{"job"}, "job"); err != nil {
		t.Fatalf("expected self-rename to succeed; got %v", err)
	}
}

func TestMove_GroupToTopLevelAndBack(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "work")
	mustGroup(t, s, []string{"work"}, "Projects")
	mustTask(t, s, []string{"work", "Projects"}, model.Task{Name: "Report"})

	kind, err := s.Move([]string{"work", "Projects"}, nil)
	if err != nil || kind != KindGroup {
		t.Fatalf("expected group move; got kind=%q err=%v", kind, err)
	}
	if _, err := s.Task([]string{"Projects", "Report"}); err != nil {
		t.Fatalf("expected Projects/Report at top level; got %v", err)
	}
	if _, err := s.Group([]string{"work", "Projects"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected work/Projects gone; got %v", err)
	}
	if _, err := s.Move([]string{"Projects"}, []string{"work"}); err != nil {
		t.Fatalf("expected move back without collision; got %v", err)
	}
	if _, err := s.Task([]string{"work", "Projects", "Report"}); err != nil {
		t.Fatalf("expected work/Projects/Report again; got %v", err)
	}
}

func TestMove_GroupCollisionLeavesSource(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "work")
	mustGroup(t, s, []string{"work"}, "Projects")
	mustGroup(t, s, nil, "Projects")

	before := snapshotJSON(t, s)
	if _, err := s.Move([]string{"work", "Projects"}, nil); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate; got %v", err)
	}
	if _, err := s.Move([]string{"Projects"}, []string{"work"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate; got %v", err)
	}
	if after := snapshotJSON(t, s); after != before {
		t.Fatalf("tree changed after failed moves")
	}
	if _, err := s.Group([]string{"work", "Projects"}); err != nil {
		t.Fatalf("source must still resolve; got %v", err)
	}
}

func TestMove_CycleGuard(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "a")
	mustGroup(t, s, []string{"a"}, "b")
	mustGroup(t, s, []string{"a", "b"}, "c")

	before := snapshotJSON(t, s)
	for _, dest := range [][]string{{"a"}, {"a", "b"}, {"a", "b", "c"}} {
		if _, err := s.Move([]string{"a"}, dest); !errors.Is(err, ErrInvalidOperation) {
			t.Fatalf("move a -> %v: expected ErrInvalidOperation; got %v", dest, err)
		}
	}
	if _, err := s.Move([]string{"a", "b"}, []string{"a", "b", "c"}); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation; got %v", err)
	}
	if after := snapshotJSON(t, s); after != before {
		t.Fatalf("tree changed after cycle attempts")
	}
}

func TestMove_Task(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "work")
	mustGroup(t, s, nil, "home")
	mustTask(t, s, []string{"work"}, model.Task{Name: "a"})
	mustTask(t, s, []string{"home"}, model.Task{Name: "a"})
	mustTask(t, s, []string{"work"}, model.Task{Name: "b"})

	before := snapshotJSON(t, s)
	if _, err := s.Move([]string{"work", "a"}, nil); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for task to root; got %v", err)
	}
	if _, err := s.Move([]string{"work", "a"}, []string{"home"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate; got %v", err)
	}
	if _, err := s.Move([]string{"work", "a"}, []string{"nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for destination; got %v", err)
	}
	if _, err := s.Move([]string{"work", "zzz"}, []string{"home"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for source; got %v", err)
	}
	if after := snapshotJSON(t, s); after != before {
		t.Fatalf("tree changed after failed task moves")
	}

	kind, err := s.Move([]string{"work", "b"}, []string{"home"})
	if err != nil || kind != KindTask {
		t.Fatalf("expected task move; got kind=%q err=%v", kind, err)
	}
	home, _ := s.Group([]string{"home"})
	if got := taskNames(home); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected home tasks: %v", got)
	}
}

func TestSortTasks(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "g")
	d1 := testNow.Add(1 * time.Hour)
	d2 := testNow.Add(2 * time.Hour)
	mustTask(t, s, []string{"g"}, model.Task{Name: "c"})
	mustTask(t, s, []string{"g"}, model.Task{Name: "b", Deadline: &d2})
	mustTask(t, s, []string{"g"}, model.Task{Name: "d"})
	mustTask(t, s, []string{"g"}, model.Task{Name: "a", Deadline: &d1})

	if err := s.SortTasks([]string{"g"}, model.SortByDeadline); err != nil {
		t.Fatalf("SortTasks error: %v", err)
	}
	g, _ := s.Group([]string{"g"})
	if got := taskNames(g); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("deadline order: got %v", got)
	}

	if _, err := s.SetStatus([]string{"g", "a"}, model.StatusDone); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if _, err := s.SetStatus([]string{"g", "c"}, model.StatusDone); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if err := s.SortTasks([]string{"g"}, model.SortByStatus); err != nil {
		t.Fatalf("SortTasks error: %v", err)
	}
	g, _ = s.Group([]string{"g"})
	if got := taskNames(g); !reflect.DeepEqual(got, []string{"b", "d", "a", "c"}) {
		t.Fatalf("status order: got %v", got)
	}

	if err := s.SortTasks([]string{"g"}, model.SortByName); err != nil {
		t.Fatalf("SortTasks error: %v", err)
	}
	g, _ = s.Group([]string{"g"})
	if got := taskNames(g); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("name order: got %v", got)
	}

	if err := s.SortTasks([]string{"g"}, model.SortKey("priority")); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for unknown key; got %v", err)
	}
	if err := s.SortTasks([]string{"nope"}, model.SortByName); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestClearCompleted_RemovesDoneAndIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "g")
	mustGroup(t, s, []string{"g"}, "sub")
	for _, name := range []string{"a", "b", "c", "d"} {
		mustTask(t, s, []string{"g"}, model.Task{Name: name})
	}
	mustTask(t, s, []string{"g", "sub"}, model.Task{Name: "x"})
	for _, p := range [][]string{{"g", "b"}, {"g", "d"}, {"g", "sub", "x"}} {
		if _, err := s.SetStatus(p, model.StatusDone); err != nil {
			t.Fatalf("SetStatus(%v): %v", p, err)
		}
	}

	if n := s.ClearCompleted(); n != 3 {
		t.Fatalf("expected 3 removed; got %d", n)
	}
	g, _ := s.Group([]string{"g"})
	if got := taskNames(g); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("expected remaining order [a c]; got %v", got)
	}
	if n := s.ClearCompleted(); n != 0 {
		t.Fatalf("expected second run to remove nothing; got %d", n)
	}
}

func TestSetStatus_CompletedAt(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "g")
	mustTask(t, s, []string{"g"}, model.Task{Name: "a"})

	task, err := s.SetStatus([]string{"g", "a"}, model.StatusDone)
	if err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(testNow) {
		t.Fatalf("expected completedAt stamped; got %v", task.CompletedAt)
	}
	task, err = s.SetStatus([]string{"g", "a"}, model.StatusPending)
	if err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if task.Status != model.StatusPending || task.CompletedAt != nil {
		t.Fatalf("expected completedAt cleared on revert; got %+v", task)
	}
	if _, err := s.SetStatus([]string{"g"}, model.StatusDone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for group path; got %v", err)
	}
	if _, err := s.SetStatus([]string{"g", "a"}, model.Status("later")); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation; got %v", err)
	}
}

func TestReminderOverridesAndLatch(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "g")
	mustTask(t, s, []string{"g"}, model.Task{Name: "a"})

	if err := s.SetGlobalReminderHours(-1); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation; got %v", err)
	}
	if err := s.SetGlobalReminderHours(6); err != nil || s.GlobalReminderHours() != 6 {
		t.Fatalf("expected global hours 6; got %d err=%v", s.GlobalReminderHours(), err)
	}
	if kind, err := s.SetReminderHours([]string{"g"}, ptr(3)); err != nil || kind != KindGroup {
		t.Fatalf("expected group override; got kind=%q err=%v", kind, err)
	}
	if kind, err := s.SetReminderHours([]string{"g", "a"}, ptr(1)); err != nil || kind != KindTask {
		t.Fatalf("expected task override; got kind=%q err=%v", kind, err)
	}
	if _, err := s.SetReminderHours([]string{"g", "a"}, nil); err != nil {
		t.Fatalf("clear override: %v", err)
	}
	task, _ := s.Task([]string{"g", "a"})
	if task.ReminderHours != nil {
		t.Fatalf("expected task override cleared")
	}

	first, err := s.MarkReminded([]string{"g", "a"})
	if err != nil || !first {
		t.Fatalf("expected first latch; got %v err=%v", first, err)
	}
	second, err := s.MarkReminded([]string{"g", "a"})
	if err != nil || second {
		t.Fatalf("expected latch to hold; got %v err=%v", second, err)
	}
}

func TestForEachTask_PreOrderWithAncestors(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "work")
	mustGroup(t, s, []string{"work"}, "Projects")
	mustGroup(t, s, nil, "home")
	mustTask(t, s, []string{"work", "Projects"}, model.Task{Name: "Report"})
	mustTask(t, s, []string{"work"}, model.Task{Name: "Email"})
	mustTask(t, s, []string{"home"}, model.Task{Name: "Dishes"})
	if _, err := s.SetReminderHours([]string{"work"}, ptr(5)); err != nil {
		t.Fatalf("SetReminderHours: %v", err)
	}

	var paths []string
	var reportAncestors []*model.Group
	s.ForEachTask(func(v TaskVisit) {
		paths = append(paths, JoinPath(v.Path))
		if v.Task.Name == "Report" {
			reportAncestors = v.Ancestors
			if got := JoinPath(v.GroupPath()); got != "work/Projects" {
				t.Errorf("unexpected group path %q", got)
			}
		}
	})
	want := []string{"work/Email", "work/Projects/Report", "home/Dishes"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("expected %v; got %v", want, paths)
	}
	if got := groupNames(reportAncestors); !reflect.DeepEqual(got, []string{"work", "Projects"}) {
		t.Fatalf("unexpected ancestors %v", got)
	}
	if reportAncestors[0].ReminderHours == nil || *reportAncestors[0].ReminderHours != 5 {
		t.Fatalf("expected ancestor override carried")
	}
}

func TestStore_ConcurrentMutationsKeepSiblingsUnique(t *testing.T) {
	s := newTestStore(t)
	mustGroup(t, s, nil, "g")

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateTask([]string{"g"}, model.Task{Name: "same"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrDuplicate):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one create to win; got %d", ok)
	}
}
