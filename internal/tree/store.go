package tree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"task-queue/internal/model"
)

// Store owns the in-memory tree. Every mutation takes the write lock, so the
// bot handlers and the reminder scanner never interleave.
type Store struct {
	mu   sync.RWMutex
	root *model.Root
	now  func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for createdAt/completedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(root *model.Root, opts ...Option) *Store {
	if root == nil {
		root = model.NewRoot()
	}
	root.Normalize()
	s := &Store{root: root, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the whole tree.
func (s *Store) Snapshot() *model.Root {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.Clone()
}

// Group returns a copy of the group at path.
func (s *Store) Group(path []string) (*model.Group, error) {
	if err := ValidateSegments(path, true); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := ResolveGroup(s.root, path)
	if !ok {
		return nil, fmt.Errorf("%w: group %q", ErrNotFound, JoinPath(path))
	}
	return ref.Group.Clone(), nil
}

// Task returns a copy of the task at path.
func (s *Store) Task(path []string) (*model.Task, error) {
	if err := ValidateSegments(path, true); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := ResolveTask(s.root, path)
	if !ok {
		return nil, fmt.Errorf("%w: task %q", ErrNotFound, JoinPath(path))
	}
	return ref.Task.Clone(), nil
}

func (s *Store) GlobalReminderHours() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.ReminderHoursBefore
}

// CreateGroup appends an empty group under parent (empty parent is the top level).
func (s *Store) CreateGroup(parent []string, name string) (*model.Group, error) {
	if err := ValidateSegments(parent, false); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := ResolveGroup(s.root, parent)
	if !ok {
		return nil, fmt.Errorf("%w: parent group %q", ErrNotFound, JoinPath(parent))
	}
	if indexOfGroup(*ref.Children, name) >= 0 {
		return nil, fmt.Errorf("%w: group %q in %s", ErrDuplicate, name, locationLabel(parent))
	}
	g := model.NewGroup(name)
	*ref.Children = append(*ref.Children, g)
	return g.Clone(), nil
}

// CreateTask appends task to the group at groupPath as a fresh pending task.
func (s *Store) CreateTask(groupPath []string, task model.Task) (*model.Task, error) {
	if len(groupPath) == 0 {
		return nil, fmt.Errorf("%w: tasks must be inside a group", ErrInvalidOperation)
	}
	if err := ValidateSegments(groupPath, true); err != nil {
		return nil, err
	}
	if err := validateName(task.Name); err != nil {
		return nil, err
	}
	if task.ReminderHours != nil && *task.ReminderHours < 0 {
		return nil, fmt.Errorf("%w: reminder hours must be >= 0", ErrInvalidOperation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := ResolveGroup(s.root, groupPath)
	if !ok {
		return nil, fmt.Errorf("%w: group %q", ErrNotFound, JoinPath(groupPath))
	}
	if indexOfTask(ref.Group.Tasks, task.Name) >= 0 {
		return nil, fmt.Errorf("%w: task %q in %q", ErrDuplicate, task.Name, JoinPath(groupPath))
	}
	t := task.Clone()
	t.Status = model.StatusPending
	t.CreatedAt = s.now()
	t.CompletedAt = nil
	t.Reminded = false
	ref.Group.Tasks = append(ref.Group.Tasks, t)
	return t.Clone(), nil
}

// RemoveGroup detaches the group at path together with its subtree.
func (s *Store) RemoveGroup(path []string) error {
	if err := ValidateSegments(path, true); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := ResolveGroup(s.root, path)
	if !ok {
		return fmt.Errorf("%w: group %q", ErrNotFound, JoinPath(path))
	}
	*ref.Siblings = removeGroupAt(*ref.Siblings, ref.Index)
	return nil
}

func (s *Store) RemoveTask(path []string) error {
	if err := ValidateSegments(path, true); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := ResolveTask(s.root, path)
	if !ok {
		return fmt.Errorf("%w: task %q", ErrNotFound, JoinPath(path))
	}
	ref.Group.Tasks = removeTaskAt(ref.Group.Tasks, ref.Index)
	return nil
}

// Remove deletes whatever path denotes, trying a group first.
func (s *Store) Remove(path []string) (NodeKind, error) {
	if err := ValidateSegments(path, true); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := ResolveGroup(s.root, path); ok {
		*ref.Siblings = removeGroupAt(*ref.Siblings, ref.Index)
		return KindGroup, nil
	}
	if ref, ok := ResolveTask(s.root, path); ok {
		ref.Group.Tasks = removeTaskAt(ref.Group.Tasks, ref.Index)
		return KindTask, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, JoinPath(path))
}

// Fingerprint identifies the current content of the node at path, so a
// caller can later act on it only if it is still the same node.
func (s *Store) Fingerprint(path []string) (NodeKind, string, error) {
	if err := ValidateSegments(path, true); err != nil {
		return "", "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fingerprintAt(s.root, path)
}

// RemoveIfUnchanged removes the node at path only when it still has the kind
// and fingerprint a previous Fingerprint call returned.
func (s *Store) RemoveIfUnchanged(path []string, kind NodeKind, fingerprint string) error {
	if err := ValidateSegments(path, true); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	gotKind, got, err := fingerprintAt(s.root, path)
	if err != nil {
		return err
	}
	if gotKind != kind || got != fingerprint {
		return fmt.Errorf("%w: %s %q", ErrStale, gotKind, JoinPath(path))
	}
	if kind == KindGroup {
		ref, _ := ResolveGroup(s.root, path)
		*ref.Siblings = removeGroupAt(*ref.Siblings, ref.Index)
		return nil
	}
	ref, _ := ResolveTask(s.root, path)
	ref.Group.Tasks = removeTaskAt(ref.Group.Tasks, ref.Index)
	return nil
}

func fingerprintAt(root *model.Root, path []string) (NodeKind, string, error) {
	var (
		kind NodeKind
		node any
	)
	if ref, ok := ResolveGroup(root, path); ok {
		kind, node = KindGroup, ref.Group
	} else if ref, ok := ResolveTask(root, path); ok {
		kind, node = KindTask, ref.Task
	} else {
		return "", "", fmt.Errorf("%w: %q", ErrNotFound, JoinPath(path))
	}
	data, err := json.Marshal(node)
	if err != nil {
		return "", "", fmt.Errorf("fingerprint %q: %w", JoinPath(path), err)
	}
	return kind, string(data), nil
}

// Rename renames the group or task at path. A sibling already called newName
// makes it fail without touching the tree.
func (s *Store) Rename(path []string, newName string) (NodeKind, error) {
	if err := ValidateSegments(path, true); err != nil {
		return "", err
	}
	if err := validateName(newName); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := ResolveGroup(s.root, path); ok {
		if idx := indexOfGroup(*ref.Siblings, newName); idx >= 0 && idx != ref.Index {
			return "", fmt.Errorf("%w: group %q next to %q", ErrDuplicate, newName, JoinPath(path))
		}
		ref.Group.Name = newName
		return KindGroup, nil
	}
	if ref, ok := ResolveTask(s.root, path); ok {
		if idx := indexOfTask(ref.Group.Tasks, newName); idx >= 0 && idx != ref.Index {
			return "", fmt.Errorf("%w: task %q next to %q", ErrDuplicate, newName, JoinPath(path))
		}
		ref.Task.Name = newName
		return KindTask, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, JoinPath(path))
}

// Move re-parents the group or task at from into the group at to (empty to is
// the top level, which only groups may use). The destination is fully
// validated before the source is detached.
func (s *Store) Move(from, to []string) (NodeKind, error) {
	if err := ValidateSegments(from, true); err != nil {
		return "", err
	}
	if err := ValidateSegments(to, false); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if src, ok := ResolveGroup(s.root, from); ok {
		dest, ok := ResolveGroup(s.root, to)
		if !ok {
			return "", fmt.Errorf("%w: destination group %q", ErrNotFound, JoinPath(to))
		}
		for _, g := range dest.Chain {
			if g == src.Group {
				return "", fmt.Errorf("%w: cannot move %q into its own subtree", ErrInvalidOperation, JoinPath(from))
			}
		}
		if idx := indexOfGroup(*dest.Children, src.Group.Name); idx >= 0 && (*dest.Children)[idx] != src.Group {
			return "", fmt.Errorf("%w: group %q in %s", ErrDuplicate, src.Group.Name, locationLabel(to))
		}
		g := src.Group
		*src.Siblings = removeGroupAt(*src.Siblings, src.Index)
		*dest.Children = append(*dest.Children, g)
		return KindGroup, nil
	}

	if src, ok := ResolveTask(s.root, from); ok {
		if len(to) == 0 {
			return "", fmt.Errorf("%w: tasks must be moved into a group", ErrInvalidOperation)
		}
		dest, ok := ResolveGroup(s.root, to)
		if !ok {
			return "", fmt.Errorf("%w: destination group %q", ErrNotFound, JoinPath(to))
		}
		if idx := indexOfTask(dest.Group.Tasks, src.Task.Name); idx >= 0 && dest.Group.Tasks[idx] != src.Task {
			return "", fmt.Errorf("%w: task %q in %q", ErrDuplicate, src.Task.Name, JoinPath(to))
		}
		t := src.Task
		src.Group.Tasks = removeTaskAt(src.Group.Tasks, src.Index)
		dest.Group.Tasks = append(dest.Group.Tasks, t)
		return KindTask, nil
	}
	return "", fmt.Errorf("%w: source %q", ErrNotFound, JoinPath(from))
}

// SortTasks reorders the tasks of one group in place. The sort is stable, so
// ties keep their current relative order.
func (s *Store) SortTasks(groupPath []string, key model.SortKey) error {
	if err := ValidateSegments(groupPath, true); err != nil {
		return err
	}
	less, err := taskLess(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := ResolveGroup(s.root, groupPath)
	if !ok {
		return fmt.Errorf("%w: group %q", ErrNotFound, JoinPath(groupPath))
	}
	tasks := ref.Group.Tasks
	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
	return nil
}

func taskLess(key model.SortKey) (func(a, b *model.Task) bool, error) {
	switch key {
	case model.SortByName:
		return func(a, b *model.Task) bool { return a.Name < b.Name }, nil
	case model.SortByDeadline:
		return func(a, b *model.Task) bool {
			switch {
			case a.Deadline == nil:
				return false
			case b.Deadline == nil:
				return true
			default:
				return a.Deadline.Before(*b.Deadline)
			}
		}, nil
	case model.SortByStatus:
		return func(a, b *model.Task) bool {
			return a.Status != model.StatusDone && b.Status == model.StatusDone
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown sort key %q", ErrInvalidOperation, key)
	}
}

// ClearCompleted drops every done task in the tree and reports how many went.
func (s *Store) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	walkGroups(s.root.Groups, func(g *model.Group, _ []*model.Group) {
		kept := g.Tasks[:0]
		for _, t := range g.Tasks {
			if t.Status == model.StatusDone {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		for i := len(kept); i < len(g.Tasks); i++ {
			g.Tasks[i] = nil
		}
		g.Tasks = kept
	})
	return removed
}

// SetStatus updates a task's status. Moving to done stamps completedAt;
// moving back to pending clears it.
func (s *Store) SetStatus(path []string, status model.Status) (*model.Task, error) {
	if err := ValidateSegments(path, true); err != nil {
		return nil, err
	}
	if _, err := model.ParseStatus(string(status)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := ResolveTask(s.root, path)
	if !ok {
		return nil, fmt.Errorf("%w: task %q", ErrNotFound, JoinPath(path))
	}
	t := ref.Task
	switch {
	case status == model.StatusDone && t.Status != model.StatusDone:
		now := s.now()
		t.CompletedAt = &now
	case status == model.StatusPending:
		t.CompletedAt = nil
	}
	t.Status = status
	return t.Clone(), nil
}

func (s *Store) SetGlobalReminderHours(hours int) error {
	if hours < 0 {
		return fmt.Errorf("%w: reminder hours must be >= 0", ErrInvalidOperation)
	}
	s.mu.Lock()
	s.root.ReminderHoursBefore = hours
	s.mu.Unlock()
	return nil
}

// SetReminderHours sets (or clears, with nil) the reminder override of the
// group or task at path.
func (s *Store) SetReminderHours(path []string, hours *int) (NodeKind, error) {
	if err := ValidateSegments(path, true); err != nil {
		return "", err
	}
	if hours != nil && *hours < 0 {
		return "", fmt.Errorf("%w: reminder hours must be >= 0", ErrInvalidOperation)
	}
	var value *int
	if hours != nil {
		v := *hours
		value = &v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := ResolveGroup(s.root, path); ok {
		ref.Group.ReminderHours = value
		return KindGroup, nil
	}
	if ref, ok := ResolveTask(s.root, path); ok {
		ref.Task.ReminderHours = value
		return KindTask, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, JoinPath(path))
}

// MarkReminded latches the reminded flag. It reports false when the task was
// already latched.
func (s *Store) MarkReminded(path []string) (bool, error) {
	if err := ValidateSegments(path, true); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := ResolveTask(s.root, path)
	if !ok {
		return false, fmt.Errorf("%w: task %q", ErrNotFound, JoinPath(path))
	}
	if ref.Task.Reminded {
		return false, nil
	}
	ref.Task.Reminded = true
	return true, nil
}

// TaskVisit is what ForEachTask hands to its callback. Task is a copy and
// Ancestors are shallow copies (name and override only), top level first.
type TaskVisit struct {
	Task      *model.Task
	Ancestors []*model.Group
	Path      []string
}

// GroupPath returns the names of the task's ancestor groups.
func (v TaskVisit) GroupPath() []string {
	return v.Path[:len(v.Path)-1]
}

// ForEachTask visits every task in pre-order under the read lock. visit must
// not call back into the Store's mutating methods.
func (s *Store) ForEachTask(visit func(TaskVisit)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	walkGroups(s.root.Groups, func(g *model.Group, chain []*model.Group) {
		if len(g.Tasks) == 0 {
			return
		}
		ancestors := make([]*model.Group, len(chain))
		for i, a := range chain {
			shallow := &model.Group{Name: a.Name}
			if a.ReminderHours != nil {
				h := *a.ReminderHours
				shallow.ReminderHours = &h
			}
			ancestors[i] = shallow
		}
		names := chainNames(chain)
		for _, t := range g.Tasks {
			visit(TaskVisit{
				Task:      t.Clone(),
				Ancestors: ancestors,
				Path:      append(names[:len(names):len(names)], t.Name),
			})
		}
	})
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidOperation)
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("%w: name %q has surrounding spaces", ErrInvalidOperation, name)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: name %q must not contain /", ErrInvalidOperation, name)
	}
	return nil
}

func locationLabel(path []string) string {
	if len(path) == 0 {
		return "top level"
	}
	return fmt.Sprintf("%q", JoinPath(path))
}

func removeGroupAt(groups []*model.Group, i int) []*model.Group {
	copy(groups[i:], groups[i+1:])
	groups[len(groups)-1] = nil
	return groups[:len(groups)-1]
}

func removeTaskAt(tasks []*model.Task, i int) []*model.Task {
	copy(tasks[i:], tasks[i+1:])
	tasks[len(tasks)-1] = nil
	return tasks[:len(tasks)-1]
}
