package tree

import (
	"fmt"
	"strings"

	"task-queue/internal/model"
)

// NodeKind tells whether a path denotes a group or a task.
type NodeKind string

const (
	KindGroup NodeKind = "group"
	KindTask  NodeKind = "task"
)

// GroupRef locates a resolved group. The zero-segment path resolves to the
// root, in which case Group is nil and Children points at the top-level list.
type GroupRef struct {
	Group    *model.Group
	Siblings *[]*model.Group
	Index    int
	Children *[]*model.Group
	// Chain lists the groups from the top level down to Group, inclusive.
	Chain []*model.Group
}

func (r GroupRef) IsRoot() bool { return r.Group == nil }

// TaskRef locates a resolved task inside its owning group.
type TaskRef struct {
	Task  *model.Task
	Group *model.Group
	Index int
	// Chain lists the ancestor groups from the top level down to Group.
	Chain []*model.Group
}

// SplitPath turns "work / Projects/Report" into trimmed, non-empty segments.
func SplitPath(raw string) []string {
	parts := strings.Split(raw, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinPath is the inverse of SplitPath.
func JoinPath(segments []string) string {
	return strings.Join(segments, "/")
}

// ValidateSegments rejects empty or untrimmed segments. When required is set an
// empty list is rejected too.
func ValidateSegments(segments []string, required bool) error {
	if required && len(segments) == 0 {
		return fmt.Errorf("%w: path is required", ErrValidation)
	}
	for i, seg := range segments {
		if seg == "" || strings.TrimSpace(seg) != seg {
			return fmt.Errorf("%w: segment %d %q", ErrValidation, i, seg)
		}
	}
	return nil
}

// ResolveGroup walks segments left to right through group names.
func ResolveGroup(root *model.Root, segments []string) (GroupRef, bool) {
	if len(segments) == 0 {
		return GroupRef{Index: -1, Children: &root.Groups}, true
	}
	list := &root.Groups
	chain := make([]*model.Group, 0, len(segments))
	for i, seg := range segments {
		idx := indexOfGroup(*list, seg)
		if idx < 0 {
			return GroupRef{}, false
		}
		g := (*list)[idx]
		chain = append(chain, g)
		if i == len(segments)-1 {
			return GroupRef{Group: g, Siblings: list, Index: idx, Children: &g.Groups, Chain: chain}, true
		}
		list = &g.Groups
	}
	return GroupRef{}, false
}

// ResolveTask resolves all but the last segment as groups and the last one as
// a task of the final group. Tasks never live at the root.
func ResolveTask(root *model.Root, segments []string) (TaskRef, bool) {
	if len(segments) < 2 {
		return TaskRef{}, false
	}
	parent, ok := ResolveGroup(root, segments[:len(segments)-1])
	if !ok || parent.IsRoot() {
		return TaskRef{}, false
	}
	idx := indexOfTask(parent.Group.Tasks, segments[len(segments)-1])
	if idx < 0 {
		return TaskRef{}, false
	}
	return TaskRef{Task: parent.Group.Tasks[idx], Group: parent.Group, Index: idx, Chain: parent.Chain}, true
}

func indexOfGroup(groups []*model.Group, name string) int {
	for i, g := range groups {
		if g.Name == name {
			return i
		}
	}
	return -1
}

func indexOfTask(tasks []*model.Task, name string) int {
	for i, t := range tasks {
		if t.Name == name {
			return i
		}
	}
	return -1
}
