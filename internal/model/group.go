package model

import "fmt"

// DefaultReminderHours is the global reminder lead time of a fresh tree.
const DefaultReminderHours = 24

// Group is a folder of tasks that can nest other groups.
type Group struct {
	Name          string   `json:"name"`
	Groups        []*Group `json:"groups"`
	Tasks         []*Task  `json:"tasks"`
	ReminderHours *int     `json:"reminderHours,omitempty"`
}

// NewGroup returns an empty group with non-nil collections.
func NewGroup(name string) *Group {
	return &Group{Name: name, Groups: []*Group{}, Tasks: []*Task{}}
}

// Clone returns a deep copy of the group and its subtree.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	c := &Group{
		Name:          g.Name,
		Groups:        make([]*Group, 0, len(g.Groups)),
		Tasks:         make([]*Task, 0, len(g.Tasks)),
		ReminderHours: cloneInt(g.ReminderHours),
	}
	for _, sub := range g.Groups {
		c.Groups = append(c.Groups, sub.Clone())
	}
	for _, t := range g.Tasks {
		c.Tasks = append(c.Tasks, t.Clone())
	}
	return c
}

// Root is the whole persisted tree.
type Root struct {
	ReminderHoursBefore int      `json:"reminderHoursBefore"`
	Groups              []*Group `json:"groups"`
}

func NewRoot() *Root {
	return &Root{ReminderHoursBefore: DefaultReminderHours, Groups: []*Group{}}
}

// Clone returns a deep copy of the tree.
func (r *Root) Clone() *Root {
	if r == nil {
		return nil
	}
	c := &Root{ReminderHoursBefore: r.ReminderHoursBefore, Groups: make([]*Group, 0, len(r.Groups))}
	for _, g := range r.Groups {
		c.Groups = append(c.Groups, g.Clone())
	}
	return c
}

// Validate reports null group or task entries, which a hand-edited document
// can contain.
func (r *Root) Validate() error {
	type frame struct {
		groups []*Group
		path   string
	}
	stack := []frame{{groups: r.Groups}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i, g := range f.groups {
			if g == nil {
				return fmt.Errorf("null group at %s[%d]", f.path+"groups", i)
			}
			p := f.path + g.Name + "/"
			for j, t := range g.Tasks {
				if t == nil {
					return fmt.Errorf("null task at %s[%d]", p+"tasks", j)
				}
			}
			stack = append(stack, frame{groups: g.Groups, path: p})
		}
	}
	return nil
}

// Normalize fills in collections and defaults missing from a decoded document.
// Null entries are dropped.
func (r *Root) Normalize() {
	r.Groups = compactGroups(r.Groups)
	if r.ReminderHoursBefore < 0 {
		r.ReminderHoursBefore = DefaultReminderHours
	}
	stack := append([]*Group(nil), r.Groups...)
	for len(stack) > 0 {
		g := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		g.Groups = compactGroups(g.Groups)
		g.Tasks = compactTasks(g.Tasks)
		for _, t := range g.Tasks {
			if t.Status == "" {
				t.Status = StatusPending
			}
		}
		stack = append(stack, g.Groups...)
	}
}

func compactGroups(groups []*Group) []*Group {
	out := groups[:0]
	for _, g := range groups {
		if g != nil {
			out = append(out, g)
		}
	}
	if out == nil {
		return []*Group{}
	}
	return out
}

func compactTasks(tasks []*Task) []*Task {
	out := tasks[:0]
	for _, t := range tasks {
		if t != nil {
			out = append(out, t)
		}
	}
	if out == nil {
		return []*Task{}
	}
	return out
}
