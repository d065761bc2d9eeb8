package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"task-queue/internal/model"
	"task-queue/internal/tree"
)

type listFilter string

const (
	filterAll     listFilter = "all"
	filterPending listFilter = "pending"
	filterDone    listFilter = "done"
)

type listOptions struct {
	sortBy model.SortKey
	filter listFilter
}

// parseListOptions reads "[sort_by] | [filter_status]"; both default.
func parseListOptions(args []string) (listOptions, error) {
	opts := listOptions{sortBy: model.SortByName, filter: filterAll}
	if raw := argAt(args, 0); raw != "" {
		key, err := model.ParseSortKey(strings.ToLower(raw))
		if err != nil || key == model.SortByStatus {
			return opts, fmt.Errorf("unknown sort %q, use name or deadline", raw)
		}
		opts.sortBy = key
	}
	switch strings.ToLower(argAt(args, 1)) {
	case "", "all":
	case "pending":
		opts.filter = filterPending
	case "done", "completed":
		opts.filter = filterDone
	default:
		return opts, fmt.Errorf("unknown filter %q, use all, pending or done", argAt(args, 1))
	}
	return opts, nil
}

func (f listFilter) keep(t *model.Task) bool {
	switch f {
	case filterPending:
		return t.Status != model.StatusDone
	case filterDone:
		return t.Status == model.StatusDone
	default:
		return true
	}
}

// renderList draws the tree as indented text. The display order never
// touches the stored order.
func renderList(root *model.Root, opts listOptions) string {
	var lines []string
	type frame struct {
		group  *model.Group
		indent string
	}
	stack := make([]frame, 0, len(root.Groups))
	for i := len(root.Groups) - 1; i >= 0; i-- {
		stack = append(stack, frame{group: root.Groups[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		lines = append(lines, f.indent+f.group.Name)
		tasks := make([]*model.Task, 0, len(f.group.Tasks))
		for _, t := range f.group.Tasks {
			if opts.filter.keep(t) {
				tasks = append(tasks, t)
			}
		}
		sortForDisplay(tasks, opts.sortBy)
		for _, t := range tasks {
			lines = append(lines, fmt.Sprintf("%s  [%s] %s - Due %s",
				f.indent, strings.ToUpper(string(t.Status)), t.Name, formatDeadline(t.Deadline)))
		}
		for i := len(f.group.Groups) - 1; i >= 0; i-- {
			stack = append(stack, frame{group: f.group.Groups[i], indent: f.indent + "  "})
		}
	}
	if len(lines) == 0 {
		return "No groups or tasks found."
	}
	return strings.Join(lines, "\n")
}

func sortForDisplay(tasks []*model.Task, key model.SortKey) {
	switch key {
	case model.SortByDeadline:
		sort.SliceStable(tasks, func(i, j int) bool {
			a, b := tasks[i].Deadline, tasks[j].Deadline
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			return a.Before(*b)
		})
	default:
		sort.SliceStable(tasks, func(i, j int) bool {
			return strings.ToLower(tasks[i].Name) < strings.ToLower(tasks[j].Name)
		})
	}
}

func formatDeadline(deadline *time.Time) string {
	if deadline == nil {
		return "(no deadline)"
	}
	return deadline.UTC().Format("2006-01-02 15:04")
}

func renderSearch(matches []tree.Match) string {
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(string(m.Kind)), tree.JoinPath(m.Path)))
	}
	return strings.Join(lines, "\n")
}

func formatTaskSummary(path []string, task *model.Task, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("• <b>Path:</b> %s\n", escape(tree.JoinPath(path))))
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(task.Description)))
	}
	if task.Deadline != nil {
		b.WriteString(fmt.Sprintf("• <b>Deadline:</b> %s\n", task.Deadline.In(loc).Format("2006-01-02 15:04 MST")))
	}
	if task.ReminderHours != nil {
		b.WriteString(fmt.Sprintf("• <b>Reminder:</b> %dh before\n", *task.ReminderHours))
	}
	b.WriteString(fmt.Sprintf("• <b>Status:</b> %s", task.Status))
	return b.String()
}
