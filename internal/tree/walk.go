package tree

import "task-queue/internal/model"

type walkFrame struct {
	group *model.Group
	chain []*model.Group
}

// walkGroups visits every group in pre-order (a group before its subgroups,
// siblings in list order). chain runs from the top level down to the visited
// group and must not be retained past the callback without copying.
func walkGroups(groups []*model.Group, visit func(g *model.Group, chain []*model.Group)) {
	stack := make([]walkFrame, 0, len(groups))
	for i := len(groups) - 1; i >= 0; i-- {
		stack = append(stack, walkFrame{group: groups[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		chain := append(f.chain[:len(f.chain):len(f.chain)], f.group)
		visit(f.group, chain)

		for i := len(f.group.Groups) - 1; i >= 0; i-- {
			stack = append(stack, walkFrame{group: f.group.Groups[i], chain: chain})
		}
	}
}

func chainNames(chain []*model.Group) []string {
	names := make([]string, len(chain))
	for i, g := range chain {
		names[i] = g.Name
	}
	return names
}
