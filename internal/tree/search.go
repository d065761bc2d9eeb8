package tree

import (
	"strings"

	"task-queue/internal/model"
)

// Match is one search hit.
type Match struct {
	Kind NodeKind
	Path []string
}

// Search returns every group whose name, and every task whose name or
// description, contains keyword (case-insensitive), in pre-order.
func (s *Store) Search(keyword string) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return search(s.root, keyword)
}

func search(root *model.Root, keyword string) []Match {
	needle := strings.ToLower(keyword)
	var out []Match
	walkGroups(root.Groups, func(g *model.Group, chain []*model.Group) {
		path := chainNames(chain)
		if strings.Contains(strings.ToLower(g.Name), needle) {
			out = append(out, Match{Kind: KindGroup, Path: path})
		}
		for _, t := range g.Tasks {
			if strings.Contains(strings.ToLower(t.Name), needle) ||
				strings.Contains(strings.ToLower(t.Description), needle) {
				out = append(out, Match{Kind: KindTask, Path: append(path[:len(path):len(path)], t.Name)})
			}
		}
	})
	return out
}
