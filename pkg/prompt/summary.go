// Package prompt turns a mind map into the text sent to the completion
// service.
package prompt

import (
	"strings"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/mindmap"
)

// Summarize writes the graph as an indented outline, one "- label" line
// per node, two spaces per level. Traversal is depth-first from the root
// and children keep their edge order. Ids and positions never appear.
func Summarize(g mindmap.Graph) string {
	root, ok := g.Root()
	if !ok {
		return ""
	}

	labels := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		labels[n.ID] = n.Label
	}
	children := g.ChildIndex()

	var lines []string
	visited := make(map[string]bool, len(g.Nodes))
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		label, ok := labels[id]
		if !ok || visited[id] {
			return
		}
		visited[id] = true
		lines = append(lines, strings.Repeat("  ", depth)+"- "+label)
		for _, c := range children[id] {
			walk(c, depth+1)
		}
	}
	walk(root.ID, 0)

	return strings.Join(lines, "\n")
}
