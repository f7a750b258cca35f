package mindmap

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// RootID is the id given to the root of a freshly created graph.
	// Graphs loaded from storage may carry a different root id.
	RootID = "root"
	// DefaultTitle labels the root when a document is created without a title.
	DefaultTitle = "新思维导图"
	// DefaultChildLabel is the provisional label of a node created by AddChild.
	DefaultChildLabel = "新节点"
)

// Palette holds the display colour per level. Levels deeper than the
// palette reuse the last colour.
var Palette = [...]string{
	"#4285f4",
	"#34a853",
	"#fbbc04",
	"#ea4335",
	"#9c27b0",
	"#00bcd4",
}

// RootPosition is where a new root is placed before the first layout pass.
var RootPosition = Position{X: 100, Y: 300}

// Position is the top-left corner of a node's bounding box.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one entry of the outline.
//
// Level is the depth below the root (root = 0). StyleClass and Color are
// derived from Level and never set independently.
type Node struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Level      int      `json:"level"`
	Position   Position `json:"position"`
	StyleClass string   `json:"styleClass"`
	Color      string   `json:"color,omitempty"`
}

// Edge links a parent (Source) to a child (Target). Edges always form a
// rooted tree: every non-root node is the target of exactly one edge.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the unit of persistence and layout input.
//
// Nodes keep their creation order and Edges keep theirs; the edge order is
// the child order used by outline traversal.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// StyleClass returns the style class for a level. Levels beyond the last
// class clamp to it.
func StyleClass(level int) string {
	return fmt.Sprintf("level-%d", clampLevel(level))
}

// ColorForLevel returns the palette colour for a level.
func ColorForLevel(level int) string {
	return Palette[clampLevel(level)]
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	return min(level, len(Palette)-1)
}

// EdgeID builds the id of the structural edge between parent and child.
func EdgeID(parentID, childID string) string {
	return "edge-" + parentID + "-" + childID
}

// NewNodeID returns a fresh node id. Ids are never reused.
func NewNodeID() string {
	return "node-" + gonanoid.Must()
}

func newNode(id, label string, level int, pos Position) Node {
	return Node{
		ID:         id,
		Label:      label,
		Level:      level,
		Position:   pos,
		StyleClass: StyleClass(level),
		Color:      ColorForLevel(level),
	}
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Edges, g.Edges)
	return out
}

// Root returns the level-0 node of the graph.
func (g Graph) Root() (Node, bool) {
	for _, n := range g.Nodes {
		if n.Level == 0 {
			return n, true
		}
	}
	return Node{}, false
}

// ChildIndex maps each node id to its children in edge order.
func (g Graph) ChildIndex() map[string][]string {
	children := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		children[e.Source] = append(children[e.Source], e.Target)
	}
	return children
}
