package mindmap

import (
	"fmt"
	"strings"
)

// Store owns the nodes and edges of one editing session and enforces the
// tree invariants on every mutation.
//
// A Store is not safe for concurrent use; the owning document controller
// serializes access to it.
type Store struct {
	rootID string
	nodes  []Node
	index  map[string]int
	edges  []Edge
	newID  func() string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator replaces the node id generator. Tests use it to get
// predictable ids.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		s.newID = fn
	}
}

// NewStore creates a graph holding a single root labeled with title.
func NewStore(title string, opts ...StoreOption) *Store {
	s := &Store{newID: NewNodeID}
	for _, opt := range opts {
		opt(s)
	}
	s.reset(title)
	return s
}

func (s *Store) reset(title string) {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	root := newNode(RootID, title, 0, RootPosition)
	s.rootID = root.ID
	s.nodes = []Node{root}
	s.index = map[string]int{root.ID: 0}
	s.edges = nil
}

// RootID returns the id of the root node.
func (s *Store) RootID() string {
	return s.rootID
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	return len(s.nodes)
}

// Node looks up a node by id.
func (s *Store) Node(id string) (Node, bool) {
	i, ok := s.index[id]
	if !ok {
		return Node{}, false
	}
	return s.nodes[i], true
}

// Snapshot returns a copy of the graph that callers may keep and modify.
func (s *Store) Snapshot() Graph {
	return Graph{Nodes: s.nodes, Edges: s.edges}.Clone()
}

// Replace swaps the whole graph for g after validating it. Levels, style
// classes and colours are recomputed from the edge structure. On error the
// store is left untouched.
func (s *Store) Replace(g Graph) error {
	normalized, rootID, err := Validate(g)
	if err != nil {
		return err
	}
	index := make(map[string]int, len(normalized.Nodes))
	for i, n := range normalized.Nodes {
		index[n.ID] = i
	}
	s.rootID = rootID
	s.nodes = normalized.Nodes
	s.edges = normalized.Edges
	s.index = index
	return nil
}

// AddChild creates a node below parentID with the default label and one
// edge parent -> child. The node gets a placeholder position to the right
// of its parent until the next layout pass.
func (s *Store) AddChild(parentID string) (Node, error) {
	pi, ok := s.index[parentID]
	if !ok {
		return Node{}, fmt.Errorf("%w: %s", ErrParentNotFound, parentID)
	}
	parent := s.nodes[pi]

	siblings := 0
	for _, e := range s.edges {
		if e.Source == parentID {
			siblings++
		}
	}

	id := s.newID()
	for {
		if _, taken := s.index[id]; !taken {
			break
		}
		id = s.newID()
	}

	child := newNode(id, DefaultChildLabel, parent.Level+1, Position{
		X: parent.Position.X + 200,
		Y: parent.Position.Y + float64(siblings)*30,
	})
	s.index[child.ID] = len(s.nodes)
	s.nodes = append(s.nodes, child)
	s.edges = append(s.edges, Edge{
		ID:     EdgeID(parentID, child.ID),
		Source: parentID,
		Target: child.ID,
	})
	return child, nil
}

// Rename sets the label of a node. Labels are trimmed; empty labels are
// rejected without touching the graph.
func (s *Store) Rename(id, label string) (Node, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Node{}, ErrEmptyLabel
	}
	i, ok := s.index[id]
	if !ok {
		return Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	s.nodes[i].Label = label
	return s.nodes[i], nil
}

// DeleteSubtree removes id, every descendant and every edge touching any
// of them. The returned ids are the removed nodes in discovery order.
func (s *Store) DeleteSubtree(id string) ([]string, error) {
	if id == s.rootID {
		return nil, ErrCannotDeleteRoot
	}
	if _, ok := s.index[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	// The closure has to be complete before anything is removed.
	removed := s.descendants(id)
	doomed := make(map[string]struct{}, len(removed))
	for _, nid := range removed {
		doomed[nid] = struct{}{}
	}

	nodes := make([]Node, 0, len(s.nodes)-len(removed))
	for _, n := range s.nodes {
		if _, gone := doomed[n.ID]; !gone {
			nodes = append(nodes, n)
		}
	}
	edges := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		_, src := doomed[e.Source]
		_, dst := doomed[e.Target]
		if !src && !dst {
			edges = append(edges, e)
		}
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}
	s.nodes, s.edges, s.index = nodes, edges, index
	return removed, nil
}

// descendants returns id followed by all nodes reachable from it, breadth first.
func (s *Store) descendants(id string) []string {
	children := Graph{Edges: s.edges}.ChildIndex()
	seen := map[string]struct{}{id: {}}
	queue := []string{id}
	for i := 0; i < len(queue); i++ {
		for _, c := range children[queue[i]] {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			queue = append(queue, c)
		}
	}
	return queue
}

// SetPositions applies layout output. Unknown ids are ignored.
func (s *Store) SetPositions(positions map[string]Position) {
	for id, pos := range positions {
		if i, ok := s.index[id]; ok {
			s.nodes[i].Position = pos
		}
	}
}

// Validate checks that g is a rooted tree and returns a normalized copy
// with levels derived from depth. Node and edge order are preserved.
func Validate(g Graph) (Graph, string, error) {
	if len(g.Nodes) == 0 {
		return Graph{}, "", fmt.Errorf("%w: no nodes", ErrInvalidGraph)
	}

	out := g.Clone()
	ids := make(map[string]int, len(out.Nodes))
	for i, n := range out.Nodes {
		if n.ID == "" {
			return Graph{}, "", fmt.Errorf("%w: node without id", ErrInvalidGraph)
		}
		if _, dup := ids[n.ID]; dup {
			return Graph{}, "", fmt.Errorf("%w: duplicate node id %s", ErrInvalidGraph, n.ID)
		}
		ids[n.ID] = i
	}

	incoming := make(map[string]int, len(out.Nodes))
	for i, e := range out.Edges {
		if _, ok := ids[e.Source]; !ok {
			return Graph{}, "", fmt.Errorf("%w: edge %s has unknown source %s", ErrInvalidGraph, e.ID, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return Graph{}, "", fmt.Errorf("%w: edge %s has unknown target %s", ErrInvalidGraph, e.ID, e.Target)
		}
		incoming[e.Target]++
		if e.ID == "" {
			out.Edges[i].ID = EdgeID(e.Source, e.Target)
		}
	}

	rootID := ""
	for _, n := range out.Nodes {
		switch incoming[n.ID] {
		case 0:
			if rootID != "" {
				return Graph{}, "", fmt.Errorf("%w: more than one root (%s, %s)", ErrInvalidGraph, rootID, n.ID)
			}
			rootID = n.ID
		case 1:
		default:
			return Graph{}, "", fmt.Errorf("%w: node %s has %d parents", ErrInvalidGraph, n.ID, incoming[n.ID])
		}
	}
	if rootID == "" {
		return Graph{}, "", fmt.Errorf("%w: no root", ErrInvalidGraph)
	}

	// Every node must be reachable from the root, otherwise there is a cycle.
	children := out.ChildIndex()
	depth := map[string]int{rootID: 0}
	queue := []string{rootID}
	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		for _, c := range children[cur] {
			if _, ok := depth[c]; ok {
				continue
			}
			depth[c] = depth[cur] + 1
			queue = append(queue, c)
		}
	}
	if len(depth) != len(out.Nodes) {
		return Graph{}, "", fmt.Errorf("%w: %d nodes unreachable from root", ErrInvalidGraph, len(out.Nodes)-len(depth))
	}

	for i := range out.Nodes {
		lvl := depth[out.Nodes[i].ID]
		out.Nodes[i].Level = lvl
		out.Nodes[i].StyleClass = StyleClass(lvl)
		out.Nodes[i].Color = ColorForLevel(lvl)
	}
	return out, rootID, nil
}
