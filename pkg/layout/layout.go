// Package layout computes layered positions for a mind map tree.
//
// Ranks are tree depths. Within a rank, subtrees are packed in child
// (edge creation) order and parents are centred over their children, so a
// tree never produces edge crossings. The result depends only on the input
// nodes, edges and direction.
package layout

import (
	"strings"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/mindmap"
)

type Direction string

const (
	// Horizontal flows left to right: ranks are columns.
	Horizontal Direction = "horizontal"
	// Vertical flows top to bottom: ranks are rows.
	Vertical Direction = "vertical"
)

// ParseDirection maps configuration values onto a Direction. Anything
// unknown is Horizontal.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical", "tb", "top-bottom":
		return Vertical
	default:
		return Horizontal
	}
}

// Spacing holds the separations used by a layout pass.
type Spacing struct {
	RankSep float64
	NodeSep float64
	Margin  float64
}

// SpacingFor returns the spacing for a direction. Vertical stacking is
// tighter than horizontal flow.
func SpacingFor(dir Direction) Spacing {
	if dir == Vertical {
		return Spacing{RankSep: 80, NodeSep: 40, Margin: 30}
	}
	return Spacing{RankSep: 100, NodeSep: 50, Margin: 30}
}

// Layout returns copies of nodes with new positions. Ids, labels and levels
// are unchanged. Graphs with at most one node are returned as they are.
func Layout(nodes []mindmap.Node, edges []mindmap.Edge, dir Direction) []mindmap.Node {
	out := make([]mindmap.Node, len(nodes))
	copy(out, nodes)
	if len(nodes) <= 1 {
		return out
	}

	p := newPass(out, edges, dir)
	p.run()
	for i := range out {
		out[i].Position = p.position(i)
	}
	return out
}

// Positions is Layout reduced to an id -> position map.
func Positions(nodes []mindmap.Node, edges []mindmap.Edge, dir Direction) map[string]mindmap.Position {
	laid := Layout(nodes, edges, dir)
	res := make(map[string]mindmap.Position, len(laid))
	for _, n := range laid {
		res[n.ID] = n.Position
	}
	return res
}

type pass struct {
	dir     Direction
	spacing Spacing
	sizes   []Size
	index   map[string]int
	kids    [][]int
	roots   []int
	rank    []int

	// along is the centre on the sibling axis, across the centre on the rank axis.
	along    []float64
	nextFree []float64
	rankSize []float64
	placed   []bool
}

func newPass(nodes []mindmap.Node, edges []mindmap.Edge, dir Direction) *pass {
	p := &pass{
		dir:     dir,
		spacing: SpacingFor(dir),
		sizes:   make([]Size, len(nodes)),
		index:   make(map[string]int, len(nodes)),
		kids:    make([][]int, len(nodes)),
		rank:    make([]int, len(nodes)),
		along:   make([]float64, len(nodes)),
		placed:  make([]bool, len(nodes)),
	}
	for i, n := range nodes {
		p.index[n.ID] = i
		p.sizes[i] = NodeSize(n.Label)
	}

	hasParent := make([]bool, len(nodes))
	for _, e := range edges {
		src, ok1 := p.index[e.Source]
		dst, ok2 := p.index[e.Target]
		if !ok1 || !ok2 || src == dst || hasParent[dst] {
			continue
		}
		hasParent[dst] = true
		p.kids[src] = append(p.kids[src], dst)
	}
	for i := range nodes {
		if !hasParent[i] {
			p.roots = append(p.roots, i)
		}
	}
	// A cycle leaves no parentless node; fall back to the first node.
	if len(p.roots) == 0 {
		p.roots = []int{0}
	}
	return p
}

func (p *pass) run() {
	maxRank := 0
	visited := make([]bool, len(p.rank))
	var assign func(i, r int)
	assign = func(i, r int) {
		visited[i] = true
		p.rank[i] = r
		maxRank = max(maxRank, r)
		for _, k := range p.kids[i] {
			if !visited[k] {
				assign(k, r+1)
			}
		}
	}
	for _, r := range p.roots {
		if !visited[r] {
			assign(r, 0)
		}
	}
	// Nodes only reachable through a cycle become extra roots.
	for i := range visited {
		if !visited[i] {
			p.roots = append(p.roots, i)
			assign(i, 0)
		}
	}

	p.rankSize = make([]float64, maxRank+1)
	p.nextFree = make([]float64, maxRank+1)
	for i := range p.nextFree {
		p.nextFree[i] = p.spacing.Margin
	}
	for i, s := range p.sizes {
		p.rankSize[p.rank[i]] = max(p.rankSize[p.rank[i]], p.acrossExtent(s))
	}

	for _, r := range p.roots {
		p.place(r)
	}
}

func (p *pass) place(i int) {
	p.placed[i] = true
	r := p.rank[i]
	half := p.alongExtent(p.sizes[i]) / 2

	var kids []int
	for _, k := range p.kids[i] {
		if !p.placed[k] && p.rank[k] == r+1 {
			kids = append(kids, k)
		}
	}

	if len(kids) == 0 {
		p.along[i] = p.nextFree[r] + half
	} else {
		for _, k := range kids {
			p.place(k)
		}
		c := (p.along[kids[0]] + p.along[kids[len(kids)-1]]) / 2
		if lo := p.nextFree[r] + half; c < lo {
			p.shift(kids, lo-c)
			c = lo
		}
		p.along[i] = c
	}
	p.nextFree[r] = p.along[i] + half + p.spacing.NodeSep
}

// shift moves freshly placed subtrees further along the sibling axis.
// They are the last nodes placed in each of their ranks, so the free
// cursor of those ranks moves with them.
func (p *pass) shift(roots []int, d float64) {
	touched := map[int]bool{}
	stack := append([]int(nil), roots...)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		p.along[i] += d
		touched[p.rank[i]] = true
		for _, k := range p.kids[i] {
			if p.rank[k] == p.rank[i]+1 {
				stack = append(stack, k)
			}
		}
	}
	for r := range touched {
		p.nextFree[r] += d
	}
}

func (p *pass) position(i int) mindmap.Position {
	r := p.rank[i]
	start := p.spacing.Margin
	for j := 0; j < r; j++ {
		start += p.rankSize[j] + p.spacing.RankSep
	}
	across := start + p.rankSize[r]/2

	s := p.sizes[i]
	if p.dir == Vertical {
		return mindmap.Position{X: p.along[i] - s.Width/2, Y: across - s.Height/2}
	}
	return mindmap.Position{X: across - s.Width/2, Y: p.along[i] - s.Height/2}
}

func (p *pass) alongExtent(s Size) float64 {
	if p.dir == Vertical {
		return s.Width
	}
	return s.Height
}

func (p *pass) acrossExtent(s Size) float64 {
	if p.dir == Vertical {
		return s.Height
	}
	return s.Width
}
