package mindmap

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
)

func TestEncodeDecodeGraph(t *testing.T) {
	s := NewStore("Topic", counterIDs())
	a := mustAdd(t, s, RootID, "A")
	mustAdd(t, s, a.ID, "C")
	g := s.Snapshot()

	nodesJSON, err := EncodeNodes(g.Nodes)
	if err != nil {
		t.Fatalf("EncodeNodes: %v", err)
	}
	edgesJSON, err := EncodeEdges(g.Edges)
	if err != nil {
		t.Fatalf("EncodeEdges: %v", err)
	}

	got, err := DecodeGraph(nodesJSON, edgesJSON)
	if err != nil {
		t.Fatalf("DecodeGraph: %v", err)
	}
	if !reflect.DeepEqual(got, g) {
		t.Fatalf("decoded graph differs:\n got %+v\nwant %+v", got, g)
	}
}

func TestDecodeGraph_CanvasShape(t *testing.T) {
	nodes := `[
		{"id":"root","type":"mindMapNode","position":{"x":100,"y":300},"data":{"label":"Old","level":0,"color":"#4285f4"}},
		{"id":"node-1","type":"mindMapNode","position":{"x":300,"y":300},"data":{"label":"Child","level":1}}
	]`
	edges := `[{"id":"edge-root-node-1","source":"root","target":"node-1","type":"smoothstep"}]`

	g, err := DecodeGraph(nodes, edges)
	if err != nil {
		t.Fatalf("DecodeGraph: %v", err)
	}
	if len(g.Nodes) != 2 || g.Nodes[1].Label != "Child" || g.Nodes[1].Level != 1 {
		t.Fatalf("unexpected nodes %+v", g.Nodes)
	}
	if g.Nodes[1].Position != (Position{X: 300, Y: 300}) {
		t.Fatalf("position not decoded: %+v", g.Nodes[1].Position)
	}
}

func TestDecodeGraph_DoubleEncodedAndDamaged(t *testing.T) {
	nodes := strconv.Quote(`[{"id":"root","label":"R","level":0}]`)
	edges := `[]`
	if _, err := DecodeGraph(nodes, edges); err != nil {
		t.Fatalf("double encoded nodes: %v", err)
	}

	damaged := `[{"id":"root","label":"R","level":0},]`
	if _, err := DecodeGraph(damaged, ""); err != nil {
		t.Fatalf("trailing comma should be repaired: %v", err)
	}
}

func TestDecodeGraph_RejectsBrokenTree(t *testing.T) {
	nodes := `[{"id":"a","label":"A"},{"id":"b","label":"B"}]`
	_, err := DecodeGraph(nodes, `[]`)
	if !errors.Is(err, ErrInvalidGraph) {
		t.Fatalf("expected ErrInvalidGraph, got %v", err)
	}

	_, err = DecodeGraph(`{"id":"a"}`, `[]`)
	if !errors.Is(err, ErrInvalidGraph) {
		t.Fatalf("object instead of array should fail, got %v", err)
	}
}
