package mindmap

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
)

// EncodeNodes serializes nodes to the opaque nodesJson form stored by the
// persistence service.
func EncodeNodes(nodes []Node) (string, error) {
	if nodes == nil {
		nodes = []Node{}
	}
	b, err := json.Marshal(nodes)
	if err != nil {
		return "", fmt.Errorf("encode nodes: %w", err)
	}
	return string(b), nil
}

// EncodeEdges serializes edges to the opaque edgesJson form.
func EncodeEdges(edges []Edge) (string, error) {
	if edges == nil {
		edges = []Edge{}
	}
	b, err := json.Marshal(edges)
	if err != nil {
		return "", fmt.Errorf("encode edges: %w", err)
	}
	return string(b), nil
}

// DecodeGraph parses stored nodesJson/edgesJson and validates the result.
//
// Both the flat form written by EncodeNodes and the older canvas form
// ({"id", "position", "data": {"label", "level"}}) are accepted.
// Double-encoded strings and slightly damaged JSON are repaired first.
func DecodeGraph(nodesJSON, edgesJSON string) (Graph, error) {
	nodes, err := DecodeNodes(nodesJSON)
	if err != nil {
		return Graph{}, err
	}
	edges, err := DecodeEdges(edgesJSON)
	if err != nil {
		return Graph{}, err
	}
	g, _, err := Validate(Graph{Nodes: nodes, Edges: edges})
	return g, err
}

func DecodeNodes(raw string) ([]Node, error) {
	arr, err := normalizeArray(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: nodes: %v", ErrInvalidGraph, err)
	}

	var nodes []Node
	for _, item := range arr.Array() {
		n := Node{
			ID:    item.Get("id").String(),
			Label: firstString(item, "label", "data.label"),
			Level: int(firstInt(item, "level", "data.level")),
			Position: Position{
				X: item.Get("position.x").Float(),
				Y: item.Get("position.y").Float(),
			},
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func DecodeEdges(raw string) ([]Edge, error) {
	arr, err := normalizeArray(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: edges: %v", ErrInvalidGraph, err)
	}

	var edges []Edge
	for _, item := range arr.Array() {
		edges = append(edges, Edge{
			ID:     item.Get("id").String(),
			Source: item.Get("source").String(),
			Target: item.Get("target").String(),
		})
	}
	return edges, nil
}

// normalizeArray unwraps double-encoded payloads and repairs malformed
// JSON until it parses as an array. Empty input is an empty array.
func normalizeArray(raw string) (gjson.Result, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return gjson.Parse("[]"), nil
	}

	if gjson.Valid(raw) {
		res := gjson.Parse(raw)
		if res.Type == gjson.String {
			return normalizeArray(res.String())
		}
		if res.IsArray() {
			return res, nil
		}
		return gjson.Result{}, fmt.Errorf("expected array, got %s", res.Type)
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("json repair failed: %w", err)
	}
	res := gjson.Parse(repaired)
	if !res.IsArray() {
		return gjson.Result{}, fmt.Errorf("expected array after repair")
	}
	return res, nil
}

func firstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() {
			return v.String()
		}
	}
	return ""
}

func firstInt(item gjson.Result, paths ...string) int64 {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() {
			return v.Int()
		}
	}
	return 0
}
