package mindmap

import "errors"

var (
	ErrParentNotFound   = errors.New("parent node not found")
	ErrNodeNotFound     = errors.New("node not found")
	ErrCannotDeleteRoot = errors.New("the root node cannot be deleted")
	ErrEmptyLabel       = errors.New("label must not be empty")
	// ErrInvalidGraph is returned when a loaded graph violates the tree shape.
	ErrInvalidGraph = errors.New("invalid mind map graph")
)
