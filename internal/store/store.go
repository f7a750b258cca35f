// Package store persists mind-map documents.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("document not found")

// PersistenceError wraps every failure of a persistence call. The in-memory
// editing state is never touched when one is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// Document is a stored mind map. NodesJSON and EdgesJSON are the opaque
// serialized node and edge collections.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	NodesJSON   string    `json:"nodesJson"`
	EdgesJSON   string    `json:"edgesJson"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type DocumentInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	NodesJSON   string `json:"nodesJson"`
	EdgesJSON   string `json:"edgesJson"`
}

// Summary is a list entry without the graph payload.
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ListParams struct {
	Search string
	Page   int
	Limit  int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (p ListParams) normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p ListParams) offset() int {
	return (p.Page - 1) * p.Limit
}

type ListResult struct {
	Items []Summary `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// Store is the persistence collaborator. Save with an empty id creates a
// new document and returns its id.
type Store interface {
	Load(ctx context.Context, id string) (Document, error)
	Save(ctx context.Context, id string, in DocumentInput) (string, error)
	List(ctx context.Context, params ListParams) (ListResult, error)
	Delete(ctx context.Context, id string) error
}

const (
	OpLoad   = "load"
	OpSave   = "save"
	OpList   = "list"
	OpDelete = "delete"
)

type observed struct {
	next    Store
	observe func(op string, err error)
}

// Observe reports the outcome of every call on s to fn.
func Observe(s Store, fn func(op string, err error)) Store {
	if fn == nil {
		return s
	}
	return &observed{next: s, observe: fn}
}

func (o *observed) Load(ctx context.Context, id string) (Document, error) {
	doc, err := o.next.Load(ctx, id)
	o.observe(OpLoad, err)
	return doc, err
}

func (o *observed) Save(ctx context.Context, id string, in DocumentInput) (string, error) {
	out, err := o.next.Save(ctx, id, in)
	o.observe(OpSave, err)
	return out, err
}

func (o *observed) List(ctx context.Context, params ListParams) (ListResult, error) {
	res, err := o.next.List(ctx, params)
	o.observe(OpList, err)
	return res, err
}

func (o *observed) Delete(ctx context.Context, id string) error {
	err := o.next.Delete(ctx, id)
	o.observe(OpDelete, err)
	return err
}
