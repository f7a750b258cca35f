package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// MemoryStore keeps documents in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]Document{}, now: time.Now}
}

func (m *MemoryStore) Load(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, wrap(OpLoad, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, wrap(OpLoad, ErrNotFound)
	}
	return doc, nil
}

func (m *MemoryStore) Save(ctx context.Context, id string, in DocumentInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", wrap(OpSave, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	doc := Document{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		NodesJSON:   in.NodesJSON,
		EdgesJSON:   in.EdgesJSON,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if id == "" {
		newID, err := gonanoid.New()
		if err != nil {
			return "", wrap(OpSave, err)
		}
		doc.ID = newID
	} else {
		prev, ok := m.docs[id]
		if !ok {
			return "", wrap(OpSave, ErrNotFound)
		}
		doc.CreatedAt = prev.CreatedAt
	}
	m.docs[doc.ID] = doc
	return doc.ID, nil
}

func (m *MemoryStore) List(ctx context.Context, params ListParams) (ListResult, error) {
	if err := ctx.Err(); err != nil {
		return ListResult{}, wrap(OpList, err)
	}
	params = params.normalize()
	search := strings.ToLower(strings.TrimSpace(params.Search))

	m.mu.RLock()
	matches := make([]Summary, 0, len(m.docs))
	for _, d := range m.docs {
		if search != "" && !strings.Contains(strings.ToLower(d.Title), search) {
			continue
		}
		matches = append(matches, Summary{ID: d.ID, Title: d.Title, Description: d.Description, UpdatedAt: d.UpdatedAt})
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
			return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	res := ListResult{Items: []Summary{}, Total: len(matches), Page: params.Page, Limit: params.Limit}
	if off := params.offset(); off < len(matches) {
		res.Items = matches[off:min(off+params.Limit, len(matches))]
	}
	return res, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return wrap(OpDelete, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return wrap(OpDelete, ErrNotFound)
	}
	delete(m.docs, id)
	return nil
}
