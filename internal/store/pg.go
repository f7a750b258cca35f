package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/leaselock"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

// PgStore keeps documents in the documents table. Deleted documents are
// only marked and never returned again.
type PgStore struct {
	conn  pgxIConn
	locks leaselock.Locker
}

type PgStoreOption func(*PgStore)

// WithLocker serializes updates of the same document through locks.
func WithLocker(locks leaselock.Locker) PgStoreOption {
	return func(s *PgStore) {
		s.locks = locks
	}
}

func NewPgStore(conn pgxIConn, opts ...PgStoreOption) *PgStore {
	s := &PgStore{conn: conn}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *PgStore) Load(ctx context.Context, id string) (Document, error) {
	var doc Document
	err := s.conn.QueryRow(ctx, loadDocumentSQL, id).Scan(
		&doc.ID, &doc.Title, &doc.Description, &doc.NodesJSON, &doc.EdgesJSON, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, wrap(OpLoad, ErrNotFound)
	}
	if err != nil {
		logger.Error("[Store] failed to load document", "id", id, "err", err)
		return Document{}, wrap(OpLoad, err)
	}
	return doc, nil
}

func (s *PgStore) Save(ctx context.Context, id string, in DocumentInput) (string, error) {
	in = sanitize(in)
	if id == "" {
		newID, err := gonanoid.New()
		if err != nil {
			return "", wrap(OpSave, err)
		}
		if _, err := s.conn.Exec(ctx, insertDocumentSQL, newID, in.Title, in.Description, in.NodesJSON, in.EdgesJSON); err != nil {
			logger.Error("[Store] failed to insert document", "err", err)
			return "", wrap(OpSave, err)
		}
		logger.Debug("[Store] document created", "id", newID)
		return newID, nil
	}

	update := func(ctx context.Context) error {
		tag, err := s.conn.Exec(ctx, updateDocumentSQL, id, in.Title, in.Description, in.NodesJSON, in.EdgesJSON)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	}

	var err error
	if s.locks != nil {
		err = s.locks.WithLease(ctx, leaselock.DocumentKey(id), leaselock.Options{
			TTL:  30 * time.Second,
			Wait: true,
		}, update)
	} else {
		err = update(ctx)
	}
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Error("[Store] failed to update document", "id", id, "err", err)
		}
		return "", wrap(OpSave, err)
	}
	return id, nil
}

func (s *PgStore) List(ctx context.Context, params ListParams) (ListResult, error) {
	params = params.normalize()
	rows, err := s.conn.Query(ctx, listDocumentsSQL, params.Search, params.Limit, params.offset())
	if err != nil {
		return ListResult{}, wrap(OpList, err)
	}
	defer rows.Close()

	res := ListResult{Items: []Summary{}, Page: params.Page, Limit: params.Limit}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Description, &sum.UpdatedAt, &res.Total); err != nil {
			return ListResult{}, wrap(OpList, err)
		}
		res.Items = append(res.Items, sum)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, wrap(OpList, err)
	}
	if len(res.Items) == 0 && params.Page > 1 {
		// The window count is only present on returned rows.
		if err := s.conn.QueryRow(ctx, countDocumentsSQL, params.Search).Scan(&res.Total); err != nil {
			return ListResult{}, wrap(OpList, err)
		}
	}
	return res, nil
}

func (s *PgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, deleteDocumentSQL, id)
	if err != nil {
		return wrap(OpDelete, err)
	}
	if tag.RowsAffected() == 0 {
		return wrap(OpDelete, ErrNotFound)
	}
	return nil
}

// sanitize drops what Postgres text columns reject: NUL bytes and invalid
// UTF-8. Model output pasted into labels occasionally carries both.
func sanitize(in DocumentInput) DocumentInput {
	clean := func(v string) string {
		if v == "" {
			return v
		}
		return strings.ReplaceAll(strings.ToValidUTF8(v, ""), "\x00", "")
	}
	return DocumentInput{
		Title:       clean(in.Title),
		Description: clean(in.Description),
		NodesJSON:   clean(in.NodesJSON),
		EdgesJSON:   clean(in.EdgesJSON),
	}
}

const loadDocumentSQL = `
SELECT id, title, description, nodes_json, edges_json, created_at, updated_at
FROM documents
WHERE id = $1 AND deleted_at IS NULL;
`

const insertDocumentSQL = `
INSERT INTO documents (id, title, description, nodes_json, edges_json)
VALUES ($1, $2, $3, $4, $5);
`

const updateDocumentSQL = `
UPDATE documents
SET title = $2, description = $3, nodes_json = $4, edges_json = $5, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL;
`

const listDocumentsSQL = `
SELECT id, title, description, updated_at, count(*) OVER ()::int
FROM documents
WHERE deleted_at IS NULL
  AND ($1 = '' OR title ILIKE '%' || $1 || '%')
ORDER BY updated_at DESC, id
LIMIT $2 OFFSET $3;
`

const countDocumentsSQL = `
SELECT count(*)::int
FROM documents
WHERE deleted_at IS NULL
  AND ($1 = '' OR title ILIKE '%' || $1 || '%');
`

const deleteDocumentSQL = `
UPDATE documents
SET deleted_at = now()
WHERE id = $1 AND deleted_at IS NULL;
`
