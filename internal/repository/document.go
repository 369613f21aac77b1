package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tandem-backend/internal/timeutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned by mutations that require an existing document.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned by Create when the path is already taken.
	ErrExists = errors.New("document already exists")
)

// Document is one record read from the document store, with store-native
// metadata alongside the decoded field map.
type Document struct {
	Path      string
	ID        string
	Data      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DataTo decodes the document's field map into v via a JSON round trip.
func (d *Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("failed to encode document data: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.Path, err)
	}
	return nil
}

// WriteResult acknowledges a completed write.
type WriteResult struct {
	WriteTime time.Time
}

// Equal reports whether two acknowledgements refer to the same write time.
func (w WriteResult) Equal(o WriteResult) bool {
	return w.WriteTime.Equal(o.WriteTime)
}

// Constraint is one field predicate of a query. Callers are responsible for
// ensuring any required index exists; the store performs no query planning.
type Constraint struct {
	Field string
	Op    string
	Value any
}

// QueryOptions scope and bound a query. Group widens the collection name to a
// collection-group match on the trailing path segment.
type QueryOptions struct {
	Group bool
	Limit int
}

// DocumentStore provides uniform access to path-addressed JSON documents
// backed by Postgres. Missing documents are reported as a nil result, not an
// error; faults propagate to the caller, who decides whether to log or abort.
type DocumentStore struct {
	db *pgxpool.Pool
}

// NewDocumentStore creates a document store over the given pool.
func NewDocumentStore(db *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{db: db}
}

// EnsureSchema creates the backing table and indexes if they do not exist.
func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path text PRIMARY KEY,
			collection text NOT NULL,
			collection_group text NOT NULL,
			data jsonb NOT NULL,
			created_at timestamptz NOT NULL,
			updated_at timestamptz NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection_group ON documents (collection_group)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure document schema: %w", err)
		}
	}
	return nil
}

// Get loads a single document by path. A missing document yields (nil, nil).
func (s *DocumentStore) Get(ctx context.Context, path string) (*Document, error) {
	if _, _, err := splitPath(path); err != nil {
		return nil, err
	}
	query := `
		SELECT data, created_at, updated_at
		FROM documents
		WHERE path = $1
	`
	var raw []byte
	doc := Document{Path: path, ID: lastSegment(path)}
	err := s.db.QueryRow(ctx, query, path).Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", path, err)
	}
	return &doc, nil
}

// Create inserts a new document, stamping a createdAt field when the payload
// does not carry one. Creating over an existing path fails with ErrExists.
func (s *DocumentStore) Create(ctx context.Context, path string, fields map[string]any) (*WriteResult, error) {
	collection, group, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	now := timeutil.Now()
	data := ApplyFields(map[string]any{}, fields)
	if _, ok := data["createdAt"]; !ok {
		data["createdAt"] = normalizeValue(now)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document %s: %w", path, err)
	}
	query := `
		INSERT INTO documents (path, collection, collection_group, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (path) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, query, path, collection, group, raw, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create document %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrExists
	}
	return &WriteResult{WriteTime: now}, nil
}

// Update merges the given fields into an existing document. Array sentinels
// (ArrayUnion, ArrayRemove) and DeleteField are applied during the merge.
func (s *DocumentStore) Update(ctx context.Context, path string, fields map[string]any) (*WriteResult, error) {
	return s.mutate(ctx, path, fields, false)
}

// Upsert writes a document that may or may not exist. With merge the fields
// are folded into the current data; without it the document is overwritten.
func (s *DocumentStore) Upsert(ctx context.Context, path string, fields map[string]any, merge bool) (*WriteResult, error) {
	if !merge {
		collection, group, err := splitPath(path)
		if err != nil {
			return nil, err
		}
		now := timeutil.Now()
		raw, err := json.Marshal(ApplyFields(map[string]any{}, fields))
		if err != nil {
			return nil, fmt.Errorf("failed to encode document %s: %w", path, err)
		}
		query := `
			INSERT INTO documents (path, collection, collection_group, data, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
		`
		if _, err := s.db.Exec(ctx, query, path, collection, group, raw, now); err != nil {
			return nil, fmt.Errorf("failed to upsert document %s: %w", path, err)
		}
		return &WriteResult{WriteTime: now}, nil
	}
	return s.mutate(ctx, path, fields, true)
}

// Delete removes a document. Deleting a missing path is not an error.
func (s *DocumentStore) Delete(ctx context.Context, path string) (*WriteResult, error) {
	if _, _, err := splitPath(path); err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path); err != nil {
		return nil, fmt.Errorf("failed to delete document %s: %w", path, err)
	}
	return &WriteResult{WriteTime: timeutil.Now()}, nil
}

// Query returns every document of a collection matching all constraints.
func (s *DocumentStore) Query(ctx context.Context, collection string, constraints []Constraint, opts QueryOptions) ([]*Document, error) {
	scopeColumn := "collection"
	if opts.Group {
		scopeColumn = "collection_group"
	}
	where := []string{fmt.Sprintf("%s = $1", scopeColumn)}
	args := []any{collection}
	for _, c := range constraints {
		op, err := sqlOperator(c.Op)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(normalizeValue(c.Value))
		if err != nil {
			return nil, fmt.Errorf("failed to encode constraint value for %s: %w", c.Field, err)
		}
		args = append(args, string(raw))
		where = append(where, fmt.Sprintf("data -> %s %s $%d::jsonb", quoteLiteral(c.Field), op, len(args)))
	}
	query := fmt.Sprintf(`
		SELECT path, data, created_at, updated_at
		FROM documents
		WHERE %s
	`, strings.Join(where, " AND "))
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var raw []byte
		doc := Document{}
		if err := rows.Scan(&doc.Path, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		if err := json.Unmarshal(raw, &doc.Data); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", doc.Path, err)
		}
		doc.ID = lastSegment(doc.Path)
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", collection, err)
	}
	return docs, nil
}

// mutate performs a read-merge-write cycle inside a transaction so that array
// sentinels apply against the current document state.
func (s *DocumentStore) mutate(ctx context.Context, path string, fields map[string]any, insertMissing bool) (*WriteResult, error) {
	collection, group, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	now := timeutil.Now()
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for %s: %w", path, err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	data := map[string]any{}
	err = tx.QueryRow(ctx, `SELECT data FROM documents WHERE path = $1 FOR UPDATE`, path).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if !insertMissing {
			return nil, ErrNotFound
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load document %s: %w", path, err)
	default:
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", path, err)
		}
	}

	merged, err := json.Marshal(ApplyFields(data, fields))
	if err != nil {
		return nil, fmt.Errorf("failed to encode document %s: %w", path, err)
	}
	query := `
		INSERT INTO documents (path, collection, collection_group, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`
	if _, err := tx.Exec(ctx, query, path, collection, group, merged, now); err != nil {
		return nil, fmt.Errorf("failed to write document %s: %w", path, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit write to %s: %w", path, err)
	}
	return &WriteResult{WriteTime: now}, nil
}

func sqlOperator(op string) (string, error) {
	switch op {
	case "==":
		return "=", nil
	case "!=":
		return "<>", nil
	case "<", "<=", ">", ">=":
		return op, nil
	default:
		return "", fmt.Errorf("unsupported query operator %q", op)
	}
}

// splitPath validates a document path of alternating collection and id
// segments and returns its collection and collection-group names.
func splitPath(path string) (collection, group string, err error) {
	segments := strings.Split(path, "/")
	if len(segments) < 2 || len(segments)%2 != 0 {
		return "", "", fmt.Errorf("invalid document path %q", path)
	}
	for _, seg := range segments {
		if seg == "" {
			return "", "", fmt.Errorf("invalid document path %q", path)
		}
	}
	return strings.Join(segments[:len(segments)-1], "/"), segments[len(segments)-2], nil
}

func lastSegment(path string) string {
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

// quoteLiteral renders a field name as a single-quoted SQL literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
