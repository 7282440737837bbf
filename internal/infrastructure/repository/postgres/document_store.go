package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/evidentia/docsqa/internal/core/domain"
)

// DocumentStore persists documents and chunks. The chunk table carries a
// generated tsvector column, so it also serves the keyword leg of hybrid
// retrieval and the corpus count behind the coverage signal.
type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	status TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	text TEXT NOT NULL,
	tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', text)) STORED
);

CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_tsv ON chunks USING GIN(tsv);

CREATE TABLE IF NOT EXISTS traces (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	mode TEXT NOT NULL,
	rq DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	decision TEXT NOT NULL,
	reasons JSONB NOT NULL DEFAULT '[]'::jsonb,
	fallback_triggered BOOLEAN NOT NULL DEFAULT FALSE,
	latency_ms DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_traces_created_at ON traces(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *DocumentStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO documents (id, filename, status, chunk_count, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, doc.ID, doc.Filename, string(doc.Status), doc.ChunkCount, doc.Error, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *DocumentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, filename, status, chunk_count, error_message, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var status string
	err := row.Scan(&doc.ID, &doc.Filename, &status, &doc.ChunkCount, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("document %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (s *DocumentStore) UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string, chunkCount int) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, chunk_count = $4, updated_at = $5
WHERE id = $1
`, id, string(status), errMessage, chunkCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

func (s *DocumentStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunks tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}
	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO chunks (id, document_id, chunk_index, text)
VALUES ($1,$2,$3,$4)
`, chunk.ID, documentID, chunk.Index, chunk.Text); err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (s *DocumentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, document_id, chunk_index, text
FROM chunks
WHERE document_id = $1
ORDER BY chunk_index
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Text); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *DocumentStore) CountReadyDocuments(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE status = $1`, string(domain.StatusReady)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ready documents: %w", err)
	}
	return count, nil
}

// SearchKeyword runs the lexical leg of hybrid retrieval over the chunk
// tsvector column. Only chunks of ready documents participate. Results
// come back in descending ts_rank order with 1-based ranks.
func (s *DocumentStore) SearchKeyword(ctx context.Context, queryText string, k int) ([]domain.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.document_id, c.text, ts_rank(c.tsv, plainto_tsquery('english', $1)) AS score
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE d.status = $2 AND c.tsv @@ plainto_tsquery('english', $1)
ORDER BY score DESC, c.id
LIMIT $3
`, queryText, string(domain.StatusReady), k)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Text, &c.RawScore); err != nil {
			return nil, fmt.Errorf("scan keyword candidate: %w", err)
		}
		c.Rank = len(out) + 1
		c.SourceMethod = domain.SourceKeyword
		out = append(out, c)
	}
	return out, rows.Err()
}
