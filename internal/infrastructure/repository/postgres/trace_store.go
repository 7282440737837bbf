package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/evidentia/docsqa/internal/core/domain"
)

// TraceStore persists one row per pipeline run. Writes are best-effort
// from the caller's point of view; the store itself reports failures.
type TraceStore struct {
	db *sql.DB
}

func NewTraceStore(db *sql.DB) *TraceStore {
	return &TraceStore{db: db}
}

func (s *TraceStore) SaveTrace(ctx context.Context, trace domain.Trace) error {
	reasonsJSON, err := json.Marshal(trace.Reasons)
	if err != nil {
		return fmt.Errorf("marshal trace reasons: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO traces (id, query, mode, rq, confidence, decision, reasons, fallback_triggered, latency_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		trace.ID, trace.Query, string(trace.Mode), trace.RQ, trace.Confidence,
		string(trace.Decision), reasonsJSON, trace.FallbackTriggered, trace.LatencyMS, trace.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trace: %w", err)
	}
	return nil
}
