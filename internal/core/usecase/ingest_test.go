package usecase

import (
	"context"
	"log/slog"
	"testing"

	"github.com/evidentia/docsqa/internal/core/domain"
)

func TestIngestStoresChunksAndPublishes(t *testing.T) {
	docs := newFakeDocumentStore()
	queue := &fakeQueue{}
	u := NewIngest(fixedChunker{parts: []string{"part one", "part two"}}, docs, queue, slog.New(slog.DiscardHandler))

	doc, err := u.Ingest(context.Background(), "runbook.txt", "part one part two")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("status = %s, want uploaded", doc.Status)
	}

	chunks, _ := docs.GetChunks(context.Background(), doc.ID)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 stored chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.DocumentID != doc.ID || c.Index != i || c.ID == "" {
			t.Fatalf("chunk %d malformed: %+v", i, c)
		}
	}

	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("ingested event not published: %v", queue.published)
	}
}

func TestIngestRejectsEmptyInput(t *testing.T) {
	u := NewIngest(fixedChunker{}, newFakeDocumentStore(), &fakeQueue{}, slog.New(slog.DiscardHandler))

	if _, err := u.Ingest(context.Background(), "", "text"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("empty filename: err = %v", err)
	}
	if _, err := u.Ingest(context.Background(), "a.txt", "   "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("empty text: err = %v", err)
	}
}

func TestIngestPublishFailureMarksDocumentFailed(t *testing.T) {
	docs := newFakeDocumentStore()
	queue := &fakeQueue{err: errBoom}
	u := NewIngest(fixedChunker{parts: []string{"part"}}, docs, queue, slog.New(slog.DiscardHandler))

	doc, err := u.Ingest(context.Background(), "a.txt", "part")
	if err == nil {
		t.Fatalf("expected publish failure to surface")
	}
	if doc != nil {
		t.Fatalf("failed ingest must not return a document")
	}

	for _, stored := range docs.docs {
		if stored.Status != domain.StatusFailed {
			t.Fatalf("document should be marked failed, got %s", stored.Status)
		}
	}
}
