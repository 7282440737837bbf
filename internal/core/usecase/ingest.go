package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evidentia/docsqa/internal/core/domain"
	"github.com/evidentia/docsqa/internal/core/ports"
)

// IngestUseCase accepts plain-text documents, persists their chunks, and
// hands indexing off to the worker through the message queue.
type IngestUseCase struct {
	chunker   ports.Chunker
	documents ports.DocumentStore
	queue     ports.MessageQueue
	logger    *slog.Logger
}

func NewIngest(chunker ports.Chunker, documents ports.DocumentStore, queue ports.MessageQueue, logger *slog.Logger) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{chunker: chunker, documents: documents, queue: queue, logger: logger}
}

func (u *IngestUseCase) Ingest(ctx context.Context, filename, text string) (*domain.Document, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest document", fmt.Errorf("empty filename"))
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest document", fmt.Errorf("empty document text"))
	}

	parts := u.chunker.Split(text)
	if len(parts) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest document", fmt.Errorf("text produced no chunks"))
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Filename:  filename,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.documents.CreateDocument(ctx, doc); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "create document", err)
	}

	chunks := make([]domain.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Index:      i,
			Text:       part,
		})
	}
	if err := u.documents.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		u.markFailed(ctx, doc.ID, err)
		return nil, domain.WrapError(domain.ErrTemporary, "store chunks", err)
	}

	if err := u.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		u.markFailed(ctx, doc.ID, err)
		return nil, domain.WrapError(domain.ErrTemporary, "publish ingested event", err)
	}

	u.logger.Info("document ingested", "document_id", doc.ID, "filename", filename, "chunks", len(chunks))
	return doc, nil
}

func (u *IngestUseCase) markFailed(ctx context.Context, documentID string, cause error) {
	if err := u.documents.UpdateDocumentStatus(ctx, documentID, domain.StatusFailed, cause.Error(), 0); err != nil {
		u.logger.Warn("failed to mark document failed", "document_id", documentID, "error", err)
	}
}
