package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evidentia/docsqa/internal/core/domain"
	"github.com/evidentia/docsqa/internal/core/ports"
)

// ProcessUseCase embeds and indexes the stored chunks of an ingested
// document. Runs in the worker, driven by queue events.
type ProcessUseCase struct {
	documents ports.DocumentStore
	embedder  ports.Embedder
	index     ports.VectorIndex
	logger    *slog.Logger
}

func NewProcess(documents ports.DocumentStore, embedder ports.Embedder, index ports.VectorIndex, logger *slog.Logger) *ProcessUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessUseCase{documents: documents, embedder: embedder, index: index, logger: logger}
}

func (u *ProcessUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := u.documents.GetDocument(ctx, documentID)
	if err != nil {
		return domain.WrapError(domain.ErrNotFound, "load document", err)
	}

	if err := u.documents.UpdateDocumentStatus(ctx, doc.ID, domain.StatusProcessing, "", 0); err != nil {
		return domain.WrapError(domain.ErrTemporary, "mark processing", err)
	}

	chunks, err := u.documents.GetChunks(ctx, doc.ID)
	if err != nil {
		return u.fail(ctx, doc.ID, domain.WrapError(domain.ErrTemporary, "load chunks", err))
	}
	if len(chunks) == 0 {
		return u.fail(ctx, doc.ID, domain.WrapError(domain.ErrInvalidInput, "load chunks", fmt.Errorf("document has no chunks")))
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return u.fail(ctx, doc.ID, domain.WrapError(domain.ErrTemporary, "embed chunks", err))
	}
	if len(vectors) != len(chunks) {
		return u.fail(ctx, doc.ID, domain.WrapError(domain.ErrTemporary, "embed chunks",
			fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))))
	}

	if err := u.index.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return u.fail(ctx, doc.ID, domain.WrapError(domain.ErrTemporary, "index chunks", err))
	}

	if err := u.documents.UpdateDocumentStatus(ctx, doc.ID, domain.StatusReady, "", len(chunks)); err != nil {
		return domain.WrapError(domain.ErrTemporary, "mark ready", err)
	}

	u.logger.Info("document indexed", "document_id", doc.ID, "chunks", len(chunks))
	return nil
}

func (u *ProcessUseCase) fail(ctx context.Context, documentID string, cause error) error {
	if err := u.documents.UpdateDocumentStatus(ctx, documentID, domain.StatusFailed, cause.Error(), 0); err != nil {
		u.logger.Warn("failed to mark document failed", "document_id", documentID, "error", err)
	}
	return cause
}
