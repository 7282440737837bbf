package ports

import (
	"context"

	"github.com/evidentia/docsqa/internal/core/domain"
)

// QueryPipeline is the inbound contract for the retrieval-to-decision path.
// It always resolves to a QueryResult with one of {answer, clarify,
// abstain}; only malformed input or configuration propagates as an error.
type QueryPipeline interface {
	Run(ctx context.Context, question string, mode domain.Mode) (*domain.QueryResult, error)
}

// DocumentIngestor accepts a plain-text document for asynchronous indexing.
type DocumentIngestor interface {
	Ingest(ctx context.Context, filename, text string) (*domain.Document, error)
}

// DocumentProcessor chunks, embeds, and indexes an ingested document.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document metadata.
type DocumentReader interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}
