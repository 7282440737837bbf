package ports

import (
	"context"

	"github.com/evidentia/docsqa/internal/core/domain"
)

// VectorSearch returns dense-similarity candidates for a query embedding,
// ordered by descending raw score with 1-based ranks.
type VectorSearch interface {
	Search(ctx context.Context, queryVector []float32, k int) ([]domain.Candidate, error)
}

// KeywordSearch returns lexical candidates for the query text, ordered by
// descending raw score with 1-based ranks.
type KeywordSearch interface {
	SearchKeyword(ctx context.Context, queryText string, k int) ([]domain.Candidate, error)
}

// Reranker scores one query/chunk pair. The raw score is unbounded; the
// pipeline normalizes it onto [0,1].
type Reranker interface {
	Score(ctx context.Context, queryText, chunkText string) (float64, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator is the LLM capability set the pipeline depends on. Every call
// is invoked under a bounded deadline and must be safely retryable; the
// pipeline substitutes conservative defaults when a call fails.
type Generator interface {
	Answer(ctx context.Context, question string, evidence []domain.RerankedResult) (string, error)
	BriefAnswer(ctx context.Context, question string, evidence []domain.RerankedResult) (string, error)
	Rewrite(ctx context.Context, question string) (string, error)
	Decompose(ctx context.Context, question string) ([]string, error)
	Judge(ctx context.Context, question, answer string, evidence []domain.RerankedResult) (domain.Judgment, error)
	DetectConflicts(ctx context.Context, answer string, evidence []domain.RerankedResult) (domain.ConflictReport, error)
}

// Chunker splits text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}

// VectorIndex writes chunk vectors into the dense index.
type VectorIndex interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error
}

// DocumentStore persists documents and their chunks. The chunk table also
// backs keyword search and the corpus-size input of the coverage signal.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string, chunkCount int) error
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
	CountReadyDocuments(ctx context.Context) (int, error)
}

// TraceStore persists one record per pipeline run.
type TraceStore interface {
	SaveTrace(ctx context.Context, trace domain.Trace) error
}

// MessageQueue carries document-ingested events to the indexing worker.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}
