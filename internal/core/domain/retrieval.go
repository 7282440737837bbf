package domain

type SourceMethod string

const (
	SourceVector  SourceMethod = "vector"
	SourceKeyword SourceMethod = "keyword"
)

// Candidate is a single raw hit from one retrieval method. Immutable once
// produced by a search collaborator.
type Candidate struct {
	ChunkID      string       `json:"chunk_id"`
	DocumentID   string       `json:"document_id"`
	Text         string       `json:"text"`
	RawScore     float64      `json:"raw_score"`
	Rank         int          `json:"rank"`
	SourceMethod SourceMethod `json:"source_method"`
}

// FusedResult is one chunk after reciprocal rank fusion across both
// retrieval methods. Rank is 1-based and strictly ordered by descending
// FusedScore.
type FusedResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	FusedScore float64 `json:"fused_score"`
	Rank       int     `json:"rank"`
}

// RerankedResult carries the pairwise reranker output for a fused chunk.
// NormalizedScore is the logistic-squashed raw score, always in [0,1].
type RerankedResult struct {
	FusedResult
	RawScore        float64 `json:"raw_score"`
	NormalizedScore float64 `json:"normalized_score"`
}

type Citation struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	Snippet    string `json:"snippet"`
}
