package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is source-text metadata; the raw text lives in its chunks.
type Document struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename"`
	Status     DocumentStatus `json:"status"`
	ChunkCount int            `json:"chunk_count"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Chunk is one indexable slice of a document.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
}

// Judgment is the groundedness verdict returned by the judging collaborator.
type Judgment struct {
	Groundedness      float64    `json:"groundedness"`
	UnsupportedClaims []string   `json:"unsupported_claims,omitempty"`
	Flags             []FlagKind `json:"flags,omitempty"`
}

// ConflictReport is the contradiction verdict over evidence pairs and the
// answer-vs-evidence comparison.
type ConflictReport struct {
	Rate             float64 `json:"contradiction_rate"`
	EvidenceConflict bool    `json:"evidence_conflict"`
}
