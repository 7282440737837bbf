package usecase

import (
	"math"
	"testing"

	"github.com/evidentia/docsqa/internal/core/domain"
)

func testWeights() QualityWeights {
	return QualityWeights{
		Relevance:        0.4,
		Margin:           0.2,
		Coverage:         0.2,
		Consistency:      0.2,
		ConsistencyScale: 0.2,
		TopK:             10,
	}
}

func reranked(chunkID, docID string, normalized float64) domain.RerankedResult {
	return domain.RerankedResult{
		FusedResult:     domain.FusedResult{ChunkID: chunkID, DocumentID: docID},
		NormalizedScore: normalized,
	}
}

func hasReason(reasons []domain.ReasonCode, want domain.ReasonCode) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

func TestScoreRetrievalQualityEmpty(t *testing.T) {
	report := scoreRetrievalQuality(nil, 5, testWeights())
	if report.RQ != 0 {
		t.Fatalf("empty result set must score 0, got %v", report.RQ)
	}
	if !hasReason(report.Reasons, domain.ReasonNoEvidence) {
		t.Fatalf("expected no_evidence reason, got %v", report.Reasons)
	}
}

func TestScoreRetrievalQualitySingleResult(t *testing.T) {
	report := scoreRetrievalQuality([]domain.RerankedResult{reranked("a", "d1", 0.9)}, 1, testWeights())
	if report.Margin != 0 {
		t.Fatalf("margin with one result must be 0, got %v", report.Margin)
	}
	if report.Consistency != 1 {
		t.Fatalf("consistency with one result must be 1, got %v", report.Consistency)
	}
	if report.Relevance != 0.9 {
		t.Fatalf("relevance = %v, want 0.9", report.Relevance)
	}
	// One distinct doc against a one-document corpus: full coverage.
	if report.Coverage != 1 {
		t.Fatalf("coverage = %v, want 1", report.Coverage)
	}
}

func TestScoreRetrievalQualityComposite(t *testing.T) {
	results := []domain.RerankedResult{
		reranked("a", "d1", 0.9),
		reranked("b", "d2", 0.8),
	}
	report := scoreRetrievalQuality(results, 100, testWeights())

	if math.Abs(report.Margin-0.1) > 1e-9 {
		t.Fatalf("margin = %v, want 0.1", report.Margin)
	}
	// 2 distinct docs over min(TopK=10, totalDocs=100) = 10.
	if math.Abs(report.Coverage-0.2) > 1e-9 {
		t.Fatalf("coverage = %v, want 0.2", report.Coverage)
	}
	// stddev of {0.9, 0.8} is 0.05; consistency = 1 - 0.05/0.2 = 0.75.
	if math.Abs(report.Consistency-0.75) > 1e-9 {
		t.Fatalf("consistency = %v, want 0.75", report.Consistency)
	}
	want := 0.4*0.9 + 0.2*0.1 + 0.2*0.2 + 0.2*0.75
	if math.Abs(report.RQ-want) > 1e-9 {
		t.Fatalf("rq = %v, want %v", report.RQ, want)
	}
}

func TestScoreRetrievalQualityCoverageCapsAtCorpusSize(t *testing.T) {
	results := []domain.RerankedResult{
		reranked("a", "d1", 0.9),
		reranked("b", "d2", 0.9),
	}
	report := scoreRetrievalQuality(results, 2, testWeights())
	if report.Coverage != 1 {
		t.Fatalf("small corpus must not be penalized: coverage = %v", report.Coverage)
	}
}

func TestScoreRetrievalQualityWideSpreadZeroesConsistency(t *testing.T) {
	results := []domain.RerankedResult{
		reranked("a", "d1", 0.99),
		reranked("b", "d1", 0.01),
	}
	report := scoreRetrievalQuality(results, 50, testWeights())
	if report.Consistency != 0 {
		t.Fatalf("spread beyond scale must zero consistency, got %v", report.Consistency)
	}
	if !hasReason(report.Reasons, domain.ReasonLowConsistency) {
		t.Fatalf("expected low_consistency reason, got %v", report.Reasons)
	}
}

func TestScoreRetrievalQualitySubSignalReasons(t *testing.T) {
	results := []domain.RerankedResult{
		reranked("a", "d1", 0.3),
		reranked("b", "d1", 0.29),
	}
	report := scoreRetrievalQuality(results, 100, testWeights())
	for _, want := range []domain.ReasonCode{
		domain.ReasonLowRelevance,
		domain.ReasonLowMargin,
		domain.ReasonLowCoverage,
	} {
		if !hasReason(report.Reasons, want) {
			t.Fatalf("expected reason %s in %v", want, report.Reasons)
		}
	}
}

func TestScoreRetrievalQualityDeterministic(t *testing.T) {
	results := []domain.RerankedResult{
		reranked("a", "d1", 0.7),
		reranked("b", "d2", 0.6),
		reranked("c", "d1", 0.5),
	}
	first := scoreRetrievalQuality(results, 30, testWeights())
	for i := 0; i < 10; i++ {
		if got := scoreRetrievalQuality(results, 30, testWeights()); got.RQ != first.RQ {
			t.Fatalf("run %d: rq %v != %v", i, got.RQ, first.RQ)
		}
	}
}
