package usecase

import (
	"math"

	"github.com/evidentia/docsqa/internal/core/domain"
)

// QualityWeights configures the RQ composite. The four weights sum to 1.
type QualityWeights struct {
	Relevance   float64
	Margin      float64
	Coverage    float64
	Consistency float64

	// ConsistencyScale calibrates how much spread among the top scores
	// zeroes the consistency signal.
	ConsistencyScale float64

	// TopK is the rerank truncation size, the coverage denominator cap.
	TopK int
}

// scoreRetrievalQuality computes the composite retrieval-quality report
// from a reranked candidate list. Pure function: identical inputs yield
// bit-identical reports. The gate tier is assigned by the caller.
func scoreRetrievalQuality(results []domain.RerankedResult, totalDocuments int, w QualityWeights) domain.RetrievalQualityReport {
	if len(results) == 0 {
		return domain.RetrievalQualityReport{Reasons: []domain.ReasonCode{domain.ReasonNoEvidence}}
	}

	relevance := clamp01(results[0].NormalizedScore)

	margin := 0.0
	if len(results) > 1 {
		margin = clamp01(results[0].NormalizedScore - results[1].NormalizedScore)
	}

	distinct := make(map[string]struct{}, len(results))
	for _, r := range results {
		distinct[r.DocumentID] = struct{}{}
	}
	denominator := w.TopK
	if denominator <= 0 {
		denominator = len(results)
	}
	if totalDocuments > 0 && totalDocuments < denominator {
		denominator = totalDocuments
	}
	coverage := clamp01(float64(len(distinct)) / float64(denominator))

	consistency := 1.0
	if len(results) > 1 {
		top := results
		if len(top) > 5 {
			top = top[:5]
		}
		scale := w.ConsistencyScale
		if scale <= 0 {
			scale = 0.2
		}
		spread := stddev(top)
		consistency = clamp01(1.0 - math.Min(1.0, spread/scale))
	}

	rq := clamp01(w.Relevance*relevance + w.Margin*margin + w.Coverage*coverage + w.Consistency*consistency)

	var reasons []domain.ReasonCode
	if relevance < 0.4 {
		reasons = append(reasons, domain.ReasonLowRelevance)
	}
	if margin < 0.1 {
		reasons = append(reasons, domain.ReasonLowMargin)
	}
	if coverage < 0.3 {
		reasons = append(reasons, domain.ReasonLowCoverage)
	}
	if consistency < 0.3 {
		reasons = append(reasons, domain.ReasonLowConsistency)
	}

	return domain.RetrievalQualityReport{
		Relevance:   relevance,
		Margin:      margin,
		Coverage:    coverage,
		Consistency: consistency,
		RQ:          rq,
		Reasons:     reasons,
	}
}

func stddev(results []domain.RerankedResult) float64 {
	mean := 0.0
	for _, r := range results {
		mean += r.NormalizedScore
	}
	mean /= float64(len(results))

	variance := 0.0
	for _, r := range results {
		d := r.NormalizedScore - mean
		variance += d * d
	}
	variance /= float64(len(results))
	return math.Sqrt(variance)
}
