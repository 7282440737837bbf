package usecase

import (
	"context"
	"math"
	"sort"

	"github.com/evidentia/docsqa/internal/core/domain"
	"github.com/evidentia/docsqa/internal/core/ports"
)

// normalizeLogistic maps an unbounded raw reranker score onto (0,1) so
// downstream arithmetic is independent of the plugged-in reranker's range.
func normalizeLogistic(raw float64) float64 {
	return 1.0 / (1.0 + math.Exp(-raw))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// rerankCandidates scores each fused candidate pairwise against the query,
// normalizes the raw scores, and truncates to the top K. A failed score
// call contributes the conservative floor instead of failing the attempt.
func rerankCandidates(
	ctx context.Context,
	reranker ports.Reranker,
	question string,
	fused []domain.FusedResult,
	topK int,
) []domain.RerankedResult {
	if len(fused) == 0 {
		return nil
	}
	if topK <= 0 || topK > len(fused) {
		topK = len(fused)
	}

	out := make([]domain.RerankedResult, 0, len(fused))
	for _, f := range fused {
		raw, err := reranker.Score(ctx, question, f.Text)
		normalized := 0.0
		if err == nil {
			normalized = normalizeLogistic(raw)
		} else {
			raw = 0
		}
		out = append(out, domain.RerankedResult{
			FusedResult:     f,
			RawScore:        raw,
			NormalizedScore: normalized,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NormalizedScore != out[j].NormalizedScore {
			return out[i].NormalizedScore > out[j].NormalizedScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})

	out = out[:topK]
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
