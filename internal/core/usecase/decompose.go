package usecase

import (
	"context"
	"strings"
)

// normalizeQuestion collapses whitespace so semantically identical inputs
// hit the same retrieval path.
func normalizeQuestion(question string) string {
	return strings.Join(strings.Fields(question), " ")
}

// decompose asks the generator to split a compound question into
// sub-questions. Decomposition is best-effort: any failure, an empty
// result, or a single sub-question falls back to the original question.
func (p *QueryPipelineUseCase) decompose(ctx context.Context, question string) []string {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.DecomposeTimeout)
	defer cancel()

	subs, err := p.generator.Decompose(ctx, question)
	if err != nil {
		p.logger.Warn("decomposition failed, using original question", "error", err)
		return []string{question}
	}

	seen := make(map[string]struct{}, len(subs))
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		s = normalizeQuestion(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if len(out) == p.cfg.MaxSubQuestions {
			break
		}
	}
	if len(out) == 0 {
		return []string{question}
	}
	return out
}
