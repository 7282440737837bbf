package usecase

import (
	"context"

	"github.com/evidentia/docsqa/internal/core/domain"
)

// runFallback performs the single permitted retrieval retry: the query is
// rewritten once and both the original and the rewritten query are re-run
// at widened breadth. A failed rewrite keeps the original query, so the
// retry still happens with the widened K alone. The returned report is
// ungated; the caller compares it against the fallback threshold.
func (p *QueryPipelineUseCase) runFallback(ctx context.Context, question string, totalDocuments int) ([]domain.RerankedResult, domain.RetrievalQualityReport) {
	rewriteCtx, cancel := context.WithTimeout(ctx, p.cfg.RewriteTimeout)
	rewritten, err := p.generator.Rewrite(rewriteCtx, question)
	cancel()
	if err != nil {
		p.logger.Warn("query rewrite failed, retrying with original query only", "error", err)
		rewritten = ""
	}
	rewritten = normalizeQuestion(rewritten)

	queries := []string{question}
	if rewritten != "" && rewritten != question {
		queries = append(queries, rewritten)
	}

	expandK := p.cfg.FallbackExpandK
	fused, err := p.retrieveAll(ctx, queries, expandK, expandK)
	if err != nil {
		p.logger.Warn("fallback retrieval failed", "error", err)
		return nil, scoreRetrievalQuality(nil, totalDocuments, p.qualityWeights())
	}

	rerankCtx, cancel := context.WithTimeout(ctx, p.cfg.RerankTimeout)
	defer cancel()
	reranked := rerankCandidates(rerankCtx, p.reranker, question, fused, p.cfg.RerankTopK)
	return reranked, scoreRetrievalQuality(reranked, totalDocuments, p.qualityWeights())
}
