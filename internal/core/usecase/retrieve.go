package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/evidentia/docsqa/internal/core/domain"
)

// retrieveFused runs the vector and keyword searches for one question
// concurrently and fuses the two candidate lists. A single failing leg is
// tolerated; the error propagates only when both legs fail.
func (p *QueryPipelineUseCase) retrieveFused(ctx context.Context, question string, vectorK, keywordK int) ([]domain.FusedResult, error) {
	var (
		vectorHits  []domain.Candidate
		keywordHits []domain.Candidate
		vectorErr   error
		keywordErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		embedCtx, cancel := context.WithTimeout(gctx, p.cfg.EmbedTimeout)
		queryVector, err := p.embedder.EmbedQuery(embedCtx, question)
		cancel()
		if err != nil {
			vectorErr = domain.WrapError(domain.ErrTemporary, "embed query", err)
			return nil
		}
		searchCtx, cancel := context.WithTimeout(gctx, p.cfg.SearchTimeout)
		defer cancel()
		vectorHits, err = p.vector.Search(searchCtx, queryVector, vectorK)
		if err != nil {
			vectorErr = domain.WrapError(domain.ErrTemporary, "vector search", err)
		}
		return nil
	})
	g.Go(func() error {
		searchCtx, cancel := context.WithTimeout(gctx, p.cfg.SearchTimeout)
		defer cancel()
		var err error
		keywordHits, err = p.keyword.SearchKeyword(searchCtx, question, keywordK)
		if err != nil {
			keywordErr = domain.WrapError(domain.ErrTemporary, "keyword search", err)
		}
		return nil
	})
	_ = g.Wait()

	if vectorErr != nil && keywordErr != nil {
		return nil, vectorErr
	}
	if vectorErr != nil {
		p.logger.Warn("vector leg failed, continuing on keyword results", "error", vectorErr)
	}
	if keywordErr != nil {
		p.logger.Warn("keyword leg failed, continuing on vector results", "error", keywordErr)
	}

	return fuseRRF(vectorHits, keywordHits, p.cfg.RRFK), nil
}

// retrieveAll fans retrieval out over the sub-questions concurrently and
// merges the per-question fusion outputs, deduplicated by chunk.
func (p *QueryPipelineUseCase) retrieveAll(ctx context.Context, questions []string, vectorK, keywordK int) ([]domain.FusedResult, error) {
	if len(questions) == 1 {
		return p.retrieveFused(ctx, questions[0], vectorK, keywordK)
	}

	lists := make([][]domain.FusedResult, len(questions))
	errs := make([]error, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range questions {
		g.Go(func() error {
			lists[i], errs[i] = p.retrieveFused(gctx, q, vectorK, keywordK)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			p.logger.Warn("sub-question retrieval failed", "question", questions[i], "error", err)
		}
	}
	if failed == len(questions) {
		return nil, errs[0]
	}
	return mergeFused(lists...), nil
}
