package usecase

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/evidentia/docsqa/internal/core/domain"
)

// refusalPhrases are the explicit patterns that mark an answer as
// self-admitted ignorance. Only unambiguous refusals are listed, so
// legitimate negative statements in an answer do not trip the detector.
var refusalPhrases = []string{
	"do not contain information",
	"does not contain information",
	"do not contain the answer",
	"does not contain the answer",
	"do not contain the necessary",
	"don't contain information",
	"doesn't contain information",
	"cannot answer the question",
	"cannot answer this question",
	"unable to answer",
	"i cannot provide an answer",
	"i am unable to",
	"no relevant information",
	"outside the scope of",
	"is not discussed in",
	"are not discussed in",
	"not contain any information",
	"do not address",
	"does not address",
	"not provided in the evidence",
}

func answerAdmitsIgnorance(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// verify runs the three post-generation checks concurrently under one
// shared deadline. Verification never fails the request: a check that
// errors or times out contributes its conservative default (groundedness 0,
// self-consistency 0, contradiction rate 0) and the degradation is
// reported through the returned reasons.
func (p *QueryPipelineUseCase) verify(ctx context.Context, question, answer string, evidence []domain.RerankedResult) (domain.VerificationSignals, []domain.ReasonCode) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.VerificationTimeout)
	defer cancel()

	var (
		judgment    domain.Judgment
		conflicts   domain.ConflictReport
		brief       string
		judgeErr    error
		conflictErr error
		selfConsErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		judgment, judgeErr = p.generator.Judge(gctx, question, answer, evidence)
		return nil
	})
	g.Go(func() error {
		conflicts, conflictErr = p.generator.DetectConflicts(gctx, answer, evidence)
		return nil
	})
	g.Go(func() error {
		brief, selfConsErr = p.generator.BriefAnswer(gctx, question, evidence)
		return nil
	})
	_ = g.Wait()

	signals := domain.VerificationSignals{}
	var reasons []domain.ReasonCode
	degraded := false

	if judgeErr != nil {
		p.logger.Warn("groundedness check failed, assuming ungrounded", "error", judgeErr)
		degraded = true
	} else {
		signals.Groundedness = clamp01(judgment.Groundedness)
		signals.Flags = append(signals.Flags, judgment.Flags...)
	}

	if conflictErr != nil {
		p.logger.Warn("contradiction check failed, assuming no contradiction", "error", conflictErr)
		degraded = true
	} else {
		signals.ContradictionRate = clamp01(conflicts.Rate)
		if conflicts.EvidenceConflict && !signals.HasFlag(domain.FlagEvidenceConflict) {
			signals.Flags = append(signals.Flags, domain.FlagEvidenceConflict)
		}
	}

	if selfConsErr != nil {
		p.logger.Warn("self-consistency check failed, assuming inconsistent", "error", selfConsErr)
		degraded = true
	} else {
		signals.SelfConsistency = answerSimilarity(answer, brief)
	}

	if degraded {
		reasons = append(reasons, domain.ReasonVerificationTimeout)
	}
	return signals, reasons
}

// answerSimilarity measures agreement between the full answer and an
// independently regenerated brief answer as a Dice coefficient over token
// bigrams. Texts too short to form bigrams fall back to unigram sets.
func answerSimilarity(a, b string) float64 {
	setA := bigramSet(a)
	setB := bigramSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		setA = unigramSet(a)
		setB = unigramSet(b)
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	shared := 0
	for gram := range setA {
		if _, ok := setB[gram]; ok {
			shared++
		}
	}
	return clamp01(2.0 * float64(shared) / float64(len(setA)+len(setB)))
}

func bigramSet(text string) map[string]struct{} {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) < 2 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		set[tokens[i]+" "+tokens[i+1]] = struct{}{}
	}
	return set
}

func unigramSet(text string) map[string]struct{} {
	tokens := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
