package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evidentia/docsqa/internal/config"
	"github.com/evidentia/docsqa/internal/core/domain"
	"github.com/evidentia/docsqa/internal/core/ports"
)

const (
	abstainAnswer = "I cannot provide a reliable answer. The retrieved evidence is insufficient for this question."

	clarifyCaveat = "\n\nNote: This answer has moderate uncertainty. " +
		"Some claims may not be fully supported by the available evidence."

	citationSnippetLen = 200
)

// PipelineMetrics receives pipeline outcome observations. Implementations
// must be safe for concurrent use.
type PipelineMetrics interface {
	ObserveRetrievalQuality(rq float64)
	ObserveQueryDuration(seconds float64)
	IncDecision(decision string)
	IncFallback()
	IncVerificationDefault()
}

type noopMetrics struct{}

func (noopMetrics) ObserveRetrievalQuality(float64) {}
func (noopMetrics) ObserveQueryDuration(float64)    {}
func (noopMetrics) IncDecision(string)              {}
func (noopMetrics) IncFallback()                    {}
func (noopMetrics) IncVerificationDefault()         {}

// QueryPipelineUseCase runs the retrieval-to-decision path: decompose,
// retrieve, fuse, rerank, score, gate, fall back at most once, generate,
// verify, and decide. Every run terminates in answer, clarify, or abstain;
// only malformed input surfaces as an error.
type QueryPipelineUseCase struct {
	cfg       config.Config
	embedder  ports.Embedder
	vector    ports.VectorSearch
	keyword   ports.KeywordSearch
	reranker  ports.Reranker
	generator ports.Generator
	documents ports.DocumentStore
	traces    ports.TraceStore
	metrics   PipelineMetrics
	logger    *slog.Logger
}

func NewQueryPipeline(
	cfg config.Config,
	embedder ports.Embedder,
	vector ports.VectorSearch,
	keyword ports.KeywordSearch,
	reranker ports.Reranker,
	generator ports.Generator,
	documents ports.DocumentStore,
	traces ports.TraceStore,
	metrics PipelineMetrics,
	logger *slog.Logger,
) *QueryPipelineUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryPipelineUseCase{
		cfg:       cfg,
		embedder:  embedder,
		vector:    vector,
		keyword:   keyword,
		reranker:  reranker,
		generator: generator,
		documents: documents,
		traces:    traces,
		metrics:   metrics,
		logger:    logger,
	}
}

func (p *QueryPipelineUseCase) qualityWeights() QualityWeights {
	return QualityWeights{
		Relevance:        p.cfg.RQWeightRelevance,
		Margin:           p.cfg.RQWeightMargin,
		Coverage:         p.cfg.RQWeightCoverage,
		Consistency:      p.cfg.RQWeightConsistency,
		ConsistencyScale: p.cfg.ConsistencyScale,
		TopK:             p.cfg.RerankTopK,
	}
}

func (p *QueryPipelineUseCase) policy(proceedThreshold float64) confidencePolicy {
	return confidencePolicy{
		alpha:                p.cfg.ConfAlpha,
		beta:                 p.cfg.ConfBeta,
		gamma:                p.cfg.ConfGamma,
		clarifyHigh:          p.cfg.ClarifyHigh,
		clarifyLow:           p.cfg.ClarifyLow,
		contradictionCeiling: p.cfg.ContradictionCeiling,
		groundednessWarn:     p.cfg.GroundednessWarn,
		contradictionWarn:    p.cfg.ContradictionWarn,
		selfConsistencyWarn:  p.cfg.SelfConsistencyWarn,
		proceedThreshold:     proceedThreshold,
	}
}

// Run executes one query end to end.
func (p *QueryPipelineUseCase) Run(ctx context.Context, question string, mode domain.Mode) (*domain.QueryResult, error) {
	start := time.Now()

	question = normalizeQuestion(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "run query", fmt.Errorf("empty question"))
	}
	switch mode {
	case "":
		mode = domain.ModeNormal
	case domain.ModeNormal, domain.ModeStrict:
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "run query", fmt.Errorf("unknown mode %q", mode))
	}

	traceID := uuid.NewString()
	log := p.logger.With("trace_id", traceID, "mode", string(mode))
	log.Info("query started", "question_len", len(question))

	run := &queryRun{
		pipeline: p,
		log:      log,
		start:    start,
		question: question,
		mode:     mode,
		debug:    domain.DebugInfo{TraceID: traceID},
	}
	result := run.execute(ctx)

	p.metrics.ObserveRetrievalQuality(result.Debug.RetrievalQuality.RQ)
	p.metrics.ObserveQueryDuration(time.Since(start).Seconds())
	p.metrics.IncDecision(string(result.Decision))
	p.saveTrace(ctx, run, result)

	log.Info("query finished",
		"decision", string(result.Decision),
		"confidence", result.Confidence,
		"rq", result.Debug.RetrievalQuality.RQ,
		"fallback", result.Debug.FallbackTriggered,
		"latency_ms", result.Debug.LatencyMS,
	)
	return result, nil
}

// queryRun carries the mutable state of one pipeline execution so the
// stage methods stay small.
type queryRun struct {
	pipeline *QueryPipelineUseCase
	log      *slog.Logger
	start    time.Time
	question string
	mode     domain.Mode

	evidence []domain.RerankedResult
	report   domain.RetrievalQualityReport
	debug    domain.DebugInfo
}

func (r *queryRun) execute(ctx context.Context) *domain.QueryResult {
	p := r.pipeline
	high, low := p.cfg.GateThresholds(r.mode)

	subQuestions := p.decompose(ctx, r.question)
	if len(subQuestions) > 1 {
		r.debug.SubQuestions = subQuestions
	}

	fused, err := p.retrieveAll(ctx, subQuestions, p.cfg.VectorTopK, p.cfg.KeywordTopK)
	if err != nil {
		r.log.Warn("retrieval failed on all legs", "error", err)
	}

	rerankCtx, cancelRerank := context.WithTimeout(ctx, p.cfg.RerankTimeout)
	r.evidence = rerankCandidates(rerankCtx, p.reranker, r.question, fused, p.cfg.RerankTopK)
	cancelRerank()

	totalDocuments, err := p.documents.CountReadyDocuments(ctx)
	if err != nil {
		r.log.Warn("document count unavailable, coverage uses rerank breadth", "error", err)
		totalDocuments = 0
	}

	r.report = gateRetrieval(scoreRetrievalQuality(r.evidence, totalDocuments, p.qualityWeights()), high, low)
	r.captureRerankScores()

	var gateReasons []domain.ReasonCode
	gateReasons = append(gateReasons, r.report.Reasons...)

	switch r.report.Tier {
	case domain.TierAbstain:
		return r.abstain(gateReasons)
	case domain.TierFallback:
		p.metrics.IncFallback()
		r.debug.FallbackTriggered = true
		initial := r.report
		r.debug.InitialRetrievalQuality = &initial

		evidence, report := p.runFallback(ctx, r.question, totalDocuments)
		if report.RQ < low {
			report.Tier = domain.TierAbstain
			r.report = report
			r.captureRerankScores()
			reasons := append(report.Reasons, domain.ReasonFallbackUsed, domain.ReasonLowRetrievalQualityAfterFallback)
			return r.abstain(reasons)
		}
		report.Tier = domain.TierProceed
		r.evidence = evidence
		r.report = report
		r.captureRerankScores()
		gateReasons = append(report.Reasons, domain.ReasonFallbackUsed)
	}

	genCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerateTimeout)
	answer, err := p.generator.Answer(genCtx, r.question, r.evidence)
	cancel()
	if err != nil {
		r.log.Warn("generation failed", "error", err)
		return r.abstain(append(gateReasons, domain.ReasonGenerationFailed))
	}

	signals, verifyReasons := p.verify(ctx, r.question, answer, r.evidence)
	if len(verifyReasons) > 0 {
		p.metrics.IncVerificationDefault()
	}
	r.debug.Verification = &signals

	confReport := p.policy(high).decide(r.report, signals, answerAdmitsIgnorance(answer))

	reasons := dedupeReasons(append(append(gateReasons, verifyReasons...), confReport.Reasons...))
	switch confReport.Decision {
	case domain.DecisionAnswer:
		return r.finish(answer, r.citations(), confReport.Confidence, domain.DecisionAnswer, reasons)
	case domain.DecisionClarify:
		return r.finish(answer+clarifyCaveat, r.citations(), confReport.Confidence, domain.DecisionClarify, reasons)
	default:
		return r.finish(abstainAnswer, nil, confReport.Confidence, domain.DecisionAbstain, reasons)
	}
}

func (r *queryRun) captureRerankScores() {
	scores := make([]float64, 0, len(r.evidence))
	for _, e := range r.evidence {
		scores = append(scores, e.NormalizedScore)
	}
	r.debug.RerankTopScores = scores
}

func (r *queryRun) citations() []domain.Citation {
	citations := make([]domain.Citation, 0, len(r.evidence))
	for _, e := range r.evidence {
		snippet := e.Text
		if runes := []rune(snippet); len(runes) > citationSnippetLen {
			snippet = string(runes[:citationSnippetLen])
		}
		citations = append(citations, domain.Citation{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			Snippet:    snippet,
		})
	}
	return citations
}

func (r *queryRun) abstain(reasons []domain.ReasonCode) *domain.QueryResult {
	return r.finish(abstainAnswer, nil, 0, domain.DecisionAbstain, dedupeReasons(reasons))
}

func (r *queryRun) finish(answer string, citations []domain.Citation, confidence float64, decision domain.Decision, reasons []domain.ReasonCode) *domain.QueryResult {
	r.debug.RetrievalQuality = r.report
	r.debug.LatencyMS = float64(time.Since(r.start).Microseconds()) / 1000.0
	return &domain.QueryResult{
		Answer:     answer,
		Citations:  citations,
		Confidence: confidence,
		Decision:   decision,
		Reasons:    reasons,
		Debug:      r.debug,
	}
}

func (p *QueryPipelineUseCase) saveTrace(ctx context.Context, run *queryRun, result *domain.QueryResult) {
	if p.traces == nil {
		return
	}
	trace := domain.Trace{
		ID:                run.debug.TraceID,
		Query:             run.question,
		Mode:              run.mode,
		RQ:                result.Debug.RetrievalQuality.RQ,
		Confidence:        result.Confidence,
		Decision:          result.Decision,
		Reasons:           result.Reasons,
		FallbackTriggered: result.Debug.FallbackTriggered,
		LatencyMS:         result.Debug.LatencyMS,
		CreatedAt:         time.Now().UTC(),
	}
	if err := p.traces.SaveTrace(ctx, trace); err != nil {
		run.log.Warn("trace save failed", "error", err)
	}
}

func dedupeReasons(reasons []domain.ReasonCode) []domain.ReasonCode {
	seen := make(map[domain.ReasonCode]struct{}, len(reasons))
	out := make([]domain.ReasonCode, 0, len(reasons))
	for _, reason := range reasons {
		if _, dup := seen[reason]; dup {
			continue
		}
		seen[reason] = struct{}{}
		out = append(out, reason)
	}
	return out
}
