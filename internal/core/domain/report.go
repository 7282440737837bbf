package domain

import "time"

type Mode string

const (
	ModeNormal Mode = "normal"
	ModeStrict Mode = "strict"
)

// Tier is the pre-generation gate outcome.
type Tier string

const (
	TierProceed  Tier = "proceed"
	TierFallback Tier = "fallback"
	TierAbstain  Tier = "abstain"
)

// Decision is the terminal three-state outcome of a query.
type Decision string

const (
	DecisionAnswer  Decision = "answer"
	DecisionClarify Decision = "clarify"
	DecisionAbstain Decision = "abstain"
)

type ReasonCode string

const (
	ReasonNoEvidence                       ReasonCode = "no_evidence"
	ReasonLowRelevance                     ReasonCode = "low_relevance"
	ReasonLowMargin                        ReasonCode = "low_margin"
	ReasonLowCoverage                      ReasonCode = "low_coverage"
	ReasonLowConsistency                   ReasonCode = "low_consistency"
	ReasonLowRetrievalQuality              ReasonCode = "low_retrieval_quality"
	ReasonLowRetrievalQualityAfterFallback ReasonCode = "low_retrieval_quality_after_fallback"
	ReasonFallbackUsed                     ReasonCode = "fallback_used"
	ReasonGenerationFailed                 ReasonCode = "generation_failed"
	ReasonSelfAdmittedIgnorance            ReasonCode = "self_admitted_ignorance"
	ReasonContradictionDetected            ReasonCode = "contradiction_detected"
	ReasonLowGroundedness                  ReasonCode = "low_groundedness"
	ReasonContradictionFound               ReasonCode = "contradiction_found"
	ReasonSelfInconsistency                ReasonCode = "self_inconsistency"
	ReasonVerificationTimeout              ReasonCode = "verification_timeout"
	ReasonVerificationWarn                 ReasonCode = "verification_warn"
	ReasonHighConfidence                   ReasonCode = "high_confidence"
	ReasonModerateConfidence               ReasonCode = "moderate_confidence"
	ReasonLowConfidence                    ReasonCode = "low_confidence"
)

// RetrievalQualityReport is produced once per retrieval attempt. All
// sub-signals and RQ are clamped to [0,1]. Tier is assigned by the
// decision gate, not by the scorer.
type RetrievalQualityReport struct {
	Relevance   float64      `json:"relevance"`
	Margin      float64      `json:"margin"`
	Coverage    float64      `json:"coverage"`
	Consistency float64      `json:"consistency"`
	RQ          float64      `json:"rq"`
	Tier        Tier         `json:"tier,omitempty"`
	Reasons     []ReasonCode `json:"reasons,omitempty"`
}

type FlagKind string

const (
	FlagSelfAdmittedIgnorance FlagKind = "self_admitted_ignorance"
	FlagEvidenceConflict      FlagKind = "evidence_conflict"
)

// VerificationSignals aggregates the three post-generation checks.
type VerificationSignals struct {
	Groundedness      float64    `json:"groundedness"`
	ContradictionRate float64    `json:"contradiction_rate"`
	SelfConsistency   float64    `json:"self_consistency"`
	Flags             []FlagKind `json:"flags,omitempty"`
}

func (v VerificationSignals) HasFlag(kind FlagKind) bool {
	for _, f := range v.Flags {
		if f == kind {
			return true
		}
	}
	return false
}

// ConfidenceReport is the terminal scoring artifact. Reasons list every
// policy rule that fired, in evaluation order, not only the deciding one.
type ConfidenceReport struct {
	Confidence float64      `json:"confidence"`
	Decision   Decision     `json:"decision"`
	Reasons    []ReasonCode `json:"reasons"`
}

// DebugInfo exposes the intermediate pipeline artifacts for observability.
// When a fallback retry replaced the initial quality report, the initial
// report is retained here and is never reused for scoring.
type DebugInfo struct {
	TraceID                 string                  `json:"trace_id"`
	RetrievalQuality        RetrievalQualityReport  `json:"retrieval_quality"`
	InitialRetrievalQuality *RetrievalQualityReport `json:"initial_retrieval_quality,omitempty"`
	FallbackTriggered       bool                    `json:"fallback_triggered"`
	Verification            *VerificationSignals    `json:"verification,omitempty"`
	RerankTopScores         []float64               `json:"rerank_top_scores,omitempty"`
	SubQuestions            []string                `json:"sub_questions,omitempty"`
	LatencyMS               float64                 `json:"latency_ms"`
}

// QueryResult is the terminal artifact returned to the caller.
type QueryResult struct {
	Answer     string       `json:"answer"`
	Citations  []Citation   `json:"citations"`
	Confidence float64      `json:"confidence"`
	Decision   Decision     `json:"decision"`
	Reasons    []ReasonCode `json:"reasons"`
	Debug      DebugInfo    `json:"debug"`
}

// Trace is the persisted record of one pipeline run.
type Trace struct {
	ID                string       `json:"id"`
	Query             string       `json:"query"`
	Mode              Mode         `json:"mode"`
	RQ                float64      `json:"rq"`
	Confidence        float64      `json:"confidence"`
	Decision          Decision     `json:"decision"`
	Reasons           []ReasonCode `json:"reasons"`
	FallbackTriggered bool         `json:"fallback_triggered"`
	LatencyMS         float64      `json:"latency_ms"`
	CreatedAt         time.Time    `json:"created_at"`
}
