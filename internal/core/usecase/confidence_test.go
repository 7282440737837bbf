package usecase

import (
	"math"
	"testing"

	"github.com/evidentia/docsqa/internal/core/domain"
)

func testPolicy() confidencePolicy {
	return confidencePolicy{
		alpha:                0.5,
		beta:                 0.4,
		gamma:                0.3,
		clarifyHigh:          0.6,
		clarifyLow:           0.35,
		contradictionCeiling: 0.6,
		groundednessWarn:     0.5,
		contradictionWarn:    0.4,
		selfConsistencyWarn:  0.4,
		proceedThreshold:     0.55,
	}
}

func cleanSignals() domain.VerificationSignals {
	return domain.VerificationSignals{Groundedness: 0.9, ContradictionRate: 0.0, SelfConsistency: 0.8}
}

func TestDecideConfidenceFormula(t *testing.T) {
	rq := domain.RetrievalQualityReport{RQ: 0.8}
	signals := domain.VerificationSignals{Groundedness: 0.9, ContradictionRate: 0.2, SelfConsistency: 0.8}

	report := testPolicy().decide(rq, signals, false)
	want := 0.5*0.8 + 0.4*0.9 - 0.3*0.2
	if math.Abs(report.Confidence-want) > 1e-9 {
		t.Fatalf("confidence = %v, want %v", report.Confidence, want)
	}
}

func TestDecideHighConfidenceAnswers(t *testing.T) {
	report := testPolicy().decide(domain.RetrievalQualityReport{RQ: 0.8}, cleanSignals(), false)
	if report.Decision != domain.DecisionAnswer {
		t.Fatalf("decision = %s, want answer", report.Decision)
	}
	if !hasReason(report.Reasons, domain.ReasonHighConfidence) {
		t.Fatalf("missing high_confidence in %v", report.Reasons)
	}
}

func TestDecideModerateConfidenceClarifies(t *testing.T) {
	signals := domain.VerificationSignals{Groundedness: 0.55, ContradictionRate: 0.1, SelfConsistency: 0.7}
	report := testPolicy().decide(domain.RetrievalQualityReport{RQ: 0.5}, signals, false)
	if report.Decision != domain.DecisionClarify {
		t.Fatalf("decision = %s, want clarify", report.Decision)
	}
	if !hasReason(report.Reasons, domain.ReasonModerateConfidence) {
		t.Fatalf("missing moderate_confidence in %v", report.Reasons)
	}
}

func TestDecideLowConfidenceAbstains(t *testing.T) {
	signals := domain.VerificationSignals{Groundedness: 0.55, ContradictionRate: 0.3, SelfConsistency: 0.9}
	report := testPolicy().decide(domain.RetrievalQualityReport{RQ: 0.2}, signals, false)
	if report.Decision != domain.DecisionAbstain {
		t.Fatalf("decision = %s, want abstain", report.Decision)
	}
	if !hasReason(report.Reasons, domain.ReasonLowConfidence) {
		t.Fatalf("missing low_confidence in %v", report.Reasons)
	}
}

func TestDecideEvidenceConflictOverridesEverything(t *testing.T) {
	signals := cleanSignals()
	signals.Flags = []domain.FlagKind{domain.FlagEvidenceConflict}

	report := testPolicy().decide(domain.RetrievalQualityReport{RQ: 0.9}, signals, false)
	if report.Decision != domain.DecisionAbstain {
		t.Fatalf("evidence conflict must abstain, got %s", report.Decision)
	}
	if !hasReason(report.Reasons, domain.ReasonContradictionDetected) {
		t.Fatalf("missing contradiction_detected in %v", report.Reasons)
	}
}

func TestDecideContradictionCeilingAbstains(t *testing.T) {
	signals := domain.VerificationSignals{Groundedness: 0.95, ContradictionRate: 0.7, SelfConsistency: 0.9}
	report := testPolicy().decide(domain.RetrievalQualityReport{RQ: 0.9}, signals, false)
	if report.Decision != domain.DecisionAbstain {
		t.Fatalf("contradiction above ceiling must abstain, got %s", report.Decision)
	}
}

func TestDecideIgnoranceSplitsOnRetrievalQuality(t *testing.T) {
	highRQ := testPolicy().decide(domain.RetrievalQualityReport{RQ: 0.7}, cleanSignals(), true)
	if highRQ.Decision != domain.DecisionClarify {
		t.Fatalf("ignorance with strong retrieval should clarify, got %s", highRQ.Decision)
	}

	lowRQ := testPolicy().decide(domain.RetrievalQualityReport{RQ: 0.4}, cleanSignals(), true)
	if lowRQ.Decision != domain.DecisionAbstain {
		t.Fatalf("ignorance with weak retrieval should abstain, got %s", lowRQ.Decision)
	}
	for _, r := range []domain.ConfidenceReport{highRQ, lowRQ} {
		if !hasReason(r.Reasons, domain.ReasonSelfAdmittedIgnorance) {
			t.Fatalf("missing self_admitted_ignorance in %v", r.Reasons)
		}
	}
}

func TestDecideWarnLevelClarifies(t *testing.T) {
	signals := domain.VerificationSignals{Groundedness: 0.45, ContradictionRate: 0.1, SelfConsistency: 0.9}
	report := testPolicy().decide(domain.RetrievalQualityReport{RQ: 0.9}, signals, false)
	if report.Decision != domain.DecisionClarify {
		t.Fatalf("warn-level groundedness must clarify, got %s", report.Decision)
	}
	if !hasReason(report.Reasons, domain.ReasonLowGroundedness) || !hasReason(report.Reasons, domain.ReasonVerificationWarn) {
		t.Fatalf("missing warn reasons in %v", report.Reasons)
	}
}

func TestDecideAccumulatesAllFiredReasons(t *testing.T) {
	// Conflict flag, ignorance, and a warn all fire; the conflict rule
	// decides but every reason is reported.
	signals := domain.VerificationSignals{
		Groundedness:      0.2,
		ContradictionRate: 0.7,
		SelfConsistency:   0.1,
		Flags:             []domain.FlagKind{domain.FlagEvidenceConflict},
	}
	report := testPolicy().decide(domain.RetrievalQualityReport{RQ: 0.3}, signals, true)

	if report.Decision != domain.DecisionAbstain {
		t.Fatalf("decision = %s, want abstain", report.Decision)
	}
	for _, want := range []domain.ReasonCode{
		domain.ReasonContradictionDetected,
		domain.ReasonSelfAdmittedIgnorance,
		domain.ReasonLowGroundedness,
		domain.ReasonContradictionFound,
		domain.ReasonSelfInconsistency,
		domain.ReasonVerificationWarn,
	} {
		if !hasReason(report.Reasons, want) {
			t.Fatalf("missing %s in %v", want, report.Reasons)
		}
	}
}

func TestDecideConfidenceClamped(t *testing.T) {
	signals := domain.VerificationSignals{Groundedness: 0, ContradictionRate: 1, SelfConsistency: 1}
	report := testPolicy().decide(domain.RetrievalQualityReport{RQ: 0}, signals, false)
	if report.Confidence != 0 {
		t.Fatalf("confidence must clamp at 0, got %v", report.Confidence)
	}
}
