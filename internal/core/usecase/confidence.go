package usecase

import "github.com/evidentia/docsqa/internal/core/domain"

// confidencePolicy holds the terminal scoring weights and the decision
// cascade thresholds. It is built once per request from configuration plus
// the mode-dependent proceed threshold.
type confidencePolicy struct {
	alpha float64
	beta  float64
	gamma float64

	clarifyHigh          float64
	clarifyLow           float64
	contradictionCeiling float64

	groundednessWarn    float64
	contradictionWarn   float64
	selfConsistencyWarn float64

	// proceedThreshold is the gate's mode-dependent high threshold; it
	// splits self-admitted ignorance into clarify versus abstain.
	proceedThreshold float64
}

// decide computes the composite confidence and walks the ordered cascade.
// The first matching rule fixes the decision; every rule that fires
// contributes its reason, so the report explains the full picture rather
// than only the deciding condition.
func (cp confidencePolicy) decide(
	rq domain.RetrievalQualityReport,
	signals domain.VerificationSignals,
	admitsIgnorance bool,
) domain.ConfidenceReport {
	confidence := clamp01(cp.alpha*rq.RQ + cp.beta*signals.Groundedness - cp.gamma*signals.ContradictionRate)

	var reasons []domain.ReasonCode
	decision := domain.Decision("")
	fix := func(d domain.Decision) {
		if decision == "" {
			decision = d
		}
	}

	if signals.HasFlag(domain.FlagEvidenceConflict) || signals.ContradictionRate >= cp.contradictionCeiling {
		reasons = append(reasons, domain.ReasonContradictionDetected)
		fix(domain.DecisionAbstain)
	}

	if admitsIgnorance {
		reasons = append(reasons, domain.ReasonSelfAdmittedIgnorance)
		if rq.RQ >= cp.proceedThreshold {
			fix(domain.DecisionClarify)
		} else {
			fix(domain.DecisionAbstain)
		}
	}

	warned := false
	if signals.Groundedness < cp.groundednessWarn {
		reasons = append(reasons, domain.ReasonLowGroundedness)
		warned = true
	}
	if signals.ContradictionRate >= cp.contradictionWarn {
		reasons = append(reasons, domain.ReasonContradictionFound)
		warned = true
	}
	if signals.SelfConsistency < cp.selfConsistencyWarn {
		reasons = append(reasons, domain.ReasonSelfInconsistency)
		warned = true
	}
	if warned {
		reasons = append(reasons, domain.ReasonVerificationWarn)
		fix(domain.DecisionClarify)
	}

	switch {
	case confidence >= cp.clarifyHigh:
		reasons = append(reasons, domain.ReasonHighConfidence)
		fix(domain.DecisionAnswer)
	case confidence >= cp.clarifyLow:
		reasons = append(reasons, domain.ReasonModerateConfidence)
		fix(domain.DecisionClarify)
	default:
		reasons = append(reasons, domain.ReasonLowConfidence)
		fix(domain.DecisionAbstain)
	}

	return domain.ConfidenceReport{
		Confidence: confidence,
		Decision:   decision,
		Reasons:    reasons,
	}
}
