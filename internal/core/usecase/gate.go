package usecase

import "github.com/evidentia/docsqa/internal/core/domain"

// gateRetrieval assigns the pre-generation tier from the composite RQ and
// the mode-dependent thresholds. An abstain tier records its reason on the
// report so the terminal result can surface it.
func gateRetrieval(report domain.RetrievalQualityReport, high, low float64) domain.RetrievalQualityReport {
	switch {
	case report.RQ >= high:
		report.Tier = domain.TierProceed
	case report.RQ >= low:
		report.Tier = domain.TierFallback
	default:
		report.Tier = domain.TierAbstain
		report.Reasons = append(report.Reasons, domain.ReasonLowRetrievalQuality)
	}
	return report
}
