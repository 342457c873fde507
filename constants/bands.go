package constants

// ConfidenceBand is the triage band shown alongside a field's confidence
// score.
type ConfidenceBand string

const (
	BandHigh              ConfidenceBand = "high"
	BandMedium            ConfidenceBand = "medium"
	BandNeedsVerification ConfidenceBand = "needs_verification"
)

// Band thresholds: >=0.8 high, >=0.6 medium, below needs verification.
const (
	HighConfidenceThreshold   = 0.8
	MediumConfidenceThreshold = 0.6
)

// BandForScore maps a confidence score onto its triage band.
func BandForScore(score float64) ConfidenceBand {
	switch {
	case score >= HighConfidenceThreshold:
		return BandHigh
	case score >= MediumConfidenceThreshold:
		return BandMedium
	default:
		return BandNeedsVerification
	}
}
