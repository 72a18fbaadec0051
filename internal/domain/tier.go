package domain

// TrustTier describes how a prediction was derived.
type TrustTier string

const (
	TierNewCafe             TrustTier = "NEW_CAFE"
	TierFreshData           TrustTier = "FRESH_DATA"
	TierConfidentPrediction TrustTier = "CONFIDENT_PREDICTION"
	TierModerateConfidence  TrustTier = "MODERATE_CONFIDENCE"
	TierLimitedData         TrustTier = "LIMITED_DATA"
	TierError               TrustTier = "ERROR"
)

// Confidence is the coarse trust label shown to consumers.
type Confidence string

const (
	ConfidenceNone    Confidence = "none"
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
	ConfidenceHighest Confidence = "highest"
)

// AllTiers lists every tier in decision order, ERROR last.
var AllTiers = []TrustTier{
	TierNewCafe,
	TierFreshData,
	TierConfidentPrediction,
	TierModerateConfidence,
	TierLimitedData,
	TierError,
}

// Confidence returns the label derived from the tier.
func (t TrustTier) Confidence() Confidence {
	switch t {
	case TierFreshData:
		return ConfidenceHighest
	case TierConfidentPrediction:
		return ConfidenceHigh
	case TierModerateConfidence:
		return ConfidenceMedium
	case TierLimitedData:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}
