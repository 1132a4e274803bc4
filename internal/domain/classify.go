package domain

// SigClass is the three-level risk class derived from the significance score.
type SigClass string

const (
	SigLow      SigClass = "Low"
	SigModerate SigClass = "Moderate"
	SigHigh     SigClass = "High"
)

// NullSig stands in for a missing significance score. It is negative, so a
// missing score classifies as Low.
const NullSig = -1

const (
	moderateSigThreshold = 100
	highSigThreshold     = 500
)

// ClassifySig maps a significance score onto half-open intervals:
// (-inf, 100) Low, [100, 500) Moderate, [500, +inf) High.
func ClassifySig(sig int) SigClass {
	switch {
	case sig < moderateSigThreshold:
		return SigLow
	case sig < highSigThreshold:
		return SigModerate
	default:
		return SigHigh
	}
}

// SigOrNull returns the score or NullSig when it is missing.
func SigOrNull(sig *int) int {
	if sig == nil {
		return NullSig
	}
	return *sig
}
