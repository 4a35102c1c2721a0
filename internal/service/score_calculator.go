package service

import (
	"math"

	"github.com/stroke-code-server/internal/domain"
)

// NihssTotal returns the sum of the 15 NIHSS subscores
func NihssTotal(a domain.NihssAssessment) int {
	total := 0
	for _, s := range a.Subscores() {
		total += s
	}
	return total
}

// AspectsScore returns the number of regions without early ischemic change, in [0,10]
func AspectsScore(a domain.AspectsAssessment) int {
	score := 0
	for _, intact := range a.Flags() {
		if intact {
			score++
		}
	}
	return score
}

// rtPA dosing constants (alteplase, 0.9 mg/kg, 10% bolus)
const (
	rtpaMgPerKg       = 0.9
	rtpaMaxTotalMg    = 90.0
	rtpaBolusFraction = 0.1
)

// RtpaDose computes the weight-based alteplase dose. It returns nil when the
// weight is missing, zero, negative or not a number: dosing stays advisory
// until a usable weight is known.
func RtpaDose(weightKg *float64) *domain.RtpaDose {
	if weightKg == nil {
		return nil
	}
	w := *weightKg
	if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return nil
	}

	total := math.Min(w*rtpaMgPerKg, rtpaMaxTotalMg)
	bolus := total * rtpaBolusFraction
	infusion := total * (1 - rtpaBolusFraction)

	return &domain.RtpaDose{
		Total:    roundOneDecimal(total),
		Bolus:    roundOneDecimal(bolus),
		Infusion: roundOneDecimal(infusion),
	}
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
