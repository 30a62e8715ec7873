// Package sof estimates the strength of field of a session.
package sof

import (
	"math"

	"github.com/mpapenbr/iracehud-go/pkg/model"
)

// BR1 is the rating spread constant of the estimator
var BR1 = 1600 / math.Ln2

// StrengthOfField computes BR1 * ln(participants / sum(exp(-rating/BR1))).
// The result is truncated. Returns 0 if there is nothing to compute.
func StrengthOfField(ratings []uint32, participants int) uint32 {
	if participants <= 0 || len(ratings) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range ratings {
		sum += math.Exp(-float64(r) / BR1)
	}
	value := BR1 * math.Log(float64(participants)/sum)
	if math.IsNaN(value) || value <= 0 {
		return 0
	}
	if value >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(value)
}

// ForSession uses the ratings of all known drivers and the number of
// participants in the player's class.
func ForSession(s *model.SessionState) uint32 {
	ratings := make([]uint32, 0, len(s.Drivers))
	for _, d := range s.Drivers {
		ratings = append(ratings, d.IRating)
	}
	return StrengthOfField(ratings, int(s.PositionsTotal))
}
