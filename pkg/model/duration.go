package model

import (
	"fmt"
	"math"
	"time"
)

// SignedDuration is a non-negative magnitude combined with a sign.
// Comparison and arithmetic always work on the signed value.
// A zero magnitude is always stored as positive.
type SignedDuration struct {
	negative  bool
	magnitude time.Duration
}

var (
	ZeroDuration = SignedDuration{}
	MaxDuration  = SignedDuration{magnitude: math.MaxInt64}
)

func newSigned(negative bool, magnitude time.Duration) SignedDuration {
	if magnitude == 0 {
		negative = false
	}
	return SignedDuration{negative: negative, magnitude: magnitude}
}

// DurationFromSeconds converts a (possibly negative) seconds value.
// NaN yields ZeroDuration, values out of range saturate at MaxDuration.
func DurationFromSeconds(secs float64) SignedDuration {
	if math.IsNaN(secs) {
		return ZeroDuration
	}
	abs := math.Abs(secs)
	if abs >= float64(math.MaxInt64)/float64(time.Second) {
		return newSigned(secs < 0, MaxDuration.magnitude)
	}
	return newSigned(secs < 0, time.Duration(math.Round(abs*float64(time.Second))))
}

func DurationFromSeconds32(secs float32) SignedDuration {
	return DurationFromSeconds(float64(secs))
}

func DurationFrom(d time.Duration) SignedDuration {
	if d < 0 {
		if d == math.MinInt64 {
			return newSigned(true, MaxDuration.magnitude)
		}
		return newSigned(true, -d)
	}
	return newSigned(false, d)
}

// Duration returns the signed value as time.Duration
func (s SignedDuration) Duration() time.Duration {
	if s.negative {
		return -s.magnitude
	}
	return s.magnitude
}

// Magnitude returns the unsigned part
func (s SignedDuration) Magnitude() time.Duration {
	return s.magnitude
}

func (s SignedDuration) Seconds() float64 {
	return s.Duration().Seconds()
}

func (s SignedDuration) Seconds32() float32 {
	return float32(s.Seconds())
}

func (s SignedDuration) AbsSeconds() float64 {
	return s.magnitude.Seconds()
}

// WholeSeconds returns the signed number of whole seconds, truncated toward zero
func (s SignedDuration) WholeSeconds() int64 {
	secs := int64(s.magnitude / time.Second)
	if s.negative {
		return -secs
	}
	return secs
}

func (s SignedDuration) SubsecMillis() uint32 {
	return uint32((s.magnitude % time.Second) / time.Millisecond)
}

func (s SignedDuration) IsPositive() bool { return !s.negative && s.magnitude > 0 }
func (s SignedDuration) IsNegative() bool { return s.negative }
func (s SignedDuration) IsZero() bool     { return s.magnitude == 0 }

func (s SignedDuration) Neg() SignedDuration {
	return newSigned(!s.negative, s.magnitude)
}

func (s SignedDuration) Abs() SignedDuration {
	return newSigned(false, s.magnitude)
}

func (s SignedDuration) Add(o SignedDuration) SignedDuration {
	return DurationFrom(saturatingAdd(s.Duration(), o.Duration()))
}

func (s SignedDuration) Sub(o SignedDuration) SignedDuration {
	return s.Add(o.Neg())
}

// Scale multiplies by a float factor, e.g. a lap fraction
func (s SignedDuration) Scale(factor float64) SignedDuration {
	return DurationFromSeconds(s.Seconds() * factor)
}

// Compare returns -1, 0 or +1 comparing the signed values
func (s SignedDuration) Compare(o SignedDuration) int {
	a, b := s.Duration(), o.Duration()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (s SignedDuration) Equal(o SignedDuration) bool { return s.Compare(o) == 0 }
func (s SignedDuration) Less(o SignedDuration) bool  { return s.Compare(o) < 0 }

// String formats as sign, whole seconds and milliseconds, e.g. "+1.234"
func (s SignedDuration) String() string {
	sign := "+"
	if s.negative {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%03d", sign, int64(s.magnitude/time.Second), s.SubsecMillis())
}

func saturatingAdd(a, b time.Duration) time.Duration {
	sum := a + b
	if a > 0 && b > 0 && sum < 0 {
		return math.MaxInt64
	}
	if a < 0 && b < 0 && sum >= 0 {
		return -math.MaxInt64
	}
	return sum
}
