package emitter

import (
	"fmt"
	"math"
	"time"

	"github.com/hako/durafmt"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/iracehud-go/pkg/model"
)

const (
	noDelta   = "–"
	noLapTime = "–:--:--"
	noGap     = "-"
)

// FormatDelta renders a lap delta with two decimals below 10s and one decimal
// below 100s. Larger deltas are not shown.
func FormatDelta(d model.SignedDuration) string {
	v := float64(d.Seconds32())
	switch {
	case v >= 100 || v <= -100:
		return noDelta
	case v >= 10:
		return fmt.Sprintf("+%02d.%d", int32(v), fraction(v, 10, 9))
	case v <= -10:
		return fmt.Sprintf("-%02d.%d", int32(-v), fraction(v, 10, 9))
	case v > 0:
		return fmt.Sprintf("+%d.%02d", int32(v), fraction(v, 100, 99))
	case v < 0:
		return fmt.Sprintf("-%d.%02d", int32(-v), fraction(v, 100, 99))
	default:
		return "0.00"
	}
}

// FormatLapTime renders positive lap times as m:ss.mmm
func FormatLapTime(d model.SignedDuration) string {
	if !d.IsPositive() {
		return noLapTime
	}
	secs := d.WholeSeconds()
	return fmt.Sprintf("%d:%02d.%03d", secs/60, secs%60, d.SubsecMillis())
}

// FormatIRating renders a rating in thousands, e.g. 1534 as "1.5k"
func FormatIRating(ir uint32) string {
	return decimal.New(int64(ir), -3).StringFixed(1) + "k"
}

// formatGap renders the gap of the driver at the given overall position,
// either to the class leader or to the player.
func formatGap(s *model.SessionState, position int, toLeader bool) string {
	if position < 1 || position > len(s.DriverPositions) {
		return noGap
	}
	d, ok := s.Drivers[s.DriverPositions[position-1]]
	if !ok {
		return noGap
	}
	gap, laps := d.PlayerGap, d.PlayerGapLaps
	if toLeader {
		gap, laps = d.LeaderGap, d.LeaderGapLaps
	}
	if laps != 0 {
		if laps < 0 {
			laps = -laps
		}
		return fmt.Sprintf("L%d", laps)
	}
	return tenths(gap)
}

func formatRelativeGap(d *model.Driver) string {
	if d.PlayerRelativeGap.IsZero() {
		return noGap
	}
	return tenths(d.PlayerRelativeGap)
}

// tenths renders the absolute value with one decimal
func tenths(d model.SignedDuration) string {
	v := float64(float32(d.AbsSeconds()))
	return fmt.Sprintf("%d.%d", int32(v), fraction(v, 10, 9))
}

// fraction returns the rounded fractional part of |v| scaled by scale, capped at limit
func fraction(v, scale float64, limit int) int {
	_, frac := math.Modf(math.Abs(v))
	return min(int(math.Round(frac*scale)), limit)
}

// formatClock renders whole seconds as HH:MM:SS
func formatClock(d model.SignedDuration) string {
	secs := int64(d.Magnitude() / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// formatRemaining renders the time left as h:mm:ss or mm:ss
func formatRemaining(d model.SignedDuration) string {
	secs := int64(d.Magnitude() / time.Second)
	hh, mm, ss := secs/3600, (secs%3600)/60, secs%60
	if hh > 0 {
		return fmt.Sprintf("%d:%02d:%02d left", hh, mm, ss)
	}
	return fmt.Sprintf("%02d:%02d left", mm, ss)
}

// formatSessionLength renders the total session length in words.
func formatSessionLength(d model.SignedDuration) string {
	total := d.Magnitude().Truncate(time.Second)
	if total == 0 {
		return "0 seconds"
	}
	return durafmt.Parse(total).String()
}

func formatSessionState(s *model.SessionState) string {
	if s.LapsTotal == 0 {
		if !s.SessionTimeRemain.IsPositive() {
			return "Last lap"
		}
		return formatRemaining(s.SessionTimeRemain)
	}
	switch s.LapsRemain {
	case 0:
		return ""
	case 1:
		return "Last lap"
	default:
		return fmt.Sprintf("%d laps left", s.LapsRemain)
	}
}

func formatGear(gear int32) string {
	switch gear {
	case -1:
		return "R"
	case 0:
		return "N"
	default:
		return fmt.Sprintf("%d", gear)
	}
}
