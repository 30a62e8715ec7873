// Package emitter decides which derived values are published to subscribers.
package emitter

import (
	"cmp"
	"slices"

	"github.com/mpapenbr/iracehud-go/pkg/model"
)

// Readiness describes when a signal may be evaluated
type Readiness int

const (
	ReadyActive      Readiness = iota // session active
	ReadyAlways                       // no precondition
	ReadyActiveSlow                   // active and slow path processed
	ReadyDrivers                      // active and drivers known
	ReadyDriversSlow                  // active, drivers known and slow path processed
	ReadyPlayerClass                  // active and player class name known
)

func (r Readiness) String() string {
	switch r {
	case ReadyActive:
		return "active"
	case ReadyAlways:
		return "always"
	case ReadyActiveSlow:
		return "active+slow"
	case ReadyDrivers:
		return "active+drivers"
	case ReadyDriversSlow:
		return "active+drivers+slow"
	case ReadyPlayerClass:
		return "active+class"
	default:
		return "unknown"
	}
}

//nolint:exhaustive // default covers ReadyActive
func (r Readiness) ready(s *model.SessionState) bool {
	switch r {
	case ReadyAlways:
		return true
	case ReadyActiveSlow:
		return s.Active && s.ProcessedSlow
	case ReadyDrivers:
		return s.Active && len(s.Drivers) > 0
	case ReadyDriversSlow:
		return s.Active && len(s.Drivers) > 0 && s.ProcessedSlow
	case ReadyPlayerClass:
		return s.Active && s.PlayerCarClassName != ""
	default:
		return s.Active
	}
}

// evalContext carries the engine settings a value function may need
type evalContext struct {
	window      Window
	maxLapTimes int
}

type signal struct {
	name      string
	readiness Readiness
	forced    bool
	value     func(s *model.SessionState, ctx evalContext) any
	equal     func(a, b any) bool
}

// SignalInfo describes a signal of the vocabulary
type SignalInfo struct {
	Name      string
	Readiness Readiness
	Forced    bool
}

func scalarEqual(a, b any) bool { return a == b }

func sliceEqual[T comparable](a, b any) bool {
	x, okX := a.([]T)
	y, okY := b.([]T)
	return okX && okY && slices.Equal(x, y)
}

//nolint:funlen // signal table
func buildSignals() []signal {
	scalar := func(
		name string, r Readiness, fn func(s *model.SessionState) any,
	) signal {
		return signal{
			name: name, readiness: r, equal: scalarEqual,
			value: func(s *model.SessionState, _ evalContext) any { return fn(s) },
		}
	}
	return []signal{
		scalar("active", ReadyAlways, func(s *model.SessionState) any { return s.Active }),
		scalar("current_time", ReadyAlways, func(s *model.SessionState) any {
			return s.CurrentTime.Format("15:04")
		}),
		scalar("session_time", ReadyActive, func(s *model.SessionState) any {
			return formatClock(s.SessionTime)
		}),
		scalar("session_time_total", ReadyActiveSlow, func(s *model.SessionState) any {
			return formatSessionLength(s.SessionTimeTotal)
		}),
		scalar("session_state", ReadyActive, func(s *model.SessionState) any {
			return formatSessionState(s)
		}),
		scalar("session_type", ReadyActive, func(s *model.SessionState) any {
			return s.SessionType.String()
		}),
		scalar("laps_total", ReadyActiveSlow, func(s *model.SessionState) any { return s.LapsTotal }),
		scalar("lap", ReadyActive, func(s *model.SessionState) any { return s.Lap }),
		scalar("race_laps", ReadyActiveSlow, func(s *model.SessionState) any { return s.RaceLaps }),
		scalar("lap_time", ReadyActive, func(s *model.SessionState) any {
			if !s.LapTime.IsPositive() {
				return 0.0
			}
			return s.LapTime.Seconds()
		}),
		scalar("delta_last_time", ReadyActive, func(s *model.SessionState) any {
			return FormatDelta(s.DeltaLastTime)
		}),
		scalar("delta_best_time", ReadyActive, func(s *model.SessionState) any {
			return FormatDelta(s.DeltaBestTime)
		}),
		scalar("delta_optimal_time", ReadyActive, func(s *model.SessionState) any {
			return FormatDelta(s.DeltaOptimalTime)
		}),
		scalar("incidents", ReadyActiveSlow, func(s *model.SessionState) any { return s.Incidents }),
		scalar("incident_limit", ReadyActiveSlow, func(s *model.SessionState) any {
			return s.IncidentLimit
		}),
		scalar("gear_shift_rpm", ReadyActiveSlow, func(s *model.SessionState) any {
			return s.GearShiftRPM
		}),
		scalar("gear_blink_rpm", ReadyActiveSlow, func(s *model.SessionState) any {
			return s.GearBlinkRPM
		}),
		scalar("gear", ReadyActive, func(s *model.SessionState) any { return formatGear(s.Gear) }),
		scalar("speed", ReadyActive, func(s *model.SessionState) any { return s.Speed }),
		scalar("rpm", ReadyActive, func(s *model.SessionState) any { return s.RPM }),
		scalar("telemetry", ReadyActive, func(s *model.SessionState) any {
			return Telemetry{
				TS:        s.SessionTime.Seconds(),
				Throttle:  s.Throttle,
				Brake:     s.Brake,
				ABSActive: s.ABSActive,
			}
		}),
		scalar("telemetry_reference", ReadyActive, func(s *model.SessionState) any {
			return TelemetryReference{LapDist: s.LapDist, Throttle: s.Throttle, Brake: s.Brake}
		}),
		scalar("proximity", ReadyActive, func(s *model.SessionState) any {
			return Proximity{IsLeft: s.IsLeft, IsRight: s.IsRight}
		}),
		scalar("position", ReadyActive, func(s *model.SessionState) any { return s.Position }),
		scalar("positions_total", ReadyDriversSlow, func(s *model.SessionState) any {
			return s.PositionsTotal
		}),
		scalar("strength_of_field", ReadyDriversSlow, func(s *model.SessionState) any {
			return s.StrengthOfField
		}),
		scalar("track_id", ReadyActiveSlow, func(s *model.SessionState) any { return s.TrackID }),
		scalar("player_car_class", ReadyPlayerClass, func(s *model.SessionState) any {
			return s.PlayerCarClassName
		}),
		scalar("fastest_lap", ReadyActive, func(s *model.SessionState) any {
			return formatFastestLap(s)
		}),
		scalar("gap_next", ReadyDrivers, func(s *model.SessionState) any {
			return formatGap(s, int(s.Position)-1, false)
		}),
		scalar("gap_prev", ReadyDrivers, func(s *model.SessionState) any {
			return formatGap(s, int(s.Position)+1, false)
		}),
		{
			name: "track_map", readiness: ReadyDrivers, equal: sliceEqual[TrackMapEntry],
			value: func(s *model.SessionState, _ evalContext) any { return trackMap(s) },
		},
		{
			name: "standings", readiness: ReadyDriversSlow, forced: true,
			equal: sliceEqual[StandingsEntry],
			value: func(s *model.SessionState, ctx evalContext) any {
				return standings(s, ctx.window)
			},
		},
		{
			name: "relative", readiness: ReadyDriversSlow, equal: sliceEqual[RelativeEntry],
			value: func(s *model.SessionState, _ evalContext) any { return relative(s) },
		},
		{
			name: "player_lap_times", readiness: ReadyActiveSlow, equal: sliceEqual[LapTimeEntry],
			value: func(s *model.SessionState, ctx evalContext) any {
				return playerLapTimes(s, ctx.maxLapTimes)
			},
		},
	}
}

func formatFastestLap(s *model.SessionState) string {
	fl, ok := s.FastestLap.Get()
	if !ok {
		return "-:--:--"
	}
	d, ok := s.Drivers[fl.CarID]
	if !ok {
		return "-:--:--"
	}
	return FormatLapTime(fl.Time) + " (" + d.UserName + ")"
}

var (
	signals     = buildSignals()
	signalIndex = func() map[string]int {
		ret := make(map[string]int, len(signals))
		for i, sig := range signals {
			ret[sig.name] = i
		}
		return ret
	}()
)

// Signals returns the vocabulary sorted by name
func Signals() []SignalInfo {
	ret := make([]SignalInfo, 0, len(signals))
	for _, sig := range signals {
		ret = append(ret, SignalInfo{Name: sig.name, Readiness: sig.readiness, Forced: sig.forced})
	}
	slices.SortFunc(ret, func(a, b SignalInfo) int { return cmp.Compare(a.Name, b.Name) })
	return ret
}

// IsKnown reports whether name is part of the vocabulary
func IsKnown(name string) bool {
	_, ok := signalIndex[name]
	return ok
}
