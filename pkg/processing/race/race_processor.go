package race

import (
	"math"
	"slices"

	"github.com/aarondl/opt/omit"
	"github.com/samber/lo"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/model"
)

// RaceProcessor computes positions and gaps from the per car values
type RaceProcessor struct {
	log *log.Logger
}

type RaceProcessorOption func(rp *RaceProcessor)

func WithLogger(l *log.Logger) RaceProcessorOption {
	return func(rp *RaceProcessor) {
		rp.log = l
	}
}

func NewRaceProcessor(opts ...RaceProcessorOption) *RaceProcessor {
	ret := &RaceProcessor{
		log: log.Default().Named("processing.race"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Rank orders all drivers by total completed distance and assigns
// overall and class positions.
func (p *RaceProcessor) Rank(s *model.SessionState) {
	drivers := lo.Values(s.Drivers)
	// car id as tie breaker keeps the order stable between ticks
	slices.SortFunc(drivers, func(a, b *model.Driver) int {
		if a.TotalCompleted != b.TotalCompleted {
			if a.TotalCompleted > b.TotalCompleted {
				return -1
			}
			return 1
		}
		return int(a.CarID) - int(b.CarID)
	})

	playerID, hasPlayer := s.PlayerCarID.Get()
	classCounter := map[int32]uint32{}
	s.DriverPositions = make([]uint32, 0, len(drivers))
	s.PlayerClassDriverPositions = make([]uint32, 0, len(drivers))
	s.Position = 0
	s.ClassPosition = 0
	for i, d := range drivers {
		classCounter[d.CarClassID]++
		d.Position = uint32(i + 1)
		d.ClassPosition = classCounter[d.CarClassID]
		s.DriverPositions = append(s.DriverPositions, d.CarID)
		if d.CarClassID == s.PlayerCarClass {
			s.PlayerClassDriverPositions = append(s.PlayerClassDriverPositions, d.CarID)
		}
		if hasPlayer && d.CarID == playerID {
			s.Position = d.Position
			s.ClassPosition = d.ClassPosition
		}
	}
	s.PositionsTotal = uint32(len(s.PlayerClassDriverPositions))
	s.FastestLap = p.fastestLap(s)
}

// the fastest valid lap within the player's class
func (p *RaceProcessor) fastestLap(s *model.SessionState) omit.Val[model.FastestLap] {
	ret := omit.Val[model.FastestLap]{}
	for _, carID := range s.PlayerClassDriverPositions {
		d := s.Drivers[carID]
		if !d.BestLapTime.IsPositive() {
			continue
		}
		if cur, ok := ret.Get(); ok && !d.BestLapTime.Less(cur.Time) {
			continue
		}
		ret.Set(model.FastestLap{CarID: d.CarID, Time: d.BestLapTime})
	}
	return ret
}

// ComputeGaps sets leader, player and relative gaps of all drivers.
// Nothing is computed until at least one driver is ranked and the player is known.
func (p *RaceProcessor) ComputeGaps(s *model.SessionState) {
	if len(s.DriverPositions) == 0 {
		return
	}
	player, ok := s.Player()
	if !ok {
		return
	}
	var leader *model.Driver
	for _, carID := range s.PlayerClassDriverPositions {
		if d := s.Drivers[carID]; d.ClassPosition == 1 {
			leader = d
			break
		}
	}

	for _, d := range s.Drivers {
		d.IsPlayer = d.CarID == player.CarID
		d.IsLeader = leader != nil && d.CarID == leader.CarID
		if leader != nil {
			d.LeaderGapLaps, d.LeaderGap = LeaderGap(leader, d)
		}
		d.PlayerGapLaps, d.PlayerGap = PlayerGap(player, d)
		d.PlayerRelativeGap = RelativeGap(player, d)
	}
}

// LeaderGap returns the gap of d to leader either as whole laps
// (time gap zero) or as time when less than a lap apart.
// A negative lap count means d is ahead of leader.
func LeaderGap(leader, d *model.Driver) (laps int32, gap model.SignedDuration) {
	diff := leader.TotalCompleted - d.TotalCompleted
	if math.Abs(diff) >= 1 {
		return int32(diff), model.ZeroDuration
	}
	gap = leader.EstTime.Sub(d.EstTime)
	if gap.IsNegative() {
		// the leader already crossed the line, d did not
		gap = leader.EstTime.Add(d.CarClassEstLapTime).Sub(d.EstTime)
	}
	return 0, gap
}

// PlayerGap is the gap of d relative to the player.
// Positive values mean d is behind the player.
func PlayerGap(player, d *model.Driver) (laps int32, gap model.SignedDuration) {
	diff := player.TotalCompleted - d.TotalCompleted
	if math.Abs(diff) >= 1 {
		return int32(diff), model.ZeroDuration
	}
	raw := player.EstTime.Sub(d.EstTime)
	if diff >= 0 {
		// d behind the player
		if raw.IsNegative() {
			return 0, player.EstTime.Add(d.CarClassEstLapTime).Sub(d.EstTime)
		}
		return 0, raw
	}
	// d ahead of the player
	if !raw.IsNegative() {
		return 0, d.EstTime.Add(d.CarClassEstLapTime).Sub(player.EstTime)
	}
	return 0, raw
}

// RelativeGap is the shortest distance between d and the player on track
// expressed as time, ignoring complete laps. Positive values mean d is ahead.
func RelativeGap(player, d *model.Driver) model.SignedDuration {
	return player.CarClassEstLapTime.Scale(WrappedDelta(player.LapDistPct, d.LapDistPct))
}

// WrappedDelta returns other-ref wrapped into [-0.5, 0.5]
func WrappedDelta(ref, other float64) float64 {
	delta := other - ref
	if delta > 0.5 {
		delta--
	} else if delta < -0.5 {
		delta++
	}
	return delta
}
