package processing

import (
	"math"
	"time"

	"github.com/aarondl/opt/omit"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/model"
	"github.com/mpapenbr/iracehud-go/pkg/processing/car"
	"github.com/mpapenbr/iracehud-go/pkg/processing/race"
	"github.com/mpapenbr/iracehud-go/pkg/processing/sof"
	"github.com/mpapenbr/iracehud-go/pkg/processing/util"
	"github.com/mpapenbr/iracehud-go/pkg/sample"
)

type Result int

const (
	NoChange Result = iota
)

// Processor turns one raw sample into updated session state.
// It must not be called concurrently for the same SessionState.
type Processor struct {
	log           *log.Logger
	carProcessor  *car.CarProcessor
	raceProcessor *race.RaceProcessor
	maxLapTimes   int
	now           func() time.Time
}

type ProcessorOption func(proc *Processor)

func WithLogger(l *log.Logger) ProcessorOption {
	return func(proc *Processor) {
		proc.log = l
	}
}

func WithMaxLapTimes(n int) ProcessorOption {
	return func(proc *Processor) {
		proc.maxLapTimes = n
	}
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(proc *Processor) {
		proc.now = now
	}
}

func NewProcessor(opts ...ProcessorOption) *Processor {
	ret := &Processor{
		log:         log.Default().Named("processing"),
		maxLapTimes: model.DefaultMaxLapTimes,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.carProcessor = car.NewCarProcessor(car.WithLogger(ret.log.Named("car")))
	ret.raceProcessor = race.NewRaceProcessor(race.WithLogger(ret.log.Named("race")))
	return ret
}

// Process applies smp to s. Missing fields fall back to zero values.
func (p *Processor) Process(s *model.SessionState, smp sample.Sample, slowTick bool) Result {
	now := p.now()
	s.CurrentTime = now
	if smp.Int(util.SessionTick, 0) == 0 {
		return NoChange
	}

	active := smp.Bool(util.IsOnTrack, false) && smp.Bool(util.IsOnTrackCar, false)
	activated := active != s.Active
	if activated {
		if active {
			// a new session starts, drivers are read again from the metadata
			s.Reset()
			s.CurrentTime = now
		}
		p.log.Debug("activity changed", log.Bool("active", active))
	}
	s.Active = active
	s.Activated = activated
	s.ProcessedSlow = slowTick
	if !active {
		return NoChange
	}

	if slowTick {
		p.processSlowScalars(s, smp)
	}
	p.processFastScalars(s, smp)

	p.carProcessor.RefreshDrivers(s, smp)
	participants := s.PositionsTotal
	p.raceProcessor.Rank(s)
	if participants != s.PositionsTotal && len(s.Drivers) > 0 {
		s.StrengthOfField = sof.ForSession(s)
	}
	p.raceProcessor.ComputeGaps(s)

	if slowTick {
		p.captureLapTime(s, smp)
	}
	if v := smp.SessionInfoUpdate(); v != s.SessionInfoUpdate {
		p.processSessionInfo(s, smp.SessionInfo(), v)
	}
	return NoChange
}

func (p *Processor) processSlowScalars(s *model.SessionState, smp sample.Sample) {
	s.SessionNum = int32(smp.Int(util.SessionNum, 0))
	s.SessionTimeTotal = model.DurationFromSeconds(
		util.TotalTime(smp.Float(util.SessionTimeTotal, 0)))
	s.LapsTotal = util.LapCount(smp.Int(util.SessionLapsTotal, 0))
	s.Incidents = nonNegative(smp.Int(util.PlayerCarMyIncidentCount, 0))
	s.GearShiftRPM = roundUint(smp.Float(util.PlayerCarSLShiftRPM, 0))
	s.GearBlinkRPM = roundUint(smp.Float(util.PlayerCarSLBlinkRPM, 0))
}

func (p *Processor) processFastScalars(s *model.SessionState, smp sample.Sample) {
	s.SessionTime = model.DurationFromSeconds(smp.Float(util.SessionTime, 0))
	if id := smp.Int(util.PlayerCarIdx, -1); id >= 0 {
		s.PlayerCarID = omit.From(uint32(id))
	} else {
		s.PlayerCarID = omit.Val[uint32]{}
	}
	s.PlayerCarClass = int32(smp.Int(util.PlayerCarClass, 0))
	s.Lap = nonNegative(smp.Int(util.Lap, 0))
	s.RaceLaps = nonNegative(smp.Int(util.RaceLaps, 0))
	s.LapTime = model.DurationFromSeconds(smp.Float(util.LapCurrentLapTime, 0))
	s.DeltaLastTime = model.DurationFromSeconds(smp.Float(util.LapDeltaToSessionLast, 0))
	s.DeltaBestTime = model.DurationFromSeconds(smp.Float(util.LapDeltaToBestLap, 0))
	s.DeltaOptimalTime = model.DurationFromSeconds(smp.Float(util.LapDeltaToOptimalLap, 0))
	s.SessionTimeRemain = model.DurationFromSeconds(
		util.TotalTime(smp.Float(util.SessionTimeRemain, 0)))
	s.LapsRemain = int32(util.LapCount(smp.Int(util.SessionLapsRemain, 0)))
	s.LapDist = roundUint(smp.Float(util.LapDist, 0)*5) * 20
	s.Gear = int32(smp.Int(util.Gear, 0))
	s.Speed = roundUint(smp.Float(util.Speed, 0) * 3.6)
	s.RPM = roundUint(smp.Float(util.RPM, 0))
	s.Throttle = roundUint(smp.Float(util.Throttle, 0) * 100)
	s.Brake = roundUint(smp.Float(util.Brake, 0) * 100)
	s.ABSActive = smp.Bool(util.BrakeABSactive, false)
	s.SteeringAngle = int32(math.Round(smp.Float(util.SteeringWheelAngle, 0) * 100))
	s.IsLeft, s.IsRight = decodeProximity(smp.Int(util.CarLeftRight, 0))
}

// captureLapTime keeps the most recent lap times of the player.
// Two consecutive laps with identical times are recorded only once.
func (p *Processor) captureLapTime(s *model.SessionState, smp sample.Sample) {
	if s.Lap < 2 {
		return
	}
	last := model.DurationFromSeconds(smp.Float(util.LapLastLapTime, 0))
	if !last.IsPositive() || last.Equal(s.LastLapTime) {
		return
	}
	entry := model.LapTime{Lap: s.Lap - 1, Time: last}
	s.PlayerLapTimes = append([]model.LapTime{entry}, s.PlayerLapTimes...)
	if p.maxLapTimes > 0 && len(s.PlayerLapTimes) > p.maxLapTimes {
		s.PlayerLapTimes = s.PlayerLapTimes[:p.maxLapTimes]
	}
	s.LastLapTime = last
}

//nolint:whitespace // can't make both editor and linter happy
func (p *Processor) processSessionInfo(
	s *model.SessionState, info *sample.Document, version int32,
) {
	p.log.Debug("session info changed",
		log.Int32("from", s.SessionInfoUpdate), log.Int32("to", version))

	// the limit is the string "unlimited" when not set
	if limit, ok := info.IntOk("WeekendInfo.WeekendOptions.IncidentLimit"); ok && limit > 0 {
		s.IncidentLimit = uint32(limit)
	} else {
		s.IncidentLimit = 0
	}
	s.TrackID = int32(info.Int("WeekendInfo.TrackID", 0))

	results := map[uint32]model.ResultsPosition{}
	for _, session := range info.List("SessionInfo.Sessions") {
		num, ok := session.IntOk("SessionNum")
		sessionType, hasType := session.Text("SessionType")
		if !ok || !hasType || int32(num) != s.SessionNum {
			continue
		}
		s.SessionType = model.ParseSessionType(sessionType)
		results = p.carProcessor.ReadResults(session)
		s.ResultsOfficial = session.Int("ResultsOfficial", 0) != 0
	}

	added, ok := p.carProcessor.IngestRoster(s, info, results)
	if !ok {
		// keep the old version, the roster is read again on the next tick
		return
	}
	if added > 0 {
		p.log.Debug("drivers added", log.Int("added", added), log.Int("total", len(s.Drivers)))
	}
	if len(s.Drivers) > 0 {
		s.StrengthOfField = sof.ForSession(s)
	}
	s.SessionInfoUpdate = version
}

// decodeProximity maps the CarLeftRight code to left and right flags
func decodeProximity(code int64) (left, right bool) {
	switch code {
	case 2, 4, 5:
		left = true
	}
	switch code {
	case 3, 4, 6:
		right = true
	}
	return left, right
}

func roundUint(v float64) uint32 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(math.Round(v))
}

func nonNegative(v int64) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}
