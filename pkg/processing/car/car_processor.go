package car

import (
	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/model"
	"github.com/mpapenbr/iracehud-go/pkg/processing/util"
	"github.com/mpapenbr/iracehud-go/pkg/sample"
)

const paceCarName = "Pace Car"

// CarProcessor maintains the driver roster and the per car values
type CarProcessor struct {
	log *log.Logger
}

type CarProcessorOption func(cp *CarProcessor)

func WithLogger(l *log.Logger) CarProcessorOption {
	return func(cp *CarProcessor) {
		cp.log = l
	}
}

func NewCarProcessor(opts ...CarProcessorOption) *CarProcessor {
	ret := &CarProcessor{
		log: log.Default().Named("processing.car"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// RefreshDrivers updates the per tick values of all known drivers
func (p *CarProcessor) RefreshDrivers(s *model.SessionState, smp sample.Sample) {
	for carID, d := range s.Drivers {
		idx := int(carID)
		pct := smp.FloatAt(util.CarIdxLapDistPct, idx, 0)
		if pct < 0 {
			pct = 0
		}
		completed := util.LapCount(smp.IntAt(util.CarIdxLapCompleted, idx, 0))
		started := util.LapCount(smp.IntAt(util.CarIdxLap, idx, 0))
		if started == 0 {
			completed = 0
		}
		d.LapDistPct = pct
		d.LapsCompleted = completed
		d.TotalCompleted = float64(completed) + pct
		d.EstTime = model.DurationFromSeconds(smp.FloatAt(util.CarIdxEstTime, idx, 0))

		result, hasResult := d.Result.Get()
		d.BestLapTime = model.DurationFromSeconds(
			smp.FloatAt(util.CarIdxBestLapTime, idx, 0))
		if !d.BestLapTime.IsPositive() && hasResult && result.FastestTime.IsPositive() {
			d.BestLapTime = result.FastestTime
		}
		d.LastLapTime = model.DurationFromSeconds(
			smp.FloatAt(util.CarIdxLastLapTime, idx, 0))
		if !d.LastLapTime.IsPositive() && hasResult && result.LastTime.IsPositive() {
			d.LastLapTime = result.LastTime
		}

		surface := model.TrackSurface(
			smp.IntAt(util.CarIdxTrackSurface, idx, int64(model.SurfaceOnTrack)))
		d.IsInPits = surface.InPits()
		d.IsOffTrack = surface.OffTrack()
		d.IsOffWorld = surface.OffWorld()
	}
}

// ReadResults collects the result positions of the current session.
//
//nolint:whitespace // can't make both editor and linter happy
func (p *CarProcessor) ReadResults(
	session *sample.Document,
) map[uint32]model.ResultsPosition {
	ret := map[uint32]model.ResultsPosition{}
	for _, entry := range session.List("ResultsPositions") {
		carID, ok := entry.IntOk("CarIdx")
		if !ok {
			p.log.Warn("result entry without CarIdx")
			continue
		}
		ret[uint32(carID)] = model.ResultsPosition{
			CarID:         uint32(carID),
			Position:      uint32(entry.Int("Position", 0)),
			ClassPosition: uint32(entry.Int("ClassPosition", 0) + 1),
			FastestTime:   model.DurationFromSeconds(entry.Float("FastestTime", 0)),
			LastTime:      model.DurationFromSeconds(entry.Float("LastTime", 0)),
			ReasonOutID:   int32(entry.Int("ReasonOutID", 0)),
		}
	}
	return ret
}

// IngestRoster adds new drivers found in the session info.
// Known drivers keep their identity, only result data is updated.
// Returns the number of drivers added and false if the roster was missing.
//
//nolint:whitespace,funlen,cyclop // can't make both editor and linter happy
func (p *CarProcessor) IngestRoster(
	s *model.SessionState,
	info *sample.Document,
	results map[uint32]model.ResultsPosition,
) (added int, ok bool) {
	if !info.Has("DriverInfo.Drivers") {
		p.log.Error("no drivers found in session info")
		return 0, false
	}
	playerID, hasPlayer := s.PlayerCarID.Get()
	for _, entry := range info.List("DriverInfo.Drivers") {
		carIdx, found := entry.IntOk("CarIdx")
		if !found {
			p.log.Error("driver entry without CarIdx")
			continue
		}
		carID := uint32(carIdx)
		userName, found := entry.Text("UserName")
		if !found {
			p.log.Error("driver entry without UserName", log.Uint32("carIdx", carID))
			continue
		}
		teamName, found := entry.Text("TeamName")
		if !found {
			p.log.Error("driver entry without TeamName", log.Uint32("carIdx", carID))
			continue
		}
		if userName == paceCarName {
			continue
		}
		if hasPlayer && carID == playerID {
			p.readPlayerCarClassName(s, entry)
		}

		req := requiredFields{entry: entry, carID: carID, log: p.log}
		carNumber := req.text("CarNumber")
		classID := req.integer("CarClassID")
		irating := req.integer("IRating")
		lic := req.text("LicString")
		estLapTime := req.float("CarClassEstLapTime")
		color := req.integer("CarClassColor")
		if req.missing {
			continue
		}

		d, known := s.Drivers[carID]
		if !known {
			d = model.NewDriverBuilder(carID).
				UserName(userName).
				TeamName(teamName).
				CarNumber(carNumber).
				CarClass(int32(classID), model.DurationFromSeconds(estLapTime)).
				CarClassColor(uint32(color)).
				PlayerClass(int32(classID) == s.PlayerCarClass).
				IRating(uint32(irating)).
				License(lic).
				Build()
			s.Drivers[carID] = d
			added++
		}
		d.Result.Unset()
		d.IsOut = false
		if rp, found := results[carID]; found {
			d.Result.Set(rp)
			d.IsOut = rp.ReasonOutID != 0
		}
	}
	return added, true
}

// The short class name is missing in AI sessions, the screen name is used then.
//
//nolint:whitespace // can't make both editor and linter happy
func (p *CarProcessor) readPlayerCarClassName(
	s *model.SessionState, entry *sample.Document,
) {
	if name, ok := entry.Text("CarClassShortName"); ok && name != "" {
		s.PlayerCarClassName = name
		return
	}
	if name, ok := entry.Text("CarScreenNameShort"); ok {
		s.PlayerCarClassName = name
		return
	}
	p.log.Warn("no car class name found for player")
}

type requiredFields struct {
	entry   *sample.Document
	carID   uint32
	log     *log.Logger
	missing bool
}

func (r *requiredFields) report(key string) {
	r.log.Error("driver entry incomplete",
		log.Uint32("carIdx", r.carID), log.String("missing", key))
	r.missing = true
}

func (r *requiredFields) text(key string) string {
	if r.missing {
		return ""
	}
	v, ok := r.entry.Text(key)
	if !ok {
		r.report(key)
	}
	return v
}

func (r *requiredFields) integer(key string) int64 {
	if r.missing {
		return 0
	}
	v, ok := r.entry.IntOk(key)
	if !ok {
		r.report(key)
	}
	return v
}

func (r *requiredFields) float(key string) float64 {
	if r.missing {
		return 0
	}
	v, ok := r.entry.FloatOk(key)
	if !ok {
		r.report(key)
	}
	return v
}
