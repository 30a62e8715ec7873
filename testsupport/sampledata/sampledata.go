// Package sampledata provides builders for samples and session info used in tests.
package sampledata

import (
	"github.com/mpapenbr/iracehud-go/pkg/processing/util"
	"github.com/mpapenbr/iracehud-go/pkg/sample"
)

const MaxCars = 64

type Car struct {
	LapDistPct   float64
	LapCompleted int64
	Lap          int64
	EstTime      float64
	BestLapTime  float64
	LastLapTime  float64
	Surface      int64
}

type Builder struct {
	fields  map[string]any
	version int32
	info    *sample.Document
}

// NewSample returns a builder for an active sample with a valid session tick.
// The player drives car 0 in class 1.
func NewSample() *Builder {
	b := &Builder{fields: map[string]any{}, version: -1}
	b.Set(util.SessionTick, int64(1)).
		Set(util.IsOnTrack, true).
		Set(util.IsOnTrackCar, true).
		Set(util.PlayerCarIdx, int64(0)).
		Set(util.PlayerCarClass, int64(1))
	for _, name := range []string{
		util.CarIdxLapDistPct, util.CarIdxEstTime,
		util.CarIdxBestLapTime, util.CarIdxLastLapTime,
	} {
		b.fields[name] = make([]float64, MaxCars)
	}
	for _, name := range []string{
		util.CarIdxLapCompleted, util.CarIdxLap, util.CarIdxTrackSurface,
	} {
		b.fields[name] = make([]int64, MaxCars)
	}
	for i := range MaxCars {
		b.fields[util.CarIdxLapDistPct].([]float64)[i] = -1
		b.fields[util.CarIdxTrackSurface].([]int64)[i] = -1
	}
	return b
}

func (b *Builder) Set(name string, value any) *Builder {
	b.fields[name] = value
	return b
}

func (b *Builder) Delete(name string) *Builder {
	delete(b.fields, name)
	return b
}

func (b *Builder) Car(idx int, c Car) *Builder {
	b.fields[util.CarIdxLapDistPct].([]float64)[idx] = c.LapDistPct
	b.fields[util.CarIdxEstTime].([]float64)[idx] = c.EstTime
	b.fields[util.CarIdxBestLapTime].([]float64)[idx] = c.BestLapTime
	b.fields[util.CarIdxLastLapTime].([]float64)[idx] = c.LastLapTime
	b.fields[util.CarIdxLapCompleted].([]int64)[idx] = c.LapCompleted
	b.fields[util.CarIdxLap].([]int64)[idx] = c.Lap
	b.fields[util.CarIdxTrackSurface].([]int64)[idx] = c.Surface
	return b
}

func (b *Builder) Info(version int32, doc *sample.Document) *Builder {
	b.version = version
	b.info = doc
	return b
}

// Build returns a snapshot. Array fields are copied so the builder may be reused.
func (b *Builder) Build() *sample.Snapshot {
	fields := make(map[string]any, len(b.fields))
	for k, v := range b.fields {
		switch arr := v.(type) {
		case []float64:
			fields[k] = append([]float64(nil), arr...)
		case []int64:
			fields[k] = append([]int64(nil), arr...)
		default:
			fields[k] = v
		}
	}
	return sample.NewSnapshot(fields, b.version, b.info)
}

type DriverEntry struct {
	CarIdx     int
	UserName   string
	TeamName   string
	CarNumber  string
	CarClassID int
	IRating    int
	LicString  string
	EstLapTime float64
	Color      int
}

// Entry returns a complete driver entry with some defaults
func Entry(carIdx int, name string, classID, irating int) DriverEntry {
	return DriverEntry{
		CarIdx:     carIdx,
		UserName:   name,
		TeamName:   name,
		CarNumber:  string(rune('0' + carIdx%10)),
		CarClassID: classID,
		IRating:    irating,
		LicString:  "A 4.99",
		EstLapTime: 100,
		Color:      0xffda59,
	}
}

func (e DriverEntry) toMap() map[string]any {
	return map[string]any{
		"CarIdx":             e.CarIdx,
		"UserName":           e.UserName,
		"TeamName":           e.TeamName,
		"CarNumber":          e.CarNumber,
		"CarClassID":         e.CarClassID,
		"IRating":            e.IRating,
		"LicString":          e.LicString,
		"CarClassEstLapTime": e.EstLapTime,
		"CarClassColor":      e.Color,
		"CarClassShortName":  "GT3",
	}
}

type InfoOption func(m map[string]any)

func WithSession(num int, sessionType string, results ...map[string]any) InfoOption {
	return func(m map[string]any) {
		info := m["SessionInfo"].(map[string]any)
		res := make([]any, 0, len(results))
		for _, r := range results {
			res = append(res, r)
		}
		info["Sessions"] = append(info["Sessions"].([]any), map[string]any{
			"SessionNum":       num,
			"SessionType":      sessionType,
			"ResultsPositions": res,
			"ResultsOfficial":  0,
		})
	}
}

func WithIncidentLimit(limit any) InfoOption {
	return func(m map[string]any) {
		m["WeekendInfo"].(map[string]any)["WeekendOptions"] = map[string]any{
			"IncidentLimit": limit,
		}
	}
}

// SessionInfo builds a session info document with the given drivers
func SessionInfo(drivers []DriverEntry, opts ...InfoOption) *sample.Document {
	list := make([]any, 0, len(drivers))
	for _, d := range drivers {
		list = append(list, d.toMap())
	}
	m := map[string]any{
		"WeekendInfo": map[string]any{
			"TrackID":        252,
			"WeekendOptions": map[string]any{"IncidentLimit": "unlimited"},
		},
		"SessionInfo": map[string]any{"Sessions": []any{}},
		"DriverInfo":  map[string]any{"Drivers": list},
	}
	for _, opt := range opts {
		opt(m)
	}
	return sample.NewDocument(m)
}
