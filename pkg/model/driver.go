package model

import (
	"github.com/aarondl/opt/omit"
)

// ResultsPosition is an entry of the official session results
type ResultsPosition struct {
	CarID         uint32
	Position      uint32
	ClassPosition uint32 // 1 based
	FastestTime   SignedDuration
	LastTime      SignedDuration
	ReasonOutID   int32
}

// Driver holds identity and derived state for one car.
type Driver struct {
	// identity, set once by DriverBuilder
	CarID              uint32
	UserName           string
	TeamName           string
	CarNumber          string
	CarClassID         int32
	CarClassEstLapTime SignedDuration
	CarClassColor      uint32
	IsPlayerClass      bool
	IRating            uint32
	LicString          string

	// updated every active tick
	LapDistPct        float64
	LapsCompleted     uint32
	TotalCompleted    float64
	EstTime           SignedDuration
	BestLapTime       SignedDuration
	LastLapTime       SignedDuration
	IsInPits          bool
	IsOffTrack        bool
	IsOffWorld        bool
	Position          uint32
	ClassPosition     uint32
	LeaderGap         SignedDuration
	LeaderGapLaps     int32
	PlayerGap         SignedDuration
	PlayerGapLaps     int32
	PlayerRelativeGap SignedDuration
	IsLeader          bool
	IsPlayer          bool

	// only filled when session results are available
	Result omit.Val[ResultsPosition]
	IsOut  bool
}

type DriverBuilder struct {
	d Driver
}

func NewDriverBuilder(carID uint32) *DriverBuilder {
	return &DriverBuilder{d: Driver{CarID: carID}}
}

func (b *DriverBuilder) UserName(name string) *DriverBuilder {
	b.d.UserName = name
	return b
}

func (b *DriverBuilder) TeamName(name string) *DriverBuilder {
	b.d.TeamName = name
	return b
}

func (b *DriverBuilder) CarNumber(num string) *DriverBuilder {
	b.d.CarNumber = num
	return b
}

func (b *DriverBuilder) CarClass(id int32, estLapTime SignedDuration) *DriverBuilder {
	b.d.CarClassID = id
	b.d.CarClassEstLapTime = estLapTime
	return b
}

func (b *DriverBuilder) CarClassColor(color uint32) *DriverBuilder {
	b.d.CarClassColor = color
	return b
}

func (b *DriverBuilder) PlayerClass(isPlayerClass bool) *DriverBuilder {
	b.d.IsPlayerClass = isPlayerClass
	return b
}

func (b *DriverBuilder) IRating(ir uint32) *DriverBuilder {
	b.d.IRating = ir
	return b
}

func (b *DriverBuilder) License(lic string) *DriverBuilder {
	b.d.LicString = lic
	return b
}

// Build returns a new Driver. Derived fields start at their zero values.
func (b *DriverBuilder) Build() *Driver {
	d := b.d
	return &d
}

// TrackSurface mirrors the simulator's per car surface code
type TrackSurface int32

const (
	SurfaceNotInWorld   TrackSurface = -1
	SurfaceOffTrack     TrackSurface = 0
	SurfaceInPitStall   TrackSurface = 1
	SurfaceApproachPits TrackSurface = 2
	SurfaceOnTrack      TrackSurface = 3
)

func (s TrackSurface) InPits() bool {
	return s == SurfaceInPitStall || s == SurfaceApproachPits
}

func (s TrackSurface) OffTrack() bool { return s == SurfaceOffTrack }
func (s TrackSurface) OffWorld() bool { return s == SurfaceNotInWorld }
