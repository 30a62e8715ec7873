package model

import (
	"time"

	"github.com/aarondl/opt/omit"
)

// DefaultMaxLapTimes is the number of player lap times kept and emitted
const DefaultMaxLapTimes = 5

type SessionKind int

const (
	SessionUnknown SessionKind = iota
	SessionPractice
	SessionQualify
	SessionRace
)

// SessionType keeps the raw session name for unknown kinds
type SessionType struct {
	Kind SessionKind
	Raw  string
}

func ParseSessionType(s string) SessionType {
	switch s {
	case "Practice":
		return SessionType{Kind: SessionPractice, Raw: s}
	case "Lone Qualify", "Open Qualify":
		return SessionType{Kind: SessionQualify, Raw: s}
	case "Race":
		return SessionType{Kind: SessionRace, Raw: s}
	default:
		return SessionType{Kind: SessionUnknown, Raw: s}
	}
}

func (t SessionType) String() string {
	switch t.Kind {
	case SessionPractice:
		return "Practice"
	case SessionQualify:
		return "Qualify"
	case SessionRace:
		return "Race"
	default:
		if t.Raw == "" {
			return "Unknown"
		}
		return t.Raw
	}
}

type LapTime struct {
	Lap  uint32
	Time SignedDuration
}

type FastestLap struct {
	CarID uint32
	Time  SignedDuration
}

// SessionState is the session wide aggregate maintained by the tick processor.
// It must only be mutated by one goroutine at a time.
type SessionState struct {
	Active        bool
	Activated     bool // activity flipped during the last tick
	ProcessedSlow bool // last tick included the slow path
	CurrentTime   time.Time

	SessionInfoUpdate int32 // version of the session metadata last read
	SessionNum        int32
	SessionType       SessionType
	TrackID           int32
	IncidentLimit     uint32
	ResultsOfficial   bool

	// slow path scalars, zero means unlimited
	SessionTimeTotal SignedDuration
	LapsTotal        uint32
	Incidents        uint32
	GearShiftRPM     uint32
	GearBlinkRPM     uint32

	SessionTime       SignedDuration
	SessionTimeRemain SignedDuration
	LapsRemain        int32
	Lap               uint32
	RaceLaps          uint32
	LapTime           SignedDuration
	DeltaLastTime     SignedDuration
	DeltaBestTime     SignedDuration
	DeltaOptimalTime  SignedDuration
	LapDist           uint32 // cm, 20cm resolution
	Gear              int32
	Speed             uint32 // km/h
	RPM               uint32
	Throttle          uint32 // 0-100
	Brake             uint32 // 0-100
	ABSActive         bool
	SteeringAngle     int32
	IsLeft            bool
	IsRight           bool

	PlayerCarID        omit.Val[uint32]
	PlayerCarClass     int32
	PlayerCarClassName string
	Position           uint32
	ClassPosition      uint32
	PositionsTotal     uint32
	StrengthOfField    uint32
	FastestLap         omit.Val[FastestLap]

	// car ids ordered by position, all classes
	DriverPositions []uint32

	// car ids of the player's class ordered by class position
	PlayerClassDriverPositions []uint32
	Drivers                    map[uint32]*Driver

	PlayerLapTimes []LapTime // most recent first
	LastLapTime    SignedDuration
}

// NewSessionState returns an empty state. The metadata version starts at -1
// so the first document delivered by the source is always read.
func NewSessionState() *SessionState {
	return &SessionState{
		SessionInfoUpdate:          -1,
		Drivers:                    make(map[uint32]*Driver),
		DriverPositions:            []uint32{},
		PlayerClassDriverPositions: []uint32{},
		PlayerLapTimes:             []LapTime{},
	}
}

// Reset drops everything collected during a session, including the roster.
// The metadata version goes back to -1 so the roster is read again.
func (s *SessionState) Reset() {
	*s = *NewSessionState()
}

// Player returns the driver entry of the player's car
func (s *SessionState) Player() (*Driver, bool) {
	id, ok := s.PlayerCarID.Get()
	if !ok {
		return nil, false
	}
	d, ok := s.Drivers[id]
	return d, ok
}

// DriverAtPosition looks up a driver by its 1 based overall position
func (s *SessionState) DriverAtPosition(pos uint32) (*Driver, bool) {
	if pos < 1 || int(pos) > len(s.DriverPositions) {
		return nil, false
	}
	d, ok := s.Drivers[s.DriverPositions[pos-1]]
	return d, ok
}
