package util

// names of the simulator fields read by the processors
const (
	SessionTick       = "SessionTick"
	IsOnTrack         = "IsOnTrack"
	IsOnTrackCar      = "IsOnTrackCar"
	SessionNum        = "SessionNum"
	SessionTime       = "SessionTime"
	SessionTimeTotal  = "SessionTimeTotal"
	SessionTimeRemain = "SessionTimeRemain"
	SessionLapsTotal  = "SessionLapsTotal"
	SessionLapsRemain = "SessionLapsRemainEx"

	PlayerCarIdx             = "PlayerCarIdx"
	PlayerCarClass           = "PlayerCarClass"
	PlayerCarMyIncidentCount = "PlayerCarMyIncidentCount"
	PlayerCarSLShiftRPM      = "PlayerCarSLShiftRPM"
	PlayerCarSLBlinkRPM      = "PlayerCarSLBlinkRPM"

	Lap                   = "Lap"
	RaceLaps              = "RaceLaps"
	LapCurrentLapTime     = "LapCurrentLapTime"
	LapLastLapTime        = "LapLastLapTime"
	LapDist               = "LapDist"
	LapDeltaToSessionLast = "LapDeltaToSessionLastlLap"
	LapDeltaToBestLap     = "LapDeltaToBestLap"
	LapDeltaToOptimalLap  = "LapDeltaToOptimalLap"

	Gear               = "Gear"
	Speed              = "Speed"
	RPM                = "RPM"
	Throttle           = "Throttle"
	Brake              = "Brake"
	BrakeABSactive     = "BrakeABSactive"
	SteeringWheelAngle = "SteeringWheelAngle"
	CarLeftRight       = "CarLeftRight"

	CarIdxLapDistPct   = "CarIdxLapDistPct"
	CarIdxLapCompleted = "CarIdxLapCompleted"
	CarIdxLap          = "CarIdxLap"
	CarIdxEstTime      = "CarIdxEstTime"
	CarIdxBestLapTime  = "CarIdxBestLapTime"
	CarIdxLastLapTime  = "CarIdxLastLapTime"
	CarIdxTrackSurface = "CarIdxTrackSurface"
)

// sentinel values the simulator uses for "unlimited"
const (
	UnlimitedLaps = 32767
	UnlimitedTime = 604800.0
)

// LapCount maps the unlimited sentinel and non positive values to 0
func LapCount(v int64) uint32 {
	if v >= UnlimitedLaps || v <= 0 {
		return 0
	}
	return uint32(v)
}

// TotalTime maps the unlimited sentinel and negative values to 0
func TotalTime(secs float64) float64 {
	if secs >= UnlimitedTime || secs < 0 {
		return 0
	}
	return secs
}
