//nolint:thelper,whitespace,lll,funlen // ok for tests
package race

import (
	"slices"
	"testing"

	"github.com/aarondl/opt/omit"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracehud-go/pkg/model"
)

type carData struct {
	id       uint32
	class    int32
	total    float64
	est      float64
	best     float64
	classEst float64
}

func sessionWith(playerID uint32, playerClass int32, cars ...carData) *model.SessionState {
	s := model.NewSessionState()
	s.PlayerCarID = omit.From(playerID)
	s.PlayerCarClass = playerClass
	for _, c := range cars {
		d := model.NewDriverBuilder(c.id).
			CarClass(c.class, model.DurationFromSeconds(c.classEst)).
			Build()
		d.TotalCompleted = c.total
		d.LapDistPct = c.total - float64(int(c.total))
		d.EstTime = model.DurationFromSeconds(c.est)
		d.BestLapTime = model.DurationFromSeconds(c.best)
		s.Drivers[c.id] = d
	}
	return s
}

func TestRaceProcessor_Rank(t *testing.T) {
	s := sessionWith(3, 1,
		carData{id: 1, class: 1, total: 5.5, best: 91.2, classEst: 100},
		carData{id: 2, class: 2, total: 6.1, best: 85.0, classEst: 90},
		carData{id: 3, class: 1, total: 5.2, best: 90.9, classEst: 100},
		carData{id: 4, class: 2, total: 4.0, best: 0, classEst: 90},
		carData{id: 5, class: 1, total: 5.2, best: -1, classEst: 100},
	)
	NewRaceProcessor().Rank(s)

	if diff := cmp.Diff([]uint32{2, 1, 3, 5, 4}, s.DriverPositions); diff != "" {
		t.Errorf("DriverPositions mismatch: %s", diff)
	}
	if diff := cmp.Diff([]uint32{1, 3, 5}, s.PlayerClassDriverPositions); diff != "" {
		t.Errorf("PlayerClassDriverPositions mismatch: %s", diff)
	}
	classPos := map[uint32]uint32{}
	for _, d := range s.Drivers {
		classPos[d.CarID] = d.ClassPosition
	}
	assert.Equal(t, map[uint32]uint32{2: 1, 1: 1, 3: 2, 5: 3, 4: 2}, classPos)
	assert.Equal(t, uint32(3), s.Position)
	assert.Equal(t, uint32(2), s.ClassPosition)
	assert.Equal(t, uint32(3), s.PositionsTotal)

	fl, ok := s.FastestLap.Get()
	assert.True(t, ok)
	assert.Equal(t, uint32(3), fl.CarID)
	assert.InDelta(t, 90.9, fl.Time.Seconds(), 1e-9)
}

// positions must match a fresh sort by total completed
func TestRaceProcessor_Rank_Monotonic(t *testing.T) {
	s := sessionWith(1, 1,
		carData{id: 1, class: 1, total: 0.3},
		carData{id: 2, class: 1, total: 2.9},
		carData{id: 3, class: 2, total: 1.7},
		carData{id: 4, class: 2, total: 2.95},
		carData{id: 5, class: 1, total: 1.1},
	)
	NewRaceProcessor().Rank(s)
	drivers := make([]*model.Driver, 0)
	for _, d := range s.Drivers {
		drivers = append(drivers, d)
	}
	slices.SortFunc(drivers, func(a, b *model.Driver) int { return int(a.Position) - int(b.Position) })
	for i := 1; i < len(drivers); i++ {
		assert.GreaterOrEqual(t, drivers[i-1].TotalCompleted, drivers[i].TotalCompleted)
		assert.Equal(t, uint32(i+1), drivers[i].Position)
	}
	counters := map[int32]uint32{}
	for _, d := range drivers {
		counters[d.CarClassID]++
		assert.Equal(t, counters[d.CarClassID], d.ClassPosition)
	}
	player := s.Drivers[1]
	assert.Equal(t, player.Position, s.Position)
	assert.Equal(t, player.ClassPosition, s.ClassPosition)
}

func TestLeaderGap(t *testing.T) {
	tests := []struct {
		name     string
		leader   carData
		driver   carData
		wantLaps int32
		wantGap  float64
	}{
		{
			name:     "lapped driver",
			leader:   carData{total: 10.2, est: 20},
			driver:   carData{total: 8.5, est: 50, classEst: 100},
			wantLaps: 1,
		},
		{
			name:    "same lap",
			leader:  carData{total: 10.6, est: 60},
			driver:  carData{total: 10.4, est: 40, classEst: 100},
			wantGap: 20,
		},
		{
			name:    "leader crossed the line",
			leader:  carData{total: 11.05, est: 5},
			driver:  carData{total: 10.95, est: 95, classEst: 100},
			wantGap: 10,
		},
		{
			name:     "driver of another class a lap ahead",
			leader:   carData{total: 8.5, est: 50},
			driver:   carData{total: 10.2, est: 20, classEst: 90},
			wantLaps: -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sessionWith(0, 1, carData{id: 1, total: tt.leader.total, est: tt.leader.est},
				carData{id: 2, total: tt.driver.total, est: tt.driver.est, classEst: tt.driver.classEst})
			laps, gap := LeaderGap(s.Drivers[1], s.Drivers[2])
			assert.Equal(t, tt.wantLaps, laps)
			assert.InDelta(t, tt.wantGap, gap.Seconds(), 1e-6)
			if laps != 0 {
				assert.True(t, gap.IsZero())
			}
		})
	}
}

func TestPlayerGap(t *testing.T) {
	tests := []struct {
		name     string
		player   carData
		driver   carData
		wantLaps int32
		wantGap  float64
	}{
		{
			name:     "driver a lap behind",
			player:   carData{total: 5.5, est: 50},
			driver:   carData{total: 4.2, est: 20, classEst: 100},
			wantLaps: 1,
		},
		{
			name:     "driver a lap ahead",
			player:   carData{total: 4.2, est: 20},
			driver:   carData{total: 5.5, est: 50, classEst: 100},
			wantLaps: -1,
		},
		{
			name:    "driver behind on the same lap",
			player:  carData{total: 5.5, est: 50},
			driver:  carData{total: 5.3, est: 30, classEst: 100},
			wantGap: 20,
		},
		{
			name:    "driver behind, player crossed the line",
			player:  carData{total: 6.05, est: 5},
			driver:  carData{total: 5.95, est: 95, classEst: 100},
			wantGap: 10,
		},
		{
			name:    "driver ahead on the same lap",
			player:  carData{total: 5.3, est: 30},
			driver:  carData{total: 5.5, est: 50, classEst: 100},
			wantGap: -20,
		},
		{
			name:    "driver ahead, driver crossed the line",
			player:  carData{total: 5.95, est: 95},
			driver:  carData{total: 6.05, est: 5, classEst: 100},
			wantGap: 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sessionWith(1, 1, carData{id: 1, total: tt.player.total, est: tt.player.est},
				carData{id: 2, total: tt.driver.total, est: tt.driver.est, classEst: tt.driver.classEst})
			laps, gap := PlayerGap(s.Drivers[1], s.Drivers[2])
			assert.Equal(t, tt.wantLaps, laps)
			assert.InDelta(t, tt.wantGap, gap.Seconds(), 1e-6)
		})
	}
}

func TestWrappedDelta(t *testing.T) {
	tests := []struct {
		name  string
		ref   float64
		other float64
		want  float64
	}{
		{name: "driver ahead across the line", ref: 0.95, other: 0.05, want: 0.10},
		{name: "driver behind across the line", ref: 0.05, other: 0.95, want: -0.10},
		{name: "driver ahead", ref: 0.2, other: 0.3, want: 0.1},
		{name: "driver behind", ref: 0.3, other: 0.2, want: -0.1},
		{name: "same spot", ref: 0.5, other: 0.5, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WrappedDelta(tt.ref, tt.other), 1e-9)
		})
	}
}

func TestRaceProcessor_ComputeGaps(t *testing.T) {
	s := sessionWith(1, 1,
		carData{id: 1, class: 1, total: 3.95, est: 95, classEst: 100},
		carData{id: 2, class: 1, total: 4.05, est: 5, classEst: 100},
		carData{id: 3, class: 2, total: 5.5, est: 40, classEst: 80},
	)
	p := NewRaceProcessor()
	p.Rank(s)
	p.ComputeGaps(s)

	player := s.Drivers[1]
	leader := s.Drivers[2]
	assert.True(t, player.IsPlayer)
	assert.False(t, player.IsLeader)
	assert.True(t, leader.IsLeader)
	assert.False(t, s.Drivers[3].IsLeader)
	assert.InDelta(t, 10, player.LeaderGap.Seconds(), 1e-6)
	assert.InDelta(t, 10, leader.PlayerRelativeGap.Seconds(), 1e-6)
	assert.True(t, player.PlayerRelativeGap.IsZero())
	// other class car is more than a lap ahead of the class leader
	assert.Equal(t, int32(-1), s.Drivers[3].LeaderGapLaps)
}

func TestRaceProcessor_ComputeGaps_NoPlayer(t *testing.T) {
	s := sessionWith(1, 1, carData{id: 2, class: 1, total: 1.5})
	s.PlayerCarID = omit.Val[uint32]{}
	p := NewRaceProcessor()
	p.Rank(s)
	p.ComputeGaps(s)
	assert.False(t, s.Drivers[2].IsLeader)
	assert.False(t, s.Drivers[2].IsPlayer)
}
