//nolint:thelper,whitespace,lll,funlen // ok for tests
package emitter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/iracehud-go/pkg/model"
)

func TestSelectRows(t *testing.T) {
	type args struct {
		n      int
		player int
		w      Window
	}
	tests := []struct {
		name      string
		args      args
		wantRows  []int
		wantSplit []int // rows with split flag
	}{
		{
			name:     "no limit",
			args:     args{n: 5, player: 3},
			wantRows: []int{0, 1, 2, 3, 4},
		},
		{
			name:     "fewer rows than limit",
			args:     args{n: 5, player: 3, w: Window{MaxDrivers: 10, TopDrivers: 3}},
			wantRows: []int{0, 1, 2, 3, 4},
		},
		{
			name:      "player in the middle",
			args:      args{n: 20, player: 10, w: Window{MaxDrivers: 8, TopDrivers: 3}},
			wantRows:  []int{0, 1, 2, 8, 9, 10, 11, 12},
			wantSplit: []int{8},
		},
		{
			name:     "player among top rows",
			args:     args{n: 20, player: 1, w: Window{MaxDrivers: 5, TopDrivers: 3}},
			wantRows: []int{0, 1, 2, 3, 4},
		},
		{
			name:      "player last",
			args:      args{n: 10, player: 9, w: Window{MaxDrivers: 5, TopDrivers: 2}},
			wantRows:  []int{0, 1, 7, 8, 9},
			wantSplit: []int{7},
		},
		{
			name:     "no player",
			args:     args{n: 10, player: -1, w: Window{MaxDrivers: 4, TopDrivers: 2}},
			wantRows: []int{0, 1, 2, 3},
		},
		{
			name:     "top rows use all slots",
			args:     args{n: 10, player: 7, w: Window{MaxDrivers: 3, TopDrivers: 5}},
			wantRows: []int{0, 1, 2},
		},
		{
			name:      "no top rows",
			args:      args{n: 10, player: 5, w: Window{MaxDrivers: 3}},
			wantRows:  []int{4, 5, 6},
			wantSplit: []int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, split := selectRows(tt.args.n, tt.args.player, tt.args.w)
			if diff := cmp.Diff(tt.wantRows, rows); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
			require.Len(t, split, len(rows))
			gotSplit := lo.Filter(rows, func(_ int, i int) bool { return split[i] })
			assert.ElementsMatch(t, tt.wantSplit, gotSplit)
		})
	}
}

// classSession returns a ranked single class session with n drivers.
// Car ids equal the position.
func classSession(n int, player uint32) *model.SessionState {
	s := model.NewSessionState()
	for pos := 1; pos <= n; pos++ {
		id := uint32(pos)
		d := model.NewDriverBuilder(id).
			UserName("driver").
			CarClass(1, secs(100)).
			IRating(1500).
			Build()
		d.Position = id
		d.ClassPosition = id
		d.IsPlayer = id == player
		d.IsLeader = pos == 1
		d.LeaderGapLaps = int32(pos / 5)
		s.Drivers[id] = d
		s.DriverPositions = append(s.DriverPositions, id)
		s.PlayerClassDriverPositions = append(s.PlayerClassDriverPositions, id)
	}
	s.PlayerCarID.Set(player)
	return s
}

func TestStandings(t *testing.T) {
	s := classSession(12, 9)
	got := standings(s, Window{MaxDrivers: 5, TopDrivers: 2})
	require.Len(t, got, 5)
	ids := lo.Map(got, func(e StandingsEntry, _ int) uint32 { return e.CarID })
	assert.Equal(t, []uint32{1, 2, 8, 9, 10}, ids)
	assert.False(t, got[1].Split)
	assert.True(t, got[2].Split)
	assert.False(t, got[3].Split)
	assert.True(t, got[3].IsPlayer)
	assert.True(t, got[0].IsLeader)
	assert.Equal(t, "1.5k", got[0].IRating)
	assert.Equal(t, "L2", got[4].LeaderGap)
	assert.Equal(t, "–:--:--", got[0].BestLap)

	all := standings(s, Window{})
	assert.Len(t, all, 12)
	assert.True(t, lo.NoneBy(all, func(e StandingsEntry) bool { return e.Split }))
}

func TestStandings_OtherClassesLeftOut(t *testing.T) {
	s := classSession(4, 2)
	other := model.NewDriverBuilder(99).CarClass(2, secs(90)).Build()
	other.Position = 1
	s.Drivers[99] = other
	s.DriverPositions = append([]uint32{99}, s.DriverPositions...)

	got := standings(s, Window{})
	ids := lo.Map(got, func(e StandingsEntry, _ int) uint32 { return e.CarID })
	assert.Equal(t, []uint32{1, 2, 3, 4}, ids)
}

func TestRelative(t *testing.T) {
	s := model.NewSessionState()
	add := func(id uint32, gap float64, mod func(d *model.Driver)) {
		d := model.NewDriverBuilder(id).UserName("car").Build()
		d.PlayerRelativeGap = secs(gap)
		if mod != nil {
			mod(d)
		}
		s.Drivers[id] = d
	}
	add(1, 0, func(d *model.Driver) { d.IsPlayer = true })
	add(2, 10, nil)
	add(3, -5, nil)
	add(4, 20, nil)
	add(5, -30, func(d *model.Driver) { d.IsOffWorld = true })
	add(6, -1, nil)

	got := relative(s)
	require.Len(t, got, RelativeBefore+1+RelativeAfter)
	ids := lo.Map(got, func(e RelativeEntry, _ int) uint32 { return e.CarID })
	assert.Equal(t, []uint32{0, 3, 6, 1, 2, 4, 0}, ids)
	assert.Equal(t, RelativeEntry{}, got[0])
	assert.Equal(t, RelativeEntry{}, got[6])
	assert.Equal(t, "5.0", got[1].PlayerRelativeGap)
	assert.Equal(t, "-", got[3].PlayerRelativeGap)
	assert.True(t, got[3].IsPlayer)
	assert.Equal(t, "10.0", got[4].PlayerRelativeGap)
}

func TestRelative_PlayerOffWorldKept(t *testing.T) {
	s := model.NewSessionState()
	p := model.NewDriverBuilder(7).Build()
	p.IsPlayer = true
	p.IsOffWorld = true
	s.Drivers[7] = p
	got := relative(s)
	assert.Equal(t, uint32(7), got[RelativeBefore].CarID)
}

func TestRelative_NoPlayer(t *testing.T) {
	s := model.NewSessionState()
	s.Drivers[1] = model.NewDriverBuilder(1).Build()
	got := relative(s)
	assert.Equal(t, make([]RelativeEntry, RelativeBefore+1+RelativeAfter), got)
}

func TestPlayerLapTimes(t *testing.T) {
	s := model.NewSessionState()
	for lap := uint32(7); lap >= 1; lap-- {
		s.PlayerLapTimes = append(s.PlayerLapTimes, model.LapTime{Lap: lap, Time: secs(90.5)})
	}
	got := playerLapTimes(s, 5)
	require.Len(t, got, 5)
	assert.Equal(t, LapTimeEntry{Lap: 7, LapTime: "1:30.500"}, got[0])
	assert.Len(t, playerLapTimes(s, 0), 7)
}
