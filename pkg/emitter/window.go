package emitter

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"github.com/mpapenbr/iracehud-go/pkg/model"
)

const (
	RelativeBefore = 3
	RelativeAfter  = 3
)

// Window limits the standings to the part of the field around the player.
// MaxDrivers 0 disables the limit.
type Window struct {
	MaxDrivers int
	TopDrivers int
}

// selectRows picks the row indexes out of n ranked rows.
// The first top rows are always included, the remaining slots are filled
// alternately with the rows behind and ahead of player.
// The result is ordered and split[i] is set if rows before rows[i] were skipped.
func selectRows(n, player int, w Window) (rows []int, split []bool) {
	if w.MaxDrivers <= 0 || n <= w.MaxDrivers {
		return lo.Range(n), make([]bool, n)
	}
	selected := make([]bool, n)
	count := 0
	take := func(idx int) {
		if !selected[idx] {
			selected[idx] = true
			count++
		}
	}
	for i := range min(w.TopDrivers, w.MaxDrivers) {
		take(i)
	}
	if player >= 0 && player < n && count < w.MaxDrivers {
		take(player)
	}
	behind, ahead := player+1, player-1
	for count < w.MaxDrivers && (behind < n || ahead >= 0) {
		if behind < n {
			take(behind)
			behind++
		}
		if count < w.MaxDrivers && ahead >= 0 {
			take(ahead)
			ahead--
		}
	}
	for i, ok := range selected {
		if ok {
			split = append(split, len(rows) > 0 && rows[len(rows)-1] != i-1)
			rows = append(rows, i)
		}
	}
	return rows, split
}

// standings returns the player's class ranked by class position.
// All drivers are used when the player's class is unknown.
func standings(s *model.SessionState, w Window) []StandingsEntry {
	ids := s.PlayerClassDriverPositions
	if len(ids) == 0 {
		ids = s.DriverPositions
	}
	drivers := lo.FilterMap(ids, func(id uint32, _ int) (*model.Driver, bool) {
		d, ok := s.Drivers[id]
		return d, ok
	})
	player := slices.IndexFunc(drivers, func(d *model.Driver) bool { return d.IsPlayer })
	rows, split := selectRows(len(drivers), player, w)
	ret := make([]StandingsEntry, 0, len(rows))
	for i, idx := range rows {
		d := drivers[idx]
		ret = append(ret, StandingsEntry{
			CarID:         d.CarID,
			Position:      d.Position,
			ClassPosition: d.ClassPosition,
			UserName:      d.UserName,
			CarNumber:     d.CarNumber,
			IRating:       FormatIRating(d.IRating),
			License:       d.LicString,
			LeaderGap:     formatGap(s, int(d.Position), true),
			BestLap:       FormatLapTime(d.BestLapTime),
			LastLap:       FormatLapTime(d.LastLapTime),
			IsPlayer:      d.IsPlayer,
			IsLeader:      d.IsLeader,
			IsInPits:      d.IsInPits,
			Split:         split[i],
		})
	}
	return ret
}

// relative returns the cars around the player sorted by relative gap.
// Slots without a car are left empty.
func relative(s *model.SessionState) []RelativeEntry {
	ret := make([]RelativeEntry, RelativeBefore+1+RelativeAfter)
	drivers := lo.Filter(lo.Values(s.Drivers), func(d *model.Driver, _ int) bool {
		return d.IsPlayer || !d.IsOffWorld
	})
	slices.SortFunc(drivers, func(a, b *model.Driver) int {
		if c := a.PlayerRelativeGap.Compare(b.PlayerRelativeGap); c != 0 {
			return c
		}
		return cmp.Compare(a.CarID, b.CarID)
	})
	player := slices.IndexFunc(drivers, func(d *model.Driver) bool { return d.IsPlayer })
	if player < 0 {
		return ret
	}
	for slot := range ret {
		idx := player - RelativeBefore + slot
		if idx < 0 || idx >= len(drivers) {
			continue
		}
		ret[slot] = relativeEntry(drivers[idx])
	}
	return ret
}

func relativeEntry(d *model.Driver) RelativeEntry {
	return RelativeEntry{
		CarID:             d.CarID,
		Position:          d.Position,
		UserName:          d.UserName,
		CarNumber:         d.CarNumber,
		IRating:           FormatIRating(d.IRating),
		License:           d.LicString,
		PlayerRelativeGap: formatRelativeGap(d),
		IsPlayer:          d.IsPlayer,
		IsInPits:          d.IsInPits,
		IsOffTrack:        d.IsOffTrack,
		IsOffWorld:        d.IsOffWorld,
	}
}

func trackMap(s *model.SessionState) []TrackMapEntry {
	ret := make([]TrackMapEntry, 0, len(s.Drivers))
	for _, id := range s.DriverPositions {
		d, ok := s.Drivers[id]
		if !ok {
			continue
		}
		ret = append(ret, TrackMapEntry{
			CarID:      d.CarID,
			Position:   d.Position,
			IsLeader:   d.IsLeader,
			IsPlayer:   d.IsPlayer,
			LapDistPct: float32(d.LapDistPct),
			IsInPits:   d.IsInPits,
			IsOffTrack: d.IsOffTrack,
			IsOffWorld: d.IsOffWorld,
		})
	}
	return ret
}

func playerLapTimes(s *model.SessionState, limit int) []LapTimeEntry {
	laps := s.PlayerLapTimes
	if limit > 0 && len(laps) > limit {
		laps = laps[:limit]
	}
	return lo.Map(laps, func(lt model.LapTime, _ int) LapTimeEntry {
		return LapTimeEntry{Lap: lt.Lap, LapTime: FormatLapTime(lt.Time)}
	})
}
