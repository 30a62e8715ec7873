//nolint:thelper,whitespace,lll,funlen // ok for tests
package sof

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracehud-go/pkg/model"
)

func TestStrengthOfField(t *testing.T) {
	closedForm := func(ratings []float64, n float64) uint32 {
		br1 := 1600 / math.Ln2
		sum := 0.0
		for _, r := range ratings {
			sum += math.Exp(-r / br1)
		}
		return uint32(br1 * math.Log(n/sum))
	}
	type args struct {
		ratings      []uint32
		participants int
	}
	tests := []struct {
		name string
		args args
		want uint32
	}{
		{
			name: "three drivers",
			args: args{ratings: []uint32{1000, 2000, 3000}, participants: 3},
			want: closedForm([]float64{1000, 2000, 3000}, 3),
		},
		{
			name: "single driver equals rating",
			args: args{ratings: []uint32{1500}, participants: 1},
			want: 1500,
		},
		{
			name: "no participants",
			args: args{ratings: []uint32{1500}, participants: 0},
			want: 0,
		},
		{
			name: "no ratings",
			args: args{ratings: nil, participants: 3},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StrengthOfField(tt.args.ratings, tt.args.participants)
			assert.InDelta(t, float64(tt.want), float64(got), 1)
		})
	}
}

func TestStrengthOfField_ThreeDriversValue(t *testing.T) {
	assert.InDelta(t, 2308.4, BR1, 0.1)
	got := StrengthOfField([]uint32{1000, 2000, 3000}, 3)
	assert.InDelta(t, 1858, float64(got), 2)
}

func TestForSession(t *testing.T) {
	s := model.NewSessionState()
	s.Drivers[1] = model.NewDriverBuilder(1).IRating(1000).Build()
	s.Drivers[2] = model.NewDriverBuilder(2).IRating(2000).Build()
	s.Drivers[3] = model.NewDriverBuilder(3).IRating(3000).Build()
	s.PositionsTotal = 3
	assert.Equal(t, StrengthOfField([]uint32{1000, 2000, 3000}, 3), ForSession(s))
}
