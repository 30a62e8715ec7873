//nolint:thelper,whitespace,lll,funlen // ok for tests
package settings

import (
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

const standingsDefault = `{"common_settings":{"enabled":true,"height":600,"opacity":100,"scale":100,"width":520,"x":40,"y":200},"max_drivers":20,"top_drivers":3}`

func TestOverlays(t *testing.T) {
	assert.DeepEqual(t, Overlays(), []string{
		"lap_times", "proximity", "relative", "standings", "subtimer",
		"telemetry", "telemetry_reference", "timer", "track_map",
	})
}

func TestDefaultDocument(t *testing.T) {
	for _, id := range Overlays() {
		t.Run(id, func(t *testing.T) {
			doc, err := DefaultDocument(id)
			assert.NilError(t, err)
			assert.Equal(t, doc.Overlay, id)
			assert.Assert(t, is.Len(doc.Digest, 64))
		})
	}
	doc, err := DefaultDocument(Standings)
	assert.NilError(t, err)
	assert.Equal(t, string(doc.Data), standingsDefault)

	_, err = DefaultDocument("radar")
	assert.ErrorIs(t, err, ErrUnknownOverlay)
}

func TestNewDocument(t *testing.T) {
	tests := []struct {
		name    string
		overlay string
		raw     string
		want    string
		wantErr error
	}{
		{
			name:    "empty object gives defaults",
			overlay: Standings,
			raw:     `{}`,
			want:    standingsDefault,
		},
		{
			name:    "partial common settings are merged",
			overlay: Standings,
			raw:     `{"top_drivers":5,"common_settings":{"x":-1200}}`,
			want:    `{"common_settings":{"enabled":true,"height":600,"opacity":100,"scale":100,"width":520,"x":-1200,"y":200},"max_drivers":20,"top_drivers":5}`,
		},
		{
			name:    "overlay without own keys",
			overlay: TrackMap,
			raw:     `{"common_settings":{"enabled":true}}`,
			want:    `{"common_settings":{"enabled":true,"height":300,"opacity":100,"scale":100,"width":300,"x":1580,"y":40}}`,
		},
		{name: "unknown overlay", overlay: "radar", raw: `{}`, wantErr: ErrUnknownOverlay},
		{name: "not json", overlay: Relative, raw: `{`, wantErr: ErrInvalidSettings},
		{name: "not an object", overlay: Relative, raw: `[1,2]`, wantErr: ErrInvalidSettings},
		{name: "unknown key", overlay: Relative, raw: `{"max_drivers":3}`, wantErr: ErrInvalidSettings},
		{name: "wrong type", overlay: Relative, raw: `{"show_irating":"yes"}`, wantErr: ErrInvalidSettings},
		{name: "out of range", overlay: Timer, raw: `{"common_settings":{"opacity":101}}`, wantErr: ErrInvalidSettings},
		{name: "common not an object", overlay: Timer, raw: `{"common_settings":true}`, wantErr: ErrInvalidSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewDocument(tt.overlay, []byte(tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NilError(t, err)
			assert.Equal(t, string(doc.Data), tt.want)
		})
	}
}

func TestNewDocument_DigestIgnoresKeyOrder(t *testing.T) {
	a, err := NewDocument(Standings, []byte(`{"max_drivers":10,"top_drivers":2}`))
	assert.NilError(t, err)
	b, err := NewDocument(Standings, []byte(`{ "top_drivers": 2, "max_drivers": 10 }`))
	assert.NilError(t, err)
	assert.Equal(t, a.Digest, b.Digest)

	c, err := NewDocument(Standings, []byte(`{"max_drivers":11}`))
	assert.NilError(t, err)
	assert.Assert(t, a.Digest != c.Digest)
}

func TestParseStandings(t *testing.T) {
	s, err := ParseStandings([]byte(standingsDefault))
	assert.NilError(t, err)
	assert.DeepEqual(t, s, &StandingsSettings{
		Common: CommonSettings{
			Enabled: true, Width: 520, Height: 600, Opacity: 100, Scale: 100, X: 40, Y: 200,
		},
		MaxDrivers: 20,
		TopDrivers: 3,
	})
}

func TestSchema(t *testing.T) {
	data, err := Schema(Proximity)
	assert.NilError(t, err)
	assert.Assert(t, is.Contains(string(data), `"gap_width":{"minimum":0,"type":"integer"}`))
	assert.Assert(t, is.Contains(string(data), `"additionalProperties":false`))
}
