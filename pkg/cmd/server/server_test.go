//nolint:thelper,whitespace,lll,funlen // ok for tests
package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/iracehud-go/pkg/codec"
	"github.com/mpapenbr/iracehud-go/pkg/config"
	"github.com/mpapenbr/iracehud-go/pkg/emitter"
	"github.com/mpapenbr/iracehud-go/pkg/settings"
	"github.com/mpapenbr/iracehud-go/pkg/utils/broadcast"
)

type chanSink chan []byte

func (c chanSink) Write(p []byte) error { c <- p; return nil }
func (c chanSink) Close() error         { return nil }

func TestSettingsChanged(t *testing.T) {
	bcst := broadcast.New(broadcast.WithCodec(codec.JSON{}))
	defer bcst.Close()
	sink := make(chanSink, 4)
	_, err := bcst.Subscribe(sink)
	require.NoError(t, err)

	engine := emitter.NewEngine(bcst)
	listener := settingsChanged(engine, bcst)
	doc, err := settings.NewDocument(settings.Standings,
		[]byte(`{"max_drivers":10,"top_drivers":2}`))
	require.NoError(t, err)
	listener(context.Background(), doc)

	select {
	case p := <-sink:
		event, value, err := codec.JSON{}.Decode(p)
		require.NoError(t, err)
		assert.Equal(t, "standings_overlay_settings_changed", event)
		assert.Equal(t, "standings_overlay_settings_changed", value)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestWindowOf(t *testing.T) {
	st := &settings.StandingsSettings{MaxDrivers: 12, TopDrivers: 4}
	assert.Equal(t, emitter.Window{MaxDrivers: 12, TopDrivers: 4}, windowOf(st))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 50*time.Millisecond, parseDuration("50ms", time.Second))
	assert.Equal(t, time.Second, parseDuration("soon", time.Second))
}

func TestOpenSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		kind string
		file string
	}{
		{"file without path", SourceFile, ""},
		{"file missing", SourceFile, "/does/not/exist.jsonl"},
		{"nats without connection", SourceNats, ""},
		{"unknown", "shm", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config.SourceKind = tt.kind
			config.SourceFile = tt.file
			_, err := openSource(nil)
			assert.Error(t, err)
		})
	}
}
