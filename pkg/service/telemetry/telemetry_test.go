//nolint:thelper,whitespace,lll,funlen // ok for tests
package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/iracehud-go/pkg/emitter"
	"github.com/mpapenbr/iracehud-go/pkg/model"
	"github.com/mpapenbr/iracehud-go/pkg/processing"
	"github.com/mpapenbr/iracehud-go/pkg/processing/util"
	"github.com/mpapenbr/iracehud-go/pkg/sample"
	"github.com/mpapenbr/iracehud-go/pkg/source"
	"github.com/mpapenbr/iracehud-go/testsupport/sampledata"
)

// sliceSource delivers the given samples, then err.
// A nil err blocks until the context is done.
type sliceSource struct {
	samples []sample.Sample
	err     error
}

func (s *sliceSource) Next(ctx context.Context) (sample.Sample, error) {
	if len(s.samples) > 0 {
		ret := s.samples[0]
		s.samples = s.samples[1:]
		return ret, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *sliceSource) Close() error { return nil }

type event struct {
	name  string
	value any
}

type recorder struct {
	events []event
}

func (r *recorder) Publish(name string, value any) {
	r.events = append(r.events, event{name, value})
}

func activeSample(speed float64) sample.Sample {
	return sampledata.NewSample().Set(util.Speed, speed).Build()
}

func inactiveSample() sample.Sample {
	return sampledata.NewSample().Set(util.IsOnTrack, false).Build()
}

func setup(t *testing.T, src source.Source, opts ...Option) (*Service, *recorder) {
	rec := &recorder{}
	engine := emitter.NewEngine(rec)
	require.NoError(t, engine.Register("active"))
	require.NoError(t, engine.Register("speed"))
	opts = append([]Option{WithTickInterval(0)}, opts...)
	return New(src, processing.NewProcessor(), engine, opts...), rec
}

func TestService_Run(t *testing.T) {
	src := &sliceSource{
		samples: []sample.Sample{
			activeSample(10),
			activeSample(10),
			inactiveSample(),
			activeSample(20),
		},
		err: source.ErrEndOfRecording,
	}
	ticks := 0
	svc, rec := setup(t, src, WithAfterTick(func(*model.SessionState) { ticks++ }))

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, 4, ticks)
	assert.Equal(t, int64(4), svc.numTicks.Load())
	assert.Equal(t, []event{
		{"active", true},
		{"speed", uint32(36)},
		{"active", false},
		{"active", true},
		{"speed", uint32(72)},
	}, rec.events)
	assert.True(t, svc.State().Active)
}

func TestService_SlowTicks(t *testing.T) {
	src := &sliceSource{
		samples: []sample.Sample{
			activeSample(1), activeSample(1), activeSample(1),
			activeSample(1), activeSample(1),
		},
		err: source.ErrEndOfRecording,
	}
	var slow []bool
	svc, _ := setup(t, src,
		WithSlowTickEvery(2),
		WithAfterTick(func(s *model.SessionState) { slow = append(slow, s.ProcessedSlow) }))

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, []bool{true, false, true, false, true}, slow)
	assert.Equal(t, int64(3), svc.numSlowTicks.Load())
}

func TestService_NoSession(t *testing.T) {
	tests := []struct {
		name string
		src  *sliceSource
	}{
		{"timeout", &sliceSource{}},
		{"empty recording", &sliceSource{err: source.ErrEndOfRecording}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, rec := setup(t, tt.src, WithWaitForSession(20*time.Millisecond))
			err := svc.Run(context.Background())
			require.ErrorIs(t, err, ErrNoSession)
			assert.Empty(t, rec.events)
		})
	}
}

func TestService_SourceError(t *testing.T) {
	boom := errors.New("boom")
	src := &sliceSource{samples: []sample.Sample{activeSample(1)}, err: boom}
	svc, _ := setup(t, src)
	require.ErrorIs(t, svc.Run(context.Background()), boom)
}

func TestService_Cancel(t *testing.T) {
	src := &sliceSource{samples: []sample.Sample{activeSample(1)}}
	svc, rec := setup(t, src, WithTickInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Len(t, rec.events, 2)
}
