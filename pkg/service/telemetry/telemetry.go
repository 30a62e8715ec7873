// Package telemetry runs the tick loop: read a sample, update the session
// state and publish the signals that changed.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/emitter"
	"github.com/mpapenbr/iracehud-go/pkg/model"
	"github.com/mpapenbr/iracehud-go/pkg/processing"
	"github.com/mpapenbr/iracehud-go/pkg/sample"
	"github.com/mpapenbr/iracehud-go/pkg/source"
)

var ErrNoSession = errors.New("no session data")

const (
	DefaultTickInterval   = 25 * time.Millisecond
	DefaultSlowTickEvery  = 50
	DefaultWaitForSession = 10 * time.Minute
)

type Service struct {
	log            *log.Logger
	src            source.Source
	proc           *processing.Processor
	engine         *emitter.Engine
	state          *model.SessionState
	tickInterval   time.Duration
	slowTickEvery  int
	waitForSession time.Duration
	afterTick      func(s *model.SessionState)

	numTicks     atomic.Int64
	numSlowTicks atomic.Int64
	lastDuration atomic.Int64 // microseconds
}

type Option func(s *Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithTickInterval sets the pause between two reads. Zero reads as fast as
// the source delivers.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		s.tickInterval = d
	}
}

func WithSlowTickEvery(n int) Option {
	return func(s *Service) {
		s.slowTickEvery = n
	}
}

func WithWaitForSession(d time.Duration) Option {
	return func(s *Service) {
		s.waitForSession = d
	}
}

// WithAfterTick registers a function called with the state after each tick
func WithAfterTick(f func(s *model.SessionState)) Option {
	return func(s *Service) {
		s.afterTick = f
	}
}

//nolint:whitespace // can't make both editor and linter happy
func New(
	src source.Source,
	proc *processing.Processor,
	engine *emitter.Engine,
	opts ...Option,
) *Service {
	ret := &Service{
		log:            log.Default().Named("telemetry"),
		src:            src,
		proc:           proc,
		engine:         engine,
		state:          model.NewSessionState(),
		tickInterval:   DefaultTickInterval,
		slowTickEvery:  DefaultSlowTickEvery,
		waitForSession: DefaultWaitForSession,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.slowTickEvery < 1 {
		ret.slowTickEvery = 1
	}
	ret.setupMetrics()
	return ret
}

// State returns the session state. It must not be used while Run is active.
func (s *Service) State() *model.SessionState {
	return s.state
}

// Run processes samples until ctx is done or the source is exhausted.
// The first sample must arrive within the configured wait time.
func (s *Service) Run(ctx context.Context) error {
	first, err := s.waitForFirst(ctx)
	if err != nil {
		return err
	}
	s.tick(first)

	var ticks <-chan time.Time
	if s.tickInterval > 0 {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}
	for {
		if ticks != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticks:
			}
		}
		smp, err := s.src.Next(ctx)
		switch {
		case err == nil:
			s.tick(smp)
		case errors.Is(err, source.ErrEndOfRecording):
			s.log.Info("source exhausted", log.Int64("ticks", s.numTicks.Load()))
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("read sample: %w", err)
		}
	}
}

func (s *Service) waitForFirst(ctx context.Context) (sample.Sample, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.waitForSession)
	defer cancel()
	s.log.Info("waiting for session", log.Duration("timeout", s.waitForSession))
	smp, err := s.src.Next(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w within %v", ErrNoSession, s.waitForSession)
		}
		if errors.Is(err, source.ErrEndOfRecording) {
			return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
		}
		return nil, err
	}
	s.log.Info("session data available")
	return smp, nil
}

func (s *Service) tick(smp sample.Sample) {
	start := time.Now()
	n := s.numTicks.Add(1)
	slow := (n-1)%int64(s.slowTickEvery) == 0
	if slow {
		s.numSlowTicks.Add(1)
	}
	s.proc.Process(s.state, smp, slow)
	if s.state.Activated {
		s.log.Info("session activity changed", log.Bool("active", s.state.Active))
		s.engine.Reset()
	}
	s.engine.EvaluateAll(s.state)
	if s.afterTick != nil {
		s.afterTick(s.state)
	}
	s.lastDuration.Store(time.Since(start).Microseconds())
}

//nolint:lll // readability
func (s *Service) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("iracehud.tick")
	register := func(metricName, desc, unit string, valueProvider func() int64) {
		if _, err := meter.Int64ObservableGauge(
			metricName,
			metric.WithDescription(desc),
			metric.WithUnit(unit),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(valueProvider())
				return nil
			})); err != nil {
			s.log.Error("failed to register metric",
				log.String("metric", metricName),
				log.ErrorField(err))
		}
	}
	type data struct {
		name  string
		desc  string
		unit  string
		value func() int64
	}
	for _, d := range []*data{
		{"iracehud.tick.count", "Number of processed samples", "{count}", s.numTicks.Load},
		{"iracehud.tick.slow", "Number of samples processed with the slow path", "{count}", s.numSlowTicks.Load},
		{"iracehud.tick.duration", "Duration of the last tick", "us", s.lastDuration.Load},
	} {
		register(d.name, d.desc, d.unit, d.value)
	}
}
