// Package file replays samples recorded as JSON lines.
package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/processing/util"
	"github.com/mpapenbr/iracehud-go/pkg/sample"
	"github.com/mpapenbr/iracehud-go/pkg/source"
)

const maxLineSize = 16 * 1024 * 1024

// Source reads one sample per line. With a speed > 0 the replay is paced by
// the recorded session time, speed 0 replays as fast as possible.
type Source struct {
	log     *log.Logger
	closer  io.Closer
	scanner *bufio.Scanner
	decoder *sample.Decoder
	speed   float64
	line    int

	lastSessionTime float64
	lastEmit        time.Time
	sleep           func(ctx context.Context, d time.Duration) error
}

var _ source.Source = (*Source)(nil)

type Option func(s *Source)

func WithLogger(l *log.Logger) Option {
	return func(s *Source) {
		s.log = l
	}
}

func WithSpeed(speed float64) Option {
	return func(s *Source) {
		s.speed = speed
	}
}

func Open(name string, opts ...Option) (*Source, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	ret := New(f, opts...)
	ret.closer = f
	return ret, nil
}

// New reads samples from r. Close does not close r.
func New(r io.Reader, opts ...Option) *Source {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	ret := &Source{
		log:     log.Default().Named("source.file"),
		scanner: scanner,
		decoder: sample.NewDecoder(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Next returns the next sample or source.ErrEndOfRecording.
// Lines that cannot be decoded are logged and skipped.
func (s *Source) Next(ctx context.Context) (sample.Sample, error) {
	for s.scanner.Scan() {
		s.line++
		data := s.scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		smp, err := s.decoder.Decode(data)
		if err != nil {
			s.log.Warn("skipping line", log.Int("line", s.line), log.ErrorField(err))
			continue
		}
		if err := s.pace(ctx, smp); err != nil {
			return nil, err
		}
		return smp, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording line %d: %w", s.line+1, err)
	}
	return nil, source.ErrEndOfRecording
}

func (s *Source) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *Source) pace(ctx context.Context, smp sample.Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sessionTime := smp.Float(util.SessionTime, 0)
	defer func() {
		s.lastSessionTime = sessionTime
		s.lastEmit = time.Now()
	}()
	if s.speed <= 0 || s.lastEmit.IsZero() {
		return nil
	}
	delta := sessionTime - s.lastSessionTime
	if delta <= 0 {
		return nil
	}
	wait := time.Duration(delta/s.speed*float64(time.Second)) - time.Since(s.lastEmit)
	if wait <= 0 {
		return nil
	}
	return s.sleep(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
