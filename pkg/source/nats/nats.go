// Package nats receives samples published by a telemetry collector.
package nats

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/sample"
	"github.com/mpapenbr/iracehud-go/pkg/source"
)

const DefaultSubject = "iracehud.samples"

// Source keeps only the most recent sample. Samples arriving faster than
// they are consumed are skipped.
type Source struct {
	log     *log.Logger
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription

	mu      sync.Mutex
	decoder *sample.Decoder
	latest  chan sample.Sample
	skipped int64
}

var _ source.Source = (*Source)(nil)

type Option func(s *Source)

func WithLogger(l *log.Logger) Option {
	return func(s *Source) {
		s.log = l
	}
}

func WithSubject(subject string) Option {
	return func(s *Source) {
		s.subject = subject
	}
}

func New(conn *nats.Conn, opts ...Option) (*Source, error) {
	ret := &Source{
		log:     log.Default().Named("source.nats"),
		conn:    conn,
		subject: DefaultSubject,
		decoder: sample.NewDecoder(),
		latest:  make(chan sample.Sample, 1),
	}
	for _, opt := range opts {
		opt(ret)
	}
	var err error
	if ret.sub, err = conn.Subscribe(ret.subject,
		func(msg *nats.Msg) { ret.handle(msg.Data) },
	); err != nil {
		return nil, err
	}
	ret.log.Info("subscribed", log.String("subject", ret.subject))
	return ret, nil
}

func (s *Source) handle(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	smp, err := s.decoder.Decode(data)
	if err != nil {
		s.log.Warn("invalid sample", log.ErrorField(err))
		return
	}
	select {
	case <-s.latest:
		s.skipped++
	default:
	}
	s.latest <- smp
}

func (s *Source) Next(ctx context.Context) (sample.Sample, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case smp := <-s.latest:
		return smp, nil
	}
}

// Close removes the subscription. The connection is owned by the caller.
func (s *Source) Close() error {
	s.mu.Lock()
	skipped := s.skipped
	s.mu.Unlock()
	s.log.Debug("closing", log.Int64("skipped", skipped))
	return s.sub.Unsubscribe()
}
