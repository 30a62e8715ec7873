package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/codec"
)

var (
	ErrClosed             = errors.New("broadcaster closed")
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

const DefaultQueueSize = 256

// Sink receives the payloads of one subscriber.
// Write is only called from the subscriber's own delivery goroutine.
type Sink interface {
	Write(payload []byte) error
	Close() error
}

// Broadcaster encodes each published value once and hands the payload to
// every subscriber. Each subscriber is drained by its own goroutine, a slow
// subscriber loses its oldest queued payloads instead of blocking the publisher.
type Broadcaster struct {
	log       *log.Logger
	name      string
	codec     codec.Codec
	queueSize int

	mu          sync.Mutex
	subscribers map[uuid.UUID]*subscriber
	closed      bool
	wg          sync.WaitGroup

	numRcv  atomic.Int64
	numSnd  atomic.Int64
	numSkip atomic.Int64
	numDrop atomic.Int64
}

type subscriber struct {
	id    uuid.UUID
	sink  Sink
	queue chan []byte
	done  chan struct{}
}

type Option func(b *Broadcaster)

func WithLogger(l *log.Logger) Option {
	return func(b *Broadcaster) {
		b.log = l
	}
}

func WithCodec(c codec.Codec) Option {
	return func(b *Broadcaster) {
		b.codec = c
	}
}

func WithQueueSize(size int) Option {
	return func(b *Broadcaster) {
		b.queueSize = size
	}
}

// WithName is used as metric attribute
func WithName(name string) Option {
	return func(b *Broadcaster) {
		b.name = name
	}
}

func New(opts ...Option) *Broadcaster {
	ret := &Broadcaster{
		log:         log.Default().Named("broadcast"),
		name:        "telemetry",
		codec:       codec.Msgpack{},
		queueSize:   DefaultQueueSize,
		subscribers: map[uuid.UUID]*subscriber{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.queueSize < 1 {
		ret.queueSize = 1
	}
	ret.setupMetrics()
	return ret
}

func (b *Broadcaster) Codec() codec.Codec {
	return b.codec
}

// Subscribe adds sink to the active set and starts its delivery goroutine
func (b *Broadcaster) Subscribe(sink Sink) (uuid.UUID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return uuid.Nil, ErrClosed
	}
	sub := &subscriber{
		id:    uuid.New(),
		sink:  sink,
		queue: make(chan []byte, b.queueSize),
		done:  make(chan struct{}),
	}
	b.subscribers[sub.id] = sub
	b.wg.Add(1)
	go b.deliver(sub)
	b.log.Debug("subscriber added",
		log.String("id", sub.id.String()), log.Int("subscribers", len(b.subscribers)))
	return sub.id, nil
}

// Unsubscribe stops delivery to id and closes its sink
func (b *Broadcaster) Unsubscribe(id uuid.UUID) error {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(sub.done)
	}
	remaining := len(b.subscribers)
	b.mu.Unlock()
	if !ok {
		return ErrSubscriberNotFound
	}
	b.closeSink(sub)
	b.log.Debug("subscriber removed",
		log.String("id", id.String()), log.Int("subscribers", remaining))
	return nil
}

// Publish encodes value once and queues the payload for every subscriber.
// It never blocks on a subscriber.
func (b *Broadcaster) Publish(event string, value any) {
	b.numRcv.Add(1)
	payload, err := b.codec.Encode(event, value)
	if err != nil {
		b.numSkip.Add(1)
		b.log.Error("could not encode event", log.String("event", event), log.ErrorField(err))
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.numSkip.Add(1)
		return
	}
	for _, sub := range b.subscribers {
		b.offer(sub, payload)
	}
}

// Send queues a value for a single subscriber only
func (b *Broadcaster) Send(id uuid.UUID, event string, value any) error {
	payload, err := b.codec.Encode(event, value)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subscribers[id]
	if !ok {
		return ErrSubscriberNotFound
	}
	b.offer(sub, payload)
	return nil
}

// NumSubscribers returns the size of the active set
func (b *Broadcaster) NumSubscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Close stops all delivery goroutines and closes every sink.
// Payloads still queued are discarded.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*subscriber, 0, len(b.subscribers))
	for id, sub := range b.subscribers {
		close(sub.done)
		subs = append(subs, sub)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		b.closeSink(sub)
	}
	b.wg.Wait()
	b.log.Info("broadcaster closed",
		log.String("name", b.name),
		log.Int64("rcv", b.numRcv.Load()), log.Int64("snd", b.numSnd.Load()),
		log.Int64("skip", b.numSkip.Load()), log.Int64("drop", b.numDrop.Load()))
}

// offer queues payload, dropping the oldest queued entries if the queue is full.
// Must be called with b.mu held.
func (b *Broadcaster) offer(sub *subscriber, payload []byte) {
	for {
		select {
		case sub.queue <- payload:
			return
		default:
		}
		select {
		case <-sub.queue:
			b.numDrop.Add(1)
		default:
		}
	}
}

func (b *Broadcaster) deliver(sub *subscriber) {
	defer b.wg.Done()
	for {
		select {
		case <-sub.done:
			return
		case payload := <-sub.queue:
			if err := sub.sink.Write(payload); err != nil {
				b.log.Warn("removing subscriber after write error",
					log.String("id", sub.id.String()), log.ErrorField(err))
				b.drop(sub)
				return
			}
			b.numSnd.Add(1)
		}
	}
}

// drop removes a failed subscriber unless it was already removed
func (b *Broadcaster) drop(sub *subscriber) {
	b.mu.Lock()
	current, ok := b.subscribers[sub.id]
	if ok && current == sub {
		delete(b.subscribers, sub.id)
		close(sub.done)
	}
	b.mu.Unlock()
	if ok {
		b.closeSink(sub)
	}
}

func (b *Broadcaster) closeSink(sub *subscriber) {
	if err := sub.sink.Close(); err != nil {
		b.log.Debug("closing sink", log.String("id", sub.id.String()), log.ErrorField(err))
	}
}

//nolint:lll // readability
func (b *Broadcaster) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("iracehud.broadcast")
	register := func(metricName, desc, unit string, valueProvider func() int64) {
		if _, err := meter.Int64ObservableGauge(
			metricName,
			metric.WithDescription(desc),
			metric.WithUnit(unit),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(valueProvider(),
					metric.WithAttributes(attribute.String("name", b.name)),
				)
				return nil
			})); err != nil {
			b.log.Error("failed to register metric",
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
		{"iracehud.broadcast.rcv", "Number of published events", "{count}", b.numRcv.Load},
		{"iracehud.broadcast.snd", "Number of delivered payloads", "{count}", b.numSnd.Load},
		{"iracehud.broadcast.skip", "Number of events not delivered to anyone", "{count}", b.numSkip.Load},
		{"iracehud.broadcast.drop", "Number of payloads dropped from full queues", "{count}", b.numDrop.Load},
		{
			"iracehud.broadcast.listener", "Number of subscribers", "{count}",
			func() int64 { return int64(b.NumSubscribers()) },
		},
	} {
		register(d.name, d.desc, d.unit, d.value)
	}
}
