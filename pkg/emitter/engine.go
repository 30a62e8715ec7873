package emitter

import (
	"errors"
	"sync"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/model"
)

var (
	ErrUnknownSignal = errors.New("unknown signal")
	ErrNotRegistered = errors.New("signal not registered")
)

// Publisher receives the values the engine decided to deliver
type Publisher interface {
	Publish(event string, value any)
}

type PublisherFunc func(event string, value any)

func (f PublisherFunc) Publish(event string, value any) { f(event, value) }

// Engine keeps track of registered signals and delivers changed values.
// Register and Unregister may be called concurrently with EvaluateAll.
type Engine struct {
	log       *log.Logger
	publisher Publisher
	mu        sync.Mutex
	ctx       evalContext

	registered map[string]bool
	latest     map[string]any
	forced     map[string]bool
}

type EngineOption func(e *Engine)

func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

func WithWindow(w Window) EngineOption {
	return func(e *Engine) {
		e.ctx.window = w
	}
}

func WithMaxLapTimes(n int) EngineOption {
	return func(e *Engine) {
		e.ctx.maxLapTimes = n
	}
}

func NewEngine(publisher Publisher, opts ...EngineOption) *Engine {
	ret := &Engine{
		log:        log.Default().Named("emitter"),
		publisher:  publisher,
		ctx:        evalContext{maxLapTimes: model.DefaultMaxLapTimes},
		registered: map[string]bool{},
		latest:     map[string]any{},
		forced:     map[string]bool{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Register adds interest in a signal. The next evaluation delivers its value
// even if it did not change.
func (e *Engine) Register(name string) error {
	if !IsKnown(name) {
		e.log.Error("signal is not supported", log.String("signal", name))
		return ErrUnknownSignal
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registered[name] = true
	e.forced[name] = true
	e.log.Debug("signal registered", log.String("signal", name))
	return nil
}

func (e *Engine) Unregister(name string) error {
	if !IsKnown(name) {
		e.log.Error("signal is not supported", log.String("signal", name))
		return ErrUnknownSignal
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.registered[name] {
		e.log.Error("signal is not registered", log.String("signal", name))
		return ErrNotRegistered
	}
	delete(e.registered, name)
	delete(e.latest, name)
	delete(e.forced, name)
	e.log.Debug("signal unregistered", log.String("signal", name))
	return nil
}

// Registered returns the registered signal names in vocabulary order
func (e *Engine) Registered() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := make([]string, 0, len(e.registered))
	for _, sig := range signals {
		if e.registered[sig.name] {
			ret = append(ret, sig.name)
		}
	}
	return ret
}

// SetWindow changes the standings window used by the next evaluation
func (e *Engine) SetWindow(w Window) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.window = w
	e.log.Debug("standings window changed",
		log.Int("maxDrivers", w.MaxDrivers), log.Int("topDrivers", w.TopDrivers))
}

type emission struct {
	event string
	value any
}

// EvaluateAll computes every registered and ready signal and publishes the
// values that changed, are forced or were never delivered.
// Returns the number of published values.
func (e *Engine) EvaluateAll(s *model.SessionState) int {
	e.mu.Lock()
	out := make([]emission, 0, len(e.registered))
	for _, sig := range signals {
		if !e.registered[sig.name] || !sig.readiness.ready(s) {
			continue
		}
		value := sig.value(s, e.ctx)
		prev, seen := e.latest[sig.name]
		if !sig.forced && !e.forced[sig.name] && seen && sig.equal(prev, value) {
			continue
		}
		e.latest[sig.name] = value
		delete(e.forced, sig.name)
		out = append(out, emission{event: sig.name, value: value})
	}
	e.mu.Unlock()

	for _, item := range out {
		e.publisher.Publish(item.event, item.value)
	}
	return len(out)
}

// Reset forgets all delivered values and forces every signal on the next evaluation
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.latest)
	for _, sig := range signals {
		e.forced[sig.name] = true
	}
	e.log.Debug("engine reset")
}
