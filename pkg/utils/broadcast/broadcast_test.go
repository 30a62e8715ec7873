//nolint:thelper,whitespace,lll,funlen // ok for tests
package broadcast

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/iracehud-go/pkg/codec"
)

type memSink struct {
	mu       sync.Mutex
	events   []string
	failWith error
	gate     chan struct{} // if set, each write waits for a token
	closed   bool
}

func (s *memSink) Write(payload []byte) error {
	if s.gate != nil {
		<-s.gate
	}
	if s.failWith != nil {
		return s.failWith
	}
	event, _, err := codec.JSON{}.Decode(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *memSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

const waitFor = 2 * time.Second

func newTestBroadcaster(opts ...Option) *Broadcaster {
	return New(append([]Option{WithCodec(codec.JSON{})}, opts...)...)
}

func TestBroadcaster_PublishOrder(t *testing.T) {
	b := newTestBroadcaster()
	defer b.Close()
	s1, s2 := &memSink{}, &memSink{}
	_, err := b.Subscribe(s1)
	require.NoError(t, err)
	_, err = b.Subscribe(s2)
	require.NoError(t, err)

	want := []string{"a", "b", "c", "d"}
	for _, ev := range want {
		b.Publish(ev, 1)
	}
	for _, s := range []*memSink{s1, s2} {
		require.Eventually(t, func() bool { return len(s.received()) == len(want) }, waitFor, time.Millisecond)
		assert.Equal(t, want, s.received())
	}
}

func TestBroadcaster_FailingSubscriberRemoved(t *testing.T) {
	b := newTestBroadcaster()
	defer b.Close()
	good, bad := &memSink{}, &memSink{failWith: errors.New("connection reset")}
	_, err := b.Subscribe(good)
	require.NoError(t, err)
	badID, err := b.Subscribe(bad)
	require.NoError(t, err)

	b.Publish("first", true)
	require.Eventually(t, func() bool { return b.NumSubscribers() == 1 }, waitFor, time.Millisecond)
	assert.True(t, bad.isClosed())
	assert.ErrorIs(t, b.Unsubscribe(badID), ErrSubscriberNotFound)

	b.Publish("second", true)
	require.Eventually(t, func() bool { return len(good.received()) == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, good.received())
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := newTestBroadcaster(WithQueueSize(2))
	defer b.Close()
	slow := &memSink{gate: make(chan struct{})}
	fast := &memSink{}
	_, err := b.Subscribe(slow)
	require.NoError(t, err)
	_, err = b.Subscribe(fast)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for _, ev := range []string{"e1", "e2", "e3", "e4", "e5", "e6"} {
			b.Publish(ev, nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("publish blocked on slow subscriber")
	}
	require.Eventually(t, func() bool { return len(fast.received()) == 6 }, waitFor, time.Millisecond)
	assert.Positive(t, b.numDrop.Load())

	close(slow.gate)
	require.Eventually(t, func() bool {
		got := slow.received()
		return len(got) > 0 && got[len(got)-1] == "e6"
	}, waitFor, time.Millisecond)
	got := slow.received()
	// one payload may already be taken by the delivery goroutine, the rest is bounded by the queue
	assert.LessOrEqual(t, len(got), 3)
	assert.IsIncreasing(t, got)
}

func TestBroadcaster_Send(t *testing.T) {
	b := newTestBroadcaster()
	defer b.Close()
	s1, s2 := &memSink{}, &memSink{}
	id1, err := b.Subscribe(s1)
	require.NoError(t, err)
	_, err = b.Subscribe(s2)
	require.NoError(t, err)

	require.NoError(t, b.Send(id1, "control", map[string]any{"ok": true}))
	require.Eventually(t, func() bool { return len(s1.received()) == 1 }, waitFor, time.Millisecond)
	assert.Empty(t, s2.received())
	assert.ErrorIs(t, b.Send(uuid.New(), "control", nil), ErrSubscriberNotFound)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := newTestBroadcaster()
	defer b.Close()
	s := &memSink{}
	id, err := b.Subscribe(s)
	require.NoError(t, err)
	require.NoError(t, b.Unsubscribe(id))
	assert.True(t, s.isClosed())
	assert.Equal(t, 0, b.NumSubscribers())
	assert.ErrorIs(t, b.Unsubscribe(id), ErrSubscriberNotFound)
}

func TestBroadcaster_Close(t *testing.T) {
	b := newTestBroadcaster()
	s1, s2 := &memSink{}, &memSink{}
	_, err := b.Subscribe(s1)
	require.NoError(t, err)
	_, err = b.Subscribe(s2)
	require.NoError(t, err)

	b.Close()
	assert.True(t, s1.isClosed())
	assert.True(t, s2.isClosed())
	assert.Equal(t, 0, b.NumSubscribers())

	_, err = b.Subscribe(&memSink{})
	assert.ErrorIs(t, err, ErrClosed)
	b.Publish("ignored", nil)
	b.Close()
}

type rejectingCodec struct {
	codec.JSON
}

func (c rejectingCodec) Encode(event string, value any) ([]byte, error) {
	if event == "bad" {
		return nil, errors.New("unsupported value")
	}
	return c.JSON.Encode(event, value)
}

func TestBroadcaster_EncodeError(t *testing.T) {
	b := New(WithCodec(rejectingCodec{}))
	defer b.Close()
	s := &memSink{}
	_, err := b.Subscribe(s)
	require.NoError(t, err)
	b.Publish("bad", 1)
	b.Publish("good", 1)
	require.Eventually(t, func() bool { return len(s.received()) == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, []string{"good"}, s.received())
	assert.Equal(t, int64(1), b.numSkip.Load())
}
