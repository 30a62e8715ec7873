// Package nats publishes emitted values to a NATS subject and accepts
// subscription control requests.
package nats

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/transport/control"
	"github.com/mpapenbr/iracehud-go/pkg/utils/broadcast"
)

const DefaultSubject = "iracehud"

// Transport subscribes to the broadcaster and republishes every payload on
// Subject. Control requests are served on
//
//	<subject>.control             JSON control frame
//	<subject>.control.register    signal name as body
//	<subject>.control.unregister  signal name as body
type Transport struct {
	log     *log.Logger
	conn    *nats.Conn
	bcst    *broadcast.Broadcaster
	control *control.Handler
	subject string
	id      uuid.UUID
	subs    []*nats.Subscription
}

type Option func(t *Transport)

func WithLogger(l *log.Logger) Option {
	return func(t *Transport) {
		t.log = l
	}
}

func WithSubject(subject string) Option {
	return func(t *Transport) {
		t.subject = subject
	}
}

//nolint:whitespace // can't make both editor and linter happy
func New(
	conn *nats.Conn,
	bcst *broadcast.Broadcaster,
	ctrl *control.Handler,
	opts ...Option,
) (*Transport, error) {
	ret := &Transport{
		log:     log.Default().Named("nats"),
		conn:    conn,
		bcst:    bcst,
		control: ctrl,
		subject: DefaultSubject,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if err := ret.setupSubscriptions(); err != nil {
		ret.unsubscribeAll()
		return nil, err
	}
	var err error
	if ret.id, err = bcst.Subscribe(&subjectSink{conn: conn, subject: ret.subject}); err != nil {
		ret.unsubscribeAll()
		return nil, err
	}
	ret.log.Info("publishing", log.String("subject", ret.subject))
	return ret, nil
}

// Close stops publishing. The connection is owned by the caller.
func (t *Transport) Close() {
	t.unsubscribeAll()
	if err := t.bcst.Unsubscribe(t.id); err != nil {
		t.log.Debug("unsubscribe from broadcaster", log.ErrorField(err))
	}
}

func (t *Transport) setupSubscriptions() error {
	for subject, handler := range map[string]func(data []byte) []byte{
		t.subject + ".control": func(data []byte) []byte {
			return t.encode(t.control.HandleRaw(data))
		},
		t.subject + ".control." + control.ActionRegister: func(data []byte) []byte {
			return t.handleNamed(control.ActionRegister, data)
		},
		t.subject + ".control." + control.ActionUnregister: func(data []byte) []byte {
			return t.handleNamed(control.ActionUnregister, data)
		},
	} {
		sub, err := t.conn.Subscribe(subject, func(msg *nats.Msg) {
			answer := handler(msg.Data)
			if msg.Reply == "" || answer == nil {
				return
			}
			if err := msg.Respond(answer); err != nil {
				t.log.Warn("could not respond", log.String("subject", msg.Subject), log.ErrorField(err))
			}
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		t.subs = append(t.subs, sub)
	}
	return nil
}

func (t *Transport) handleNamed(action string, data []byte) []byte {
	return t.encode(t.control.Handle(&control.Request{Action: action, Event: string(data)}))
}

func (t *Transport) encode(answer map[string]any) []byte {
	data, err := t.bcst.Codec().Encode(control.ReplyEvent, answer)
	if err != nil {
		t.log.Error("could not encode reply", log.ErrorField(err))
		return nil
	}
	return data
}

func (t *Transport) unsubscribeAll() {
	for _, sub := range t.subs {
		//nolint:errcheck // by design
		sub.Unsubscribe()
	}
	t.subs = nil
}

type subjectSink struct {
	conn    *nats.Conn
	subject string
}

func (s *subjectSink) Write(payload []byte) error {
	return s.conn.Publish(s.subject, payload)
}

func (s *subjectSink) Close() error { return nil }
