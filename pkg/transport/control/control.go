// Package control handles the subscription requests clients send to pick
// the signals they want to receive.
package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/oj"
	"golang.org/x/mod/semver"

	"github.com/mpapenbr/iracehud-go/log"
)

// ReplyEvent is the event name used for answers to control requests
const ReplyEvent = "control"

// MinClientVersion is the oldest overlay client accepted by the hello handshake
const MinClientVersion = "v0.3.0"

const (
	ActionHello      = "hello"
	ActionRegister   = "register"
	ActionUnregister = "unregister"
)

var (
	ErrUnknownAction      = errors.New("unknown action")
	ErrUnsupportedVersion = errors.New("unsupported client version")
)

// Registry is the part of the emission engine control requests act on
type Registry interface {
	Register(name string) error
	Unregister(name string) error
}

type Request struct {
	Action  string `json:"action"`
	Event   string `json:"event"`
	Version string `json:"version"`
}

type Handler struct {
	log        *log.Logger
	registry   Registry
	minVersion string
}

type Option func(h *Handler)

func WithLogger(l *log.Logger) Option {
	return func(h *Handler) {
		h.log = l
	}
}

func WithMinClientVersion(v string) Option {
	return func(h *Handler) {
		h.minVersion = v
	}
}

func NewHandler(registry Registry, opts ...Option) *Handler {
	ret := &Handler{
		log:        log.Default().Named("control"),
		registry:   registry,
		minVersion: MinClientVersion,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// ParseRequest decodes a JSON control frame
func ParseRequest(data []byte) (*Request, error) {
	req := Request{}
	if err := oj.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse control request: %w", err)
	}
	req.Action = strings.ToLower(strings.TrimSpace(req.Action))
	return &req, nil
}

// Handle applies req and returns the reply to send back to the requester
func (h *Handler) Handle(req *Request) map[string]any {
	var err error
	switch req.Action {
	case ActionRegister:
		err = h.registry.Register(req.Event)
	case ActionUnregister:
		err = h.registry.Unregister(req.Event)
	case ActionHello:
		if !CheckClientVersion(req.Version, h.minVersion) {
			err = fmt.Errorf("%w: %s (need %s)", ErrUnsupportedVersion, req.Version, h.minVersion)
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	return reply(req, err)
}

// HandleRaw parses data and handles the request. Unparsable frames are
// answered with an error reply.
func (h *Handler) HandleRaw(data []byte) map[string]any {
	req, err := ParseRequest(data)
	if err != nil {
		h.log.Debug("invalid control frame", log.ErrorField(err))
		return reply(&Request{}, err)
	}
	return h.Handle(req)
}

func reply(req *Request, err error) map[string]any {
	ret := map[string]any{
		"action": req.Action,
		"ok":     err == nil,
	}
	if req.Event != "" {
		ret["event"] = req.Event
	}
	if err != nil {
		ret["error"] = err.Error()
	}
	return ret
}

// CheckClientVersion reports whether toCheck is at least minVersion.
// A missing "v" prefix is tolerated.
func CheckClientVersion(toCheck, minVersion string) bool {
	if !strings.HasPrefix(toCheck, "v") {
		toCheck = "v" + toCheck
	}
	if !semver.IsValid(toCheck) {
		return false
	}
	return semver.Compare(toCheck, minVersion) >= 0
}
