//nolint:thelper,whitespace,lll,funlen // ok for tests
package control

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	registered   []string
	unregistered []string
}

var errUnknown = errors.New("unknown signal")

func (f *fakeRegistry) Register(name string) error {
	if name == "bogus" {
		return errUnknown
	}
	f.registered = append(f.registered, name)
	return nil
}

func (f *fakeRegistry) Unregister(name string) error {
	if name == "bogus" {
		return errUnknown
	}
	f.unregistered = append(f.unregistered, name)
	return nil
}

func TestCheckClientVersion(t *testing.T) {
	tests := []struct {
		name    string
		toCheck string
		want    bool
	}{
		{"equal", "v0.3.0", true},
		{"newer", "v1.0.0", true},
		{"without prefix", "0.4.1", true},
		{"older", "v0.2.9", false},
		{"prerelease of minimum", "v0.3.0-rc1", false},
		{"invalid", "latest", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckClientVersion(tt.toCheck, MinClientVersion))
		})
	}
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"action":" Register ","event":"gear"}`))
	require.NoError(t, err)
	assert.Equal(t, &Request{Action: ActionRegister, Event: "gear"}, req)

	_, err = ParseRequest([]byte(`{"action":`))
	assert.Error(t, err)
}

func TestHandler_Handle(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		want map[string]any
	}{
		{
			name: "register",
			req:  &Request{Action: ActionRegister, Event: "gear"},
			want: map[string]any{"action": "register", "event": "gear", "ok": true},
		},
		{
			name: "unregister",
			req:  &Request{Action: ActionUnregister, Event: "speed"},
			want: map[string]any{"action": "unregister", "event": "speed", "ok": true},
		},
		{
			name: "register rejected",
			req:  &Request{Action: ActionRegister, Event: "bogus"},
			want: map[string]any{"action": "register", "event": "bogus", "ok": false, "error": "unknown signal"},
		},
		{
			name: "hello",
			req:  &Request{Action: ActionHello, Version: "v0.5.0"},
			want: map[string]any{"action": "hello", "ok": true},
		},
		{
			name: "hello outdated",
			req:  &Request{Action: ActionHello, Version: "v0.1.0"},
			want: map[string]any{"action": "hello", "ok": false, "error": "unsupported client version: v0.1.0 (need v0.3.0)"},
		},
		{
			name: "unknown action",
			req:  &Request{Action: "subscribe"},
			want: map[string]any{"action": "subscribe", "ok": false, "error": `unknown action: "subscribe"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeRegistry{})
			assert.Equal(t, tt.want, h.Handle(tt.req))
		})
	}
}

func TestHandler_HandleRaw(t *testing.T) {
	reg := &fakeRegistry{}
	h := NewHandler(reg)

	got := h.HandleRaw([]byte(`{"action":"register","event":"rpm"}`))
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, []string{"rpm"}, reg.registered)

	got = h.HandleRaw([]byte(`not json`))
	assert.Equal(t, false, got["ok"])
	assert.Contains(t, got["error"], "parse control request")
}
