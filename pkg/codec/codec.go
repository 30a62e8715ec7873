// Package codec turns published events into payload bytes.
// Every payload is a two element array of event name and value.
package codec

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCodec   = errors.New("unknown codec")
	ErrInvalidPayload = errors.New("invalid payload")
)

type Codec interface {
	Name() string
	Encode(event string, value any) ([]byte, error)
	Decode(data []byte) (event string, value any, err error)
}

// New returns the codec registered for name
func New(name string) (Codec, error) {
	switch name {
	case "", "msgpack":
		return Msgpack{}, nil
	case "json":
		return JSON{}, nil
	case "proto":
		return Proto{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
}

func Names() []string {
	return []string{"msgpack", "json", "proto"}
}

func split(items []any) (event string, value any, err error) {
	if len(items) != 2 {
		return "", nil, fmt.Errorf("%w: expected 2 elements, got %d", ErrInvalidPayload, len(items))
	}
	event, ok := items[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("%w: event is not a string", ErrInvalidPayload)
	}
	return event, items[1], nil
}
