package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is the default codec used by the overlay frontends
type Msgpack struct{}

func (Msgpack) Name() string { return "msgpack" }

func (Msgpack) Encode(event string, value any) ([]byte, error) {
	data, err := msgpack.Marshal([]any{event, value})
	if err != nil {
		return nil, fmt.Errorf("encode msgpack %s: %w", event, err)
	}
	return data, nil
}

func (Msgpack) Decode(data []byte) (event string, value any, err error) {
	var items []any
	if err = msgpack.Unmarshal(data, &items); err != nil {
		return "", nil, fmt.Errorf("decode msgpack: %w", err)
	}
	return split(items)
}
