package codec

import (
	"fmt"

	"github.com/ohler55/ojg/oj"
)

type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Encode(event string, value any) ([]byte, error) {
	data, err := oj.Marshal([]any{event, value})
	if err != nil {
		return nil, fmt.Errorf("encode json %s: %w", event, err)
	}
	return data, nil
}

func (JSON) Decode(data []byte) (event string, value any, err error) {
	v, err := oj.Parse(data)
	if err != nil {
		return "", nil, fmt.Errorf("decode json: %w", err)
	}
	items, ok := v.([]any)
	if !ok {
		return "", nil, fmt.Errorf("%w: not an array", ErrInvalidPayload)
	}
	return split(items)
}
