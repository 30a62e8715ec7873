package codec

import (
	"fmt"

	"github.com/ohler55/ojg/oj"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Proto encodes the payload as google.protobuf.ListValue.
// Values are reduced to their JSON shape first.
type Proto struct{}

func (Proto) Name() string { return "proto" }

func (Proto) Encode(event string, value any) ([]byte, error) {
	raw, err := oj.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode proto %s: %w", event, err)
	}
	generic, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("encode proto %s: %w", event, err)
	}
	list, err := structpb.NewList([]any{event, generic})
	if err != nil {
		return nil, fmt.Errorf("encode proto %s: %w", event, err)
	}
	data, err := proto.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode proto %s: %w", event, err)
	}
	return data, nil
}

func (Proto) Decode(data []byte) (event string, value any, err error) {
	var list structpb.ListValue
	if err = proto.Unmarshal(data, &list); err != nil {
		return "", nil, fmt.Errorf("decode proto: %w", err)
	}
	return split(list.AsSlice())
}
