package sample

import (
	"fmt"

	"github.com/ohler55/ojg/oj"
)

// Decoder turns recorded JSON samples into snapshots.
// The session info document is only parsed when its version changes.
//
// A recorded sample looks like
//
//	{"sessionInfoUpdate": 3, "sessionInfo": "<yaml>", "fields": {"SessionTick": 10}}
//
// "sessionInfo" may be omitted when the version did not change. A new version
// without a document is ignored until the document arrives.
type Decoder struct {
	version int32
	doc     *Document
}

func NewDecoder() *Decoder {
	return &Decoder{version: -1, doc: EmptyDocument()}
}

func (d *Decoder) Decode(data []byte) (*Snapshot, error) {
	raw, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode sample: expected object, got %T", raw)
	}
	fields, _ := obj["fields"].(map[string]any)
	version := int32(-1)
	if v, ok := toInt(obj["sessionInfoUpdate"]); ok {
		version = int32(v)
	}
	if version != d.version {
		text, ok := obj["sessionInfo"].(string)
		if !ok {
			// keep reporting the version of the document we actually have
			return NewSnapshot(fields, d.version, d.doc), nil
		}
		doc, err := ParseDocument(text)
		if err != nil {
			return nil, err
		}
		d.doc = doc
		d.version = version
	}
	return NewSnapshot(fields, d.version, d.doc), nil
}
