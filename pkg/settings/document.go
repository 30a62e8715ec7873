package settings

import (
	"fmt"
	"sync"

	"github.com/gowebpki/jcs"
	"github.com/kaptinlin/jsonschema"
	"github.com/ohler55/ojg/oj"

	"github.com/mpapenbr/iracehud-go/pkg/utils"
)

// Document is a validated settings document in canonical JSON form
type Document struct {
	Overlay string
	Data    []byte
	Digest  string // sha256 of Data
}

var compiledSchemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	ret := map[string]*jsonschema.Schema{}
	compiler := jsonschema.NewCompiler()
	for i := range overlays {
		o := &overlays[i]
		data, err := oj.Marshal(o.schema())
		if err != nil {
			return nil, fmt.Errorf("marshal schema %s: %w", o.id, err)
		}
		if ret[o.id], err = compiler.Compile(data); err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", o.id, err)
		}
	}
	return ret, nil
})

// Schema returns the JSON schema of an overlay document
func Schema(id string) ([]byte, error) {
	o, err := lookup(id)
	if err != nil {
		return nil, err
	}
	data, err := oj.Marshal(o.schema())
	if err != nil {
		return nil, err
	}
	return jcs.Transform(data)
}

// NewDocument completes raw with the overlay defaults, validates the result
// and returns its canonical form.
func NewDocument(id string, raw []byte) (*Document, error) {
	o, err := lookup(id)
	if err != nil {
		return nil, err
	}
	parsed, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrInvalidSettings, parsed)
	}
	return o.document(o.withDefaults(obj))
}

// DefaultDocument returns the canonical default document of an overlay
func DefaultDocument(id string) (*Document, error) {
	o, err := lookup(id)
	if err != nil {
		return nil, err
	}
	return o.document(o.defaults())
}

func (o *overlay) document(doc map[string]any) (*Document, error) {
	data, err := oj.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal %s settings: %w", o.id, err)
	}
	if err = validate(o.id, data); err != nil {
		return nil, err
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("canonicalize %s settings: %w", o.id, err)
	}
	return &Document{Overlay: o.id, Data: canonical, Digest: utils.Digest(canonical)}, nil
}

func validate(id string, data []byte) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}
	result := schemas[id].ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrInvalidSettings, id, result.Errors)
}
