package sample

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ohler55/ojg/jp"
	"gopkg.in/yaml.v3"
)

// Document gives path based access to the hierarchical session metadata.
// Paths use JSONPath syntax, the leading "$." may be omitted,
// e.g. "DriverInfo.Drivers" or "SessionInfo.Sessions[0].SessionType".
type Document struct {
	data any
}

var pathCache sync.Map // string -> jp.Expr

func EmptyDocument() *Document {
	return &Document{data: map[string]any{}}
}

// NewDocument wraps already decoded data (maps, slices and scalars)
func NewDocument(data any) *Document {
	if data == nil {
		return EmptyDocument()
	}
	return &Document{data: data}
}

// ParseDocument parses the YAML session info string provided by the simulator
func ParseDocument(text string) (*Document, error) {
	var data any
	if err := yaml.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("parse session info: %w", err)
	}
	return NewDocument(normalize(data)), nil
}

func (d *Document) Data() any {
	return d.data
}

// Get returns the first value found at path
func (d *Document) Get(path string) (any, bool) {
	x, err := compile(path)
	if err != nil {
		return nil, false
	}
	res := x.Get(d.data)
	if len(res) == 0 || res[0] == nil {
		return nil, false
	}
	return res[0], true
}

func (d *Document) Has(path string) bool {
	_, ok := d.Get(path)
	return ok
}

// Text returns scalar values as string. Numbers are formatted without exponent.
func (d *Document) Text(path string) (string, bool) {
	v, ok := d.Get(path)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	}
	return "", false
}

func (d *Document) String(path, def string) string {
	if s, ok := d.Text(path); ok {
		return s
	}
	return def
}

// Int returns numeric values as int64. Strings are not converted.
func (d *Document) Int(path string, def int64) int64 {
	v, ok := d.Get(path)
	if !ok {
		return def
	}
	if i, ok := toInt(v); ok {
		if _, isBool := v.(bool); !isBool {
			return i
		}
	}
	return def
}

// IntOk is like Int but reports whether a numeric value was present
func (d *Document) IntOk(path string) (int64, bool) {
	v, ok := d.Get(path)
	if !ok {
		return 0, false
	}
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	return toInt(v)
}

func (d *Document) Float(path string, def float64) float64 {
	v, ok := d.Get(path)
	if !ok {
		return def
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return def
}

func (d *Document) FloatOk(path string) (float64, bool) {
	v, ok := d.Get(path)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// List returns the elements of the array at path as sub documents
func (d *Document) List(path string) []*Document {
	v, ok := d.Get(path)
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	ret := make([]*Document, 0, len(arr))
	for _, item := range arr {
		ret = append(ret, NewDocument(item))
	}
	return ret
}

func compile(path string) (jp.Expr, error) {
	if x, ok := pathCache.Load(path); ok {
		return x.(jp.Expr), nil
	}
	full := path
	if !strings.HasPrefix(full, "$") {
		full = "$." + full
	}
	x, err := jp.ParseString(full)
	if err != nil {
		return nil, err
	}
	pathCache.Store(path, x)
	return x, nil
}

// normalize converts yaml specific map types into map[string]any
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[fmt.Sprint(k)] = normalize(item)
		}
		return m
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	}
	return v
}
