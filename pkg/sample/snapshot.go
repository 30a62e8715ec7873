package sample

import (
	"math"
)

// Snapshot is a Sample backed by a map of field values.
// Scalars are numbers or bools, arrays are slices of them.
type Snapshot struct {
	Fields  map[string]any
	Version int32
	Info    *Document
}

var _ Sample = (*Snapshot)(nil)

func NewSnapshot(fields map[string]any, version int32, info *Document) *Snapshot {
	if fields == nil {
		fields = map[string]any{}
	}
	if info == nil {
		info = EmptyDocument()
	}
	return &Snapshot{Fields: fields, Version: version, Info: info}
}

func (s *Snapshot) Float(name string, def float64) float64 {
	if v, ok := toFloat(s.Fields[name]); ok {
		return v
	}
	return def
}

func (s *Snapshot) Int(name string, def int64) int64 {
	if v, ok := toInt(s.Fields[name]); ok {
		return v
	}
	return def
}

func (s *Snapshot) Bool(name string, def bool) bool {
	switch v := s.Fields[name].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	}
	return def
}

func (s *Snapshot) FloatAt(name string, idx int, def float64) float64 {
	if v, ok := toFloat(s.elem(name, idx)); ok {
		return v
	}
	return def
}

func (s *Snapshot) IntAt(name string, idx int, def int64) int64 {
	if v, ok := toInt(s.elem(name, idx)); ok {
		return v
	}
	return def
}

func (s *Snapshot) SessionInfoUpdate() int32 {
	return s.Version
}

func (s *Snapshot) SessionInfo() *Document {
	if s.Info == nil {
		return EmptyDocument()
	}
	return s.Info
}

func (s *Snapshot) elem(name string, idx int) any {
	if idx < 0 {
		return nil
	}
	switch arr := s.Fields[name].(type) {
	case []any:
		if idx < len(arr) {
			return arr[idx]
		}
	case []float64:
		if idx < len(arr) {
			return arr[idx]
		}
	case []float32:
		if idx < len(arr) {
			return float64(arr[idx])
		}
	case []int64:
		if idx < len(arr) {
			return arr[idx]
		}
	case []int:
		if idx < len(arr) {
			return arr[idx]
		}
	case []int32:
		if idx < len(arr) {
			return int64(arr[idx])
		}
	case []bool:
		if idx < len(arr) {
			return arr[idx]
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val)
	case float32:
		return float64(val), !math.IsNaN(float64(val))
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	}
	return 0, false
}

func toInt(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case uint32:
		return int64(val), true
	case float64:
		// NaN fails both comparisons
		if !(val >= -0x1p63 && val < 0x1p63) {
			return 0, false
		}
		return int64(val), true
	case float32:
		return toInt(float64(val))
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
