// Package settings persists per overlay configuration.
//
// A settings document is a JSON object with a "common_settings" object shared
// by all overlays plus overlay specific top level keys. Keys missing in a
// stored or submitted document are filled from the overlay defaults.
package settings

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ohler55/ojg/oj"
)

var (
	ErrUnknownOverlay  = errors.New("unknown overlay")
	ErrInvalidSettings = errors.New("invalid settings")
)

const (
	Standings          = "standings"
	Relative           = "relative"
	Timer              = "timer"
	SubTimer           = "subtimer"
	LapTimes           = "lap_times"
	Telemetry          = "telemetry"
	TelemetryReference = "telemetry_reference"
	Proximity          = "proximity"
	TrackMap           = "track_map"
)

const commonKey = "common_settings"

type kind string

const (
	kindBool kind = "boolean"
	kindInt  kind = "integer"
)

type field struct {
	name string
	kind kind
	def  any
	min  *int
	max  *int
}

func boolField(name string, def bool) field {
	return field{name: name, kind: kindBool, def: def}
}

func intField(name string, def int, bounds ...int) field {
	f := field{name: name, kind: kindInt, def: def}
	if len(bounds) > 0 {
		f.min = &bounds[0]
	}
	if len(bounds) > 1 {
		f.max = &bounds[1]
	}
	return f
}

type overlay struct {
	id     string
	common commonDefaults
	fields []field
}

type commonDefaults struct {
	enabled       bool
	width, height int
	x, y          int
}

func (c commonDefaults) fields() []field {
	return []field{
		boolField("enabled", c.enabled),
		intField("width", c.width, 0),
		intField("height", c.height, 0),
		intField("opacity", 100, 0, 100),
		intField("scale", 100, 25, 400),
		intField("x", c.x),
		intField("y", c.y),
	}
}

var overlays = []overlay{
	{
		id:     Standings,
		common: commonDefaults{enabled: true, width: 520, height: 600, x: 40, y: 200},
		fields: []field{intField("max_drivers", 20, 0, 64), intField("top_drivers", 3, 0, 64)},
	},
	{
		id:     Relative,
		common: commonDefaults{enabled: true, width: 480, height: 260, x: 1380, y: 700},
		fields: []field{boolField("show_irating", true)},
	},
	{
		id:     Timer,
		common: commonDefaults{enabled: true, width: 300, height: 60, x: 810, y: 20},
		fields: []field{boolField("delta_enabled", true), intField("delta_width", 120, 0)},
	},
	{
		id:     SubTimer,
		common: commonDefaults{enabled: true, width: 300, height: 40, x: 810, y: 80},
		fields: []field{
			intField("session_state_width", 140, 0),
			boolField("gap_enabled", true),
			intField("gap_width", 80, 0),
		},
	},
	{
		id:     LapTimes,
		common: commonDefaults{enabled: false, width: 200, height: 180, x: 40, y: 820},
	},
	{
		id:     Telemetry,
		common: commonDefaults{enabled: true, width: 560, height: 120, x: 680, y: 940},
		fields: []field{boolField("show_reference_telemetry", false)},
	},
	{
		id:     TelemetryReference,
		common: commonDefaults{enabled: false, width: 560, height: 120, x: 680, y: 800},
		fields: []field{boolField("show_throttle", true), boolField("show_steering", false)},
	},
	{
		id:     Proximity,
		common: commonDefaults{enabled: true, width: 900, height: 300, x: 510, y: 400},
		fields: []field{intField("gap_width", 300, 0)},
	},
	{
		id:     TrackMap,
		common: commonDefaults{enabled: false, width: 300, height: 300, x: 1580, y: 40},
	},
}

// Overlays returns the known overlay ids in a stable order
func Overlays() []string {
	ret := make([]string, 0, len(overlays))
	for i := range overlays {
		ret = append(ret, overlays[i].id)
	}
	slices.Sort(ret)
	return ret
}

func lookup(id string) (*overlay, error) {
	for i := range overlays {
		if overlays[i].id == id {
			return &overlays[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownOverlay, id)
}

// Defaults returns the default document of an overlay
func Defaults(id string) (map[string]any, error) {
	o, err := lookup(id)
	if err != nil {
		return nil, err
	}
	return o.defaults(), nil
}

func (o *overlay) defaults() map[string]any {
	common := map[string]any{}
	for _, f := range o.common.fields() {
		common[f.name] = f.def
	}
	ret := map[string]any{commonKey: common}
	for _, f := range o.fields {
		ret[f.name] = f.def
	}
	return ret
}

// withDefaults fills keys missing in doc from the overlay defaults.
// Keys unknown to the overlay are kept so the schema can reject them.
func (o *overlay) withDefaults(doc map[string]any) map[string]any {
	ret := o.defaults()
	for k, v := range doc {
		if k != commonKey {
			ret[k] = v
			continue
		}
		common, ok := v.(map[string]any)
		if !ok {
			ret[k] = v
			continue
		}
		target := ret[commonKey].(map[string]any)
		for ck, cv := range common {
			target[ck] = cv
		}
	}
	return ret
}

// schema returns the JSON schema of the overlay document
func (o *overlay) schema() map[string]any {
	return map[string]any{
		"title": o.id + " overlay settings",
		"type":  "object",
		"properties": func() map[string]any {
			props := properties(o.fields)
			props[commonKey] = object(o.common.fields())
			return props
		}(),
		"required":             append(names(o.fields), commonKey),
		"additionalProperties": false,
	}
}

func object(fields []field) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           properties(fields),
		"required":             names(fields),
		"additionalProperties": false,
	}
}

func properties(fields []field) map[string]any {
	ret := map[string]any{}
	for _, f := range fields {
		p := map[string]any{"type": string(f.kind)}
		if f.min != nil {
			p["minimum"] = *f.min
		}
		if f.max != nil {
			p["maximum"] = *f.max
		}
		ret[f.name] = p
	}
	return ret
}

func names(fields []field) []any {
	ret := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		ret = append(ret, f.name)
	}
	return ret
}

// StandingsSettings is the typed view of the standings document
type StandingsSettings struct {
	Common     CommonSettings `json:"common_settings"`
	MaxDrivers int            `json:"max_drivers"`
	TopDrivers int            `json:"top_drivers"`
}

type CommonSettings struct {
	Enabled bool `json:"enabled"`
	Width   int  `json:"width"`
	Height  int  `json:"height"`
	Opacity int  `json:"opacity"`
	Scale   int  `json:"scale"`
	X       int  `json:"x"`
	Y       int  `json:"y"`
}

// ParseStandings decodes a standings document
func ParseStandings(doc []byte) (*StandingsSettings, error) {
	parsed, err := oj.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("parse standings settings: %w", err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrInvalidSettings, parsed)
	}
	return &StandingsSettings{
		Common:     parseCommon(obj[commonKey]),
		MaxDrivers: intOf(obj["max_drivers"]),
		TopDrivers: intOf(obj["top_drivers"]),
	}, nil
}

func parseCommon(v any) CommonSettings {
	m, _ := v.(map[string]any)
	enabled, _ := m["enabled"].(bool)
	return CommonSettings{
		Enabled: enabled,
		Width:   intOf(m["width"]),
		Height:  intOf(m["height"]),
		Opacity: intOf(m["opacity"]),
		Scale:   intOf(m["scale"]),
		X:       intOf(m["x"]),
		Y:       intOf(m["y"]),
	}
}

func intOf(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
