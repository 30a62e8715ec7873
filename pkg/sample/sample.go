// Package sample defines the read contract for raw simulator samples.
//
// A missing or mistyped field never fails: every accessor takes the value to
// use in that case.
package sample

import "errors"

var ErrNoData = errors.New("no sample data available")

type Sample interface {
	Float(name string, def float64) float64
	Int(name string, def int64) int64
	Bool(name string, def bool) bool
	// FloatAt reads element idx of an array valued field
	FloatAt(name string, idx int, def float64) float64
	IntAt(name string, idx int, def int64) int64
	// SessionInfoUpdate is the version of the session metadata document.
	SessionInfoUpdate() int32
	// SessionInfo returns the metadata document, never nil
	SessionInfo() *Document
}
