// Package source defines where raw samples come from.
package source

import (
	"context"
	"errors"

	"github.com/mpapenbr/iracehud-go/pkg/sample"
)

var ErrEndOfRecording = errors.New("end of recording")

type Source interface {
	// Next blocks until a new sample is available or ctx is done.
	Next(ctx context.Context) (sample.Sample, error)
	Close() error
}
