//nolint:thelper,whitespace,lll,funlen // ok for tests
package signals

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracehud-go/pkg/emitter"
)

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	render(&buf, emitter.Signals())
	out := buf.String()
	for _, name := range []string{"speed", "standings", "relative", "fastest_lap"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "35")
}

func TestCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewSignalsCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	assert.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "active")
}
