package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })
	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := captureLogs(t)

	Logf("frame %d", 7)
	assert.Equal(t, []string{"frame 7"}, *lines)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("muted") })
	assert.Len(t, *lines, 1, "no-op logger should not reach the previous callback")
}

func TestDebugf(t *testing.T) {
	lines := captureLogs(t)
	t.Cleanup(func() { SetVerbose(false) })

	SetVerbose(false)
	Debugf("hidden")
	assert.Empty(t, *lines)
	assert.False(t, Verbose())

	SetVerbose(true)
	Debugf("shown %s", "now")
	assert.Equal(t, []string{"shown now"}, *lines)
	assert.True(t, Verbose())
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}
