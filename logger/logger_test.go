package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewStandardLogger(&buf)

	log.Debugf("hidden %d", 1)
	log.Infof("shown %d", 2)
	log.Warnf("shown %d", 3)
	log.Errorf("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO:  shown 2")
	assert.Contains(t, out, "WARN:  shown 3")
	assert.Contains(t, out, "ERROR: shown 4")
}

func TestVerboseLoggerShowsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewVerboseLogger(&buf)

	log.Debugf("visible")
	assert.Contains(t, buf.String(), "DEBUG: visible")
}

func TestStandardLoggerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	NewStandardLogger(&buf).Infof("x")

	// lines start with a parseable UTC timestamp
	line := buf.String()
	fields := strings.SplitN(line, " ", 2)
	require.Len(t, fields, 2)
	_, err := time.Parse(RFC3339UsecTz0, fields[0])
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(fields[0], "Z"))
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	log := NewStandardLogger(&buf).WithPrefix("sub: ")
	log.Infof("msg")
	assert.Contains(t, buf.String(), "sub: ")
}

func TestBufferLogger(t *testing.T) {
	log := NewBufferLogger()
	log.Infof("a %d", 1)
	log.Debugf("suppressed")
	log.Errorf("b")

	out, err := log.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "INFO:  a 1ERROR: b", string(out))
}

func TestNopLogger(t *testing.T) {
	// must not panic and WithPrefix returns a usable logger
	NopLogger.Infof("x")
	NopLogger.WithPrefix("p").Errorf("y")
}
