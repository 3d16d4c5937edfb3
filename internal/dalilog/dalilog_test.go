package dalilog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsToInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf, Prefix: "test"})

	logger.Debug("should not appear")
	logger.Info("should appear", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
	assert.True(t, strings.Contains(out, "key=value"))
}

func TestNewDebugOptionRaisesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf, Debug: true})

	logger.Debug("visible now")
	assert.Contains(t, buf.String(), "visible now")
}

func TestNewHonoursExplicitLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf, Level: log.ErrorLevel})

	logger.Warn("should not appear")
	logger.Error("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}
