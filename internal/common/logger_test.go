package common

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", "json", &buf)

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	logger.WithField("pool", "abc").Debug("loaded")
	assert.Contains(t, buf.String(), `"pool":"abc"`)

	logger = NewLogger("nonsense", "text", &buf)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestLoggerMixin(t *testing.T) {
	var m LoggerMixin
	assert.NotNil(t, m.GetLogger())

	custom := DiscardLogger()
	m.SetLogger(custom)
	assert.Same(t, custom, m.GetLogger())

	m.SetLogger(nil)
	assert.Same(t, custom, m.GetLogger())
}
