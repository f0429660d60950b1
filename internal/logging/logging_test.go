package logging_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/optimode/emailfinder/config"
	"github.com/optimode/emailfinder/internal/logging"
)

func TestNew_LevelAndFormat(t *testing.T) {
	t.Setenv("DEBUG", "")
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	log := logging.New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.WithField("request_id", "abc").Warn("probe degraded")
	assert.Contains(t, buf.String(), `"request_id":"abc"`)
	assert.Contains(t, buf.String(), `"msg":"probe degraded"`)
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("DEBUG", "")
	t.Setenv("LOG_LEVEL", "trace")
	log := logging.New(config.LogConfig{Level: "info"}, &bytes.Buffer{})
	assert.Equal(t, logrus.TraceLevel, log.GetLevel())

	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEBUG", "1")
	log = logging.New(config.LogConfig{Level: "info"}, &bytes.Buffer{})
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestParseLevel_Fallback(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, logging.ParseLevel("loud"))
	assert.Equal(t, logrus.ErrorLevel, logging.ParseLevel("error"))
}
