package logs

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorly/tutorly_backend/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Environment = "production"
	cfg.Observability.ServiceName = "tutorly_backend"
	cfg.Observability.ServiceVersion = "test"
	cfg.Logging.Level = "info"
	cfg.Logging.Output.Stdout = true
	return cfg
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNew_ProductionWritesJSONWithBaseAttrs(t *testing.T) {
	var buf bytes.Buffer
	log, flush := newLogger(baseConfig(), &buf)
	defer flush()

	log.Debug("hidden")
	log.Info("hello", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"service":"tutorly_backend"`)
	assert.Contains(t, out, `"env":"production"`)
}

func TestNew_DevelopmentTextFormat(t *testing.T) {
	cfg := baseConfig()
	cfg.Server.Environment = "development"
	cfg.Logging.Format = "text"

	var buf bytes.Buffer
	log, flush := newLogger(cfg, &buf)
	defer flush()
	log.Info("hello")

	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNew_FileOutput(t *testing.T) {
	cfg := baseConfig()
	cfg.Logging.Output.Stdout = false
	cfg.Logging.Output.File.Enabled = true
	cfg.Logging.Output.File.Path = filepath.Join(t.TempDir(), "app.log")
	cfg.Logging.Output.File.MaxSizeMB = 1

	var buf bytes.Buffer
	log, flush := newLogger(cfg, &buf)
	defer flush()
	log.Warn("rotated")

	data, err := os.ReadFile(cfg.Logging.Output.File.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotated")
	assert.Empty(t, buf.String())
}

func TestMultiHandler_RespectsEachLevel(t *testing.T) {
	var info, errOnly bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errOnly, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	log := slog.New(h).With("req", "abc")

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	log.Info("one")
	log.Error("two")

	assert.Contains(t, info.String(), "one")
	assert.Contains(t, info.String(), "two")
	assert.NotContains(t, errOnly.String(), "one")
	assert.Contains(t, errOnly.String(), `"req":"abc"`)
}
