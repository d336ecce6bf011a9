package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/predicate/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := logger.New().(*logger.Logger)
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_Golden(t *testing.T) {
	tests := []struct {
		name string
		log  func(*logger.Logger)
	}{
		{"info_basic", func(l *logger.Logger) { l.Info("fetched 3 devices") }},
		{"warn_basic", func(l *logger.Logger) { l.Warn("serving stale entry for K201234") }},
		{"error_simple", func(l *logger.Logger) { l.Error(errors.New("permission denied")) }},
		{"error_chain", func(l *logger.Logger) {
			inner := zerr.With(zerr.New("too many requests"), "status", 429)
			l.Error(zerr.With(zerr.Wrap(inner, "retries exhausted"), "endpoint", "510k"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			tt.log(lg)

			g := goldie.New(t)
			g.Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestLogger_ErrorNil(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_JSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)

	lg.Error(zerr.With(zerr.New("document unavailable"), "device", "K201234"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ERROR", rec[slog.LevelKey])
	assert.Equal(t, "document unavailable", rec[slog.MessageKey])
	assert.Equal(t, "K201234", rec["device"])
}

func TestLogger_SetOutputKeepsMode(t *testing.T) {
	lg, _ := newTestLogger(t)
	lg.SetJSON(true)

	buf := &bytes.Buffer{}
	lg.SetOutput(buf)
	lg.Info("hello")

	assert.True(t, json.Valid(buf.Bytes()))
}

func TestPrettyHandler_Attrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	buf := &bytes.Buffer{}

	h := logger.NewPrettyHandler(buf, nil)
	lg := slog.New(h).With("run", "r1").WithGroup("fetch")
	lg.Info("done", "devices", 4)
	lg.Debug("hidden")

	assert.Equal(t, "done fetch.run=r1 fetch.devices=4\n", buf.String())
}
