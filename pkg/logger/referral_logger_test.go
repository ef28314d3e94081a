package logger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"fatal", LevelFatal},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogger_JSONEntry(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf, Service: "test-svc"})

	l.WithField("request_id", "abc").
		WithError(errors.New("boom")).
		Warn("login failed for %s", "ann@x.com")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "test-svc", entry["service"])
	assert.Equal(t, "abc", entry["request_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "login failed for ann@x.com", entry["message"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Debug("dropped")
	l.Info("dropped too")
	assert.Zero(t, buf.Len())

	l.Error("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLogger_WithErrorNil(t *testing.T) {
	l := New(Config{Output: &bytes.Buffer{}})
	assert.Same(t, l, l.WithError(nil))
}

func TestLogger_WithDuration(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf})

	l.WithDuration(1500 * time.Microsecond).Info("done")
	assert.Contains(t, buf.String(), `"duration_ms":1.5`)
}
