package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestStdLogger_LevelFilteringAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, LevelInfo, 0)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "opened", map[string]interface{}{"symbol": "BTCUSDT", "size": 2.5, "a": 1})
	l.Error(ctx, errors.New("boom"), "failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] opened | a=1 size=2.5 symbol=BTCUSDT\n")
	assert.Contains(t, out, "[ERROR] failed | error: boom\n")
}
