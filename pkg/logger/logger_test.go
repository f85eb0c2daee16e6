package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/wyfcoding/tradeportal/pkg/contextx"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	prev := globalLogger
	globalLogger = slog.New(NewHandler(&buf, Config{Level: "debug", Format: "json"}))
	defer func() { globalLogger = prev }()

	ctx := contextx.WithTraceID(context.Background(), "corr-1")
	ctx = contextx.WithRequestID(ctx, "req-1")
	Info(ctx, "order placed", "order_id", "o-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	if entry["trace_id"] != "corr-1" || entry["request_id"] != "req-1" {
		t.Fatalf("missing correlation fields: %v", entry)
	}
	if entry["order_id"] != "o-1" {
		t.Fatalf("missing order_id: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
