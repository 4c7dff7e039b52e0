package logger_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"crisisConnect/pkg/logger"
)

func TestTee_WritesToEveryLogger(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	la := slog.New(slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}))
	lb := slog.New(slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}))

	l := logger.Tee(la, nil, lb).With(slog.String("component", "test"))
	l.Info("info line")
	l.Warn("warn line")

	if !strings.Contains(a.String(), "info line") || !strings.Contains(a.String(), "warn line") {
		t.Fatalf("text logger missed records: %q", a.String())
	}
	if strings.Contains(b.String(), "info line") {
		t.Fatalf("json logger must honour its own level: %q", b.String())
	}
	if !strings.Contains(b.String(), `"component":"test"`) {
		t.Fatalf("attrs not propagated: %q", b.String())
	}
}

func TestTee_Single(t *testing.T) {
	t.Parallel()

	var a bytes.Buffer
	la := slog.New(slog.NewTextHandler(&a, nil))
	logger.Tee(la).Info("only")
	if !strings.Contains(a.String(), "only") {
		t.Fatalf("expected record, got %q", a.String())
	}
}
