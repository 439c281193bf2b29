package logging

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerContextFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core)).With("component", "test")

	ctx := WithRequestID(context.Background(), "req-42")
	logger.WarnContext(ctx, "backend slow", "video_id", "v1", "error", errors.New("timeout"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-42" || fields["video_id"] != "v1" || fields["component"] != "test" {
		t.Fatalf("unexpected fields %#v", fields)
	}
	if fields["error"] != "timeout" {
		t.Fatalf("expected error field, got %#v", fields["error"])
	}
}

func TestLoggerOddArgs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	FromZap(zap.New(core)).Info("odd", 7, "x", "dangling")

	fields := logs.All()[0].ContextMap()
	if fields["arg"] != "x" {
		t.Fatalf("non-string key must be renamed, got %#v", fields)
	}
	if _, ok := fields["dangling"]; !ok {
		t.Fatalf("dangling key must be kept, got %#v", fields)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	if level, err := ParseLevel(" DEBUG "); err != nil || level != LevelDebug {
		t.Fatalf("unexpected result %v %v", level, err)
	}
	if level, err := ParseLevel(""); err != nil || level != LevelInfo {
		t.Fatalf("empty level must default to info, got %v %v", level, err)
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Fatalf("expected error for unsupported level")
	}
}

func TestNilLoggerFallsBackToDefault(t *testing.T) {
	t.Parallel()

	var logger *Logger
	logger.InfoContext(context.Background(), "no panic")
	if RequestIDFromContext(context.Background()) != "" {
		t.Fatalf("expected empty request id")
	}
}
