package adapter

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/siddharth-2002/API-Workindia/pkg/application"
)

func TestZapAppLogger_FieldsAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapAppLoggerFrom(zap.New(core))

	ctx := application.WithRequestID(context.Background(), "req-1")
	application.LogError(ctx, logger, "booking failed", errors.New("boom"), map[string]interface{}{"train_id": int64(7)})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["requestID"] != "req-1" {
		t.Errorf("expected request id field, got %v", fields["requestID"])
	}
	if fields["error"] != "boom" {
		t.Errorf("expected error field, got %v", fields["error"])
	}
	if fields["train_id"] != int64(7) {
		t.Errorf("expected train_id field, got %v", fields["train_id"])
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("expected error level, got %v", entries[0].Level)
	}
}

func TestZapAppLogger_TraceIsDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapAppLoggerFrom(zap.New(core))

	logger.Trace(context.Background(), "lock acquired", nil)

	if logs.Len() != 1 || logs.All()[0].Level != zapcore.DebugLevel {
		t.Fatalf("expected one debug entry, got %+v", logs.All())
	}
}

func TestNewZapAppLogger_InvalidLevel(t *testing.T) {
	if _, err := NewZapAppLogger(Config{App: "test", Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
