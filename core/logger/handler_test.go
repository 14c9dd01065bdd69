package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func captureLine(t *testing.T, format logFormat, ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	LogEvent(ctx, slog.New(handler).With("component", component), level, event, attrs...)
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	line := captureLine(t, formatKV, ctx, "dialogue", slog.LevelInfo, "rsvp.done",
		slog.String("status", "ok"),
		EventID("e-1"),
	)
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=dialogue", "event=rsvp.done", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "event_id=e-1"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	line := captureLine(t, formatJSON, ctx, "service.rsvps", slog.LevelError, "upsert.failed",
		slog.String("status", "FAIL"),
		slog.String("err", "boom"),
	)
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"service.rsvps"`, `"event":"upsert.failed"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := "123:456:789"
	ctx := WithRID(context.Background(), rawRID)

	kv := captureLine(t, formatKV, ctx, "app", slog.LevelInfo, "rid.test")
	if !strings.Contains(kv, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", kv)
	}
	if strings.Contains(kv, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", kv)
	}

	js := captureLine(t, formatJSON, ctx, "app", slog.LevelInfo, "rid.test")
	if !strings.Contains(js, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", js)
	}
	if !strings.Contains(js, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", js)
	}
}

func TestStructuredHandlerOutcomeAndDuration(t *testing.T) {
	line := captureLine(t, formatKV, context.Background(), "dialogue", slog.LevelInfo, "dialogue.finished",
		slog.String("outcome", "capacity_rejected"),
		slog.Duration("duration", 1500000),
	)
	if !strings.Contains(line, "outcome=capacity_rejected") {
		t.Fatalf("expected outcome, got %s", line)
	}
	if !strings.Contains(line, "duration_ms=2") {
		t.Fatalf("expected rounded duration_ms, got %s", line)
	}

	line = captureLine(t, formatKV, context.Background(), "dialogue", slog.LevelInfo, "x",
		slog.String("outcome", "exploded"))
	if strings.Contains(line, "outcome=") {
		t.Fatalf("unknown outcome should be dropped, got %s", line)
	}
}

func TestStructuredHandlerLevelFilter(t *testing.T) {
	line := captureLine(t, formatKV, context.Background(), "app", slog.LevelDebug, "too.chatty")
	if line != "" {
		t.Fatalf("debug line should be filtered at info level, got %s", line)
	}
}

func TestDefaultLoggersDiscard(t *testing.T) {
	// Component loggers are usable before InitLogger.
	Info(context.Background(), "dialogue", "noop")
	if DB == nil || Jobs == nil {
		t.Fatal("component loggers must never be nil")
	}
}

func TestCompactRID(t *testing.T) {
	if got := CompactRID("35:36:1"); got != "z.10.1" {
		t.Fatalf("got %s", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("got %s", got)
	}
}
