package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentDashboard, Output: buf})

	logger.Info("hello", FieldCustomerID, 7)
	out := buf.String()
	if !strings.Contains(out, "component=dashboard") {
		t.Errorf("missing component in %q", out)
	}
	if !strings.Contains(out, "customer_id=7") {
		t.Errorf("missing field in %q", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentSource).Warn("switched")
	if !strings.Contains(buf.String(), "component=source") {
		t.Errorf("WithComponent not applied: %q", buf.String())
	}
	if strings.Count(buf.String(), "component=") != 1 {
		t.Errorf("component logged more than once: %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Output: buf})
	ctx := WithContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected stored logger")
	}

	fallback := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(fallback, nil)))
	defer slog.SetDefault(prev)

	FromContext(context.Background()).Info("orphan")
	if !strings.Contains(fallback.String(), "component=unknown") {
		t.Fatalf("expected fallback logger on the default handler, got %q", fallback.String())
	}
	if buf.Len() != 0 {
		t.Fatal("fallback must not write to the stored logger")
	}
}

func TestStructuredLoggerEvents(t *testing.T) {
	buf := &bytes.Buffer{}
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Output: buf}))

	id := int64(2)
	sl.LogFilterChanged(context.Background(), OpSelectCustomer, "by_customer_day", &id, nil, 3, 2)
	out := buf.String()
	for _, part := range []string{"customer_id=2", "min_amount=none", "operation=select_customer", "chart_mode=by_customer_day", "filtered_transactions=3"} {
		if !strings.Contains(out, part) {
			t.Errorf("missing %q in %q", part, out)
		}
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("bad"), ComponentSource, OpFetch, nil)
	if !strings.Contains(buf.String(), "error=bad") || !strings.Contains(buf.String(), "component=source") {
		t.Errorf("unexpected error log: %q", buf.String())
	}

	buf.Reset()
	req := httptest.NewRequest(http.MethodPost, "/ui/min-amount", nil)
	sl.LogHTTPEnd(context.Background(), req, http.StatusUnprocessableEntity, 3, "1.2.3.4")
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("4xx should log at warn: %q", buf.String())
	}
}
