package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerFromContextAddsConnectionID(t *testing.T) {
	var buf bytes.Buffer
	restoreLogger(t)

	Setup(&buf, "json", "info")

	ctx := WithConnectionID(context.Background(), "conn-1")
	LoggerFromContext(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["connection_id"] != "conn-1" {
		t.Fatalf("expected connection_id, got %v", entry)
	}
}

func TestSetupLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	restoreLogger(t)

	Setup(&buf, "text", "warn")
	Logger().Info("quiet")
	Logger().Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, "loud") {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if lvl := parseLevel("verbose"); lvl.String() != "INFO" {
		t.Fatalf("expected INFO, got %s", lvl)
	}
}

func restoreLogger(t *testing.T) {
	t.Helper()
	prev, prevDefault := Logger(), slog.Default()
	t.Cleanup(func() {
		logger.Store(prev)
		slog.SetDefault(prevDefault)
	})
}
