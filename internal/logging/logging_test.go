package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitWithHandler(slog.NewJSONHandler(&buf, nil))
	t.Cleanup(func() { Init(slog.LevelInfo, false) })
	return &buf
}

func TestComponent(t *testing.T) {
	buf := capture(t)

	log := Component("runner")
	log.Info("pool started", "workers", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	if entry["component"] != "runner" {
		t.Errorf("component: expected runner, got %v", entry["component"])
	}
	if entry["msg"] != "pool started" {
		t.Errorf("msg: expected pool started, got %v", entry["msg"])
	}
	if entry["workers"] != float64(3) {
		t.Errorf("workers: expected 3, got %v", entry["workers"])
	}
}

func TestTask(t *testing.T) {
	buf := capture(t)

	log := Task("orderbook", "BTCUSDT", "2025-05-01")
	log.Info("task done")

	out := buf.String()
	for _, want := range []string{`"dataset":"orderbook"`, `"symbol":"BTCUSDT"`, `"date":"2025-05-01"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	buf := capture(t)

	Info("hello", "k", "v")
	Warn("careful")
	Error("broken")

	out := buf.String()
	if got := strings.Count(out, "\n"); got != 3 {
		t.Errorf("expected 3 entries, got %d", got)
	}
	for _, want := range []string{"INFO", "WARN", "ERROR"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing level %s", want)
		}
	}
}
