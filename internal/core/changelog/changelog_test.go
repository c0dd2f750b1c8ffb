package changelog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (*Logger, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "logs", "changes.jsonl")
	logger, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return logger, path
}

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("Line %q is not valid JSON: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestNew_CreatesDirectory(t *testing.T) {
	logger, path := newTestLogger(t)

	if logger.Path() != path {
		t.Errorf("Path() = %q, want %q", logger.Path(), path)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("Expected log directory to exist: %v", err)
	}
}

func TestLog_AppendsJSONLines(t *testing.T) {
	logger, path := newTestLogger(t)

	logger.LogSessionInsert("sess-1", "/tmp/sess-1.jsonl")
	logger.LogMessageInsert("sess-1", "m1", "user")
	logger.LogBatch("sess-1", "sync_batch", 1)

	entries := readEntries(t, path)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Operation != "insert" || first.Table != "sessions" || first.SessionID != "sess-1" {
		t.Errorf("Session entry = %+v", first)
	}
	if first.LogID == "" || first.Timestamp == "" {
		t.Error("Expected logId and timestamp to be set")
	}

	if entries[1].MessageID != "m1" {
		t.Errorf("Message entry = %+v", entries[1])
	}

	changes, ok := entries[2].Changes.(map[string]interface{})
	if !ok || changes["count"] != float64(1) {
		t.Errorf("Batch entry changes = %v", entries[2].Changes)
	}
}

func TestLog_UniqueLogIDs(t *testing.T) {
	logger, path := newTestLogger(t)

	for i := 0; i < 10; i++ {
		logger.LogMessageInsert("sess-1", "m1", "user")
	}

	seen := map[string]bool{}
	for _, e := range readEntries(t, path) {
		if seen[e.LogID] {
			t.Fatalf("Duplicate logId %q", e.LogID)
		}
		seen[e.LogID] = true
	}
}

func TestLog_FailureDoesNotPanic(t *testing.T) {
	// Point at a path whose parent is a file, so appends fail
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	logger := &Logger{path: filepath.Join(blocker, "changes.jsonl")}
	logger.LogSessionInsert("sess-1", "/tmp/sess-1.jsonl") // must not panic
}
