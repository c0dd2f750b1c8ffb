package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"memsqlite/internal/core/records"
)

// ProcessFile reads one newline-delimited JSON session log, normalizes every
// line, and syncs the batch. The session id is derived from the file name.
// A parse failure for the whole file surfaces here so the caller can log it
// and move on to the next file.
func (e *Engine) ProcessFile(path string) (*Result, error) {
	sessionID := strings.TrimSuffix(filepath.Base(path), ".jsonl")

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var recs []*records.Record
	for i, line := range bytes.Split(content, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		rec, err := records.Normalize(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		recs = append(recs, rec)
	}

	return e.Sync(recs, sessionID, path)
}
