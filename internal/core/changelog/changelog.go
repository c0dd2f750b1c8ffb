// Package changelog appends an audit record of every write decision to a
// JSONL file separate from the transactional store. The log is best-effort:
// a failed append is reported to stderr and never blocks a data write.
package changelog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Entry is one line of the change log
type Entry struct {
	Timestamp string      `json:"timestamp"`
	Operation string      `json:"operation"` // insert, update, delete
	Table     string      `json:"table"`
	SessionID string      `json:"sessionId"`
	MessageID string      `json:"messageId,omitempty"`
	Changes   interface{} `json:"changes"`
	LogID     string      `json:"logId"`
}

// Logger appends entries to a fixed log path
type Logger struct {
	path string
}

// New creates a logger writing to logPath, creating parent directories.
// Callers construct one per process and inject it; tests construct a fresh
// instance per test.
func New(logPath string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Logger{path: logPath}, nil
}

// Path returns the log file location
func (l *Logger) Path() string {
	return l.path
}

// Log appends one entry. Failure is logged to stderr only.
func (l *Logger) Log(entry Entry) {
	entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	entry.LogID = fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])

	line, err := json.Marshal(entry)
	if err != nil {
		log.Printf("Failed to encode change log entry: %v", err)
		return
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("Failed to open change log: %v", err)
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Printf("Failed to write change log entry: %v", err)
	}
}

// LogSessionInsert records a newly created session row
func (l *Logger) LogSessionInsert(sessionID, sessionPath string) {
	l.Log(Entry{
		Operation: "insert",
		Table:     "sessions",
		SessionID: sessionID,
		Changes:   map[string]string{"sessionPath": sessionPath},
	})
}

// LogMessageInsert records a newly inserted message row
func (l *Logger) LogMessageInsert(sessionID, messageID, messageType string) {
	l.Log(Entry{
		Operation: "insert",
		Table:     "messages",
		SessionID: sessionID,
		MessageID: messageID,
		Changes:   map[string]string{"type": messageType},
	})
}

// LogBatch records a batch summary after a sync pass touched any rows
func (l *Logger) LogBatch(sessionID, operation string, count int) {
	l.Log(Entry{
		Operation: "insert",
		Table:     "batch_operation",
		SessionID: sessionID,
		Changes:   map[string]interface{}{"operation": operation, "count": count},
	})
}
