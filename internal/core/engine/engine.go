// Package engine is the transactional core of the sync pipeline: it takes a
// batch of normalized records for one session and upserts them idempotently
// inside a single transaction, serialized per session and retried on store
// contention.
package engine

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"memsqlite/internal/core/changelog"
	"memsqlite/internal/core/db"
	"memsqlite/internal/core/lock"
	"memsqlite/internal/core/records"
)

// Result reports the outcome of one batch
type Result struct {
	Inserted int
	Updated  int // already present, not refreshed
	Errors   []error
}

// Engine executes batches against the store at dbPath
type Engine struct {
	dbPath string
	logger *changelog.Logger
	locks  *lock.Mutex
}

// New creates an engine. The coordinator and change logger are shared
// process-wide and injected by the caller.
func New(dbPath string, logger *changelog.Logger, locks *lock.Mutex) *Engine {
	return &Engine{dbPath: dbPath, logger: logger, locks: locks}
}

// Sync upserts a batch of records for one session. Concurrent calls for the
// same session execute one at a time in arrival order; busy/locked store
// errors are retried with backoff. An empty batch is a legal no-op that
// still ensures the session row.
func (e *Engine) Sync(recs []*records.Record, sessionID, sessionPath string) (*Result, error) {
	var result *Result

	// Session key first, then the global write key: same-session batches
	// queue in arrival order, and all in-process writers serialize before
	// touching the store so busy retries are only needed for other
	// processes.
	err := e.locks.WithLock(lock.SessionKey(sessionID), func() error {
		return WithRetry(func() error {
			return e.locks.WithLock(lock.WriteKey, func() error {
				r, err := e.executeBatch(recs, sessionID, sessionPath)
				if err != nil {
					return err
				}
				result = r
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// executeBatch runs one atomic transaction over its own store handle. The
// handle is closed on completion, success or failure, so a retried attempt
// starts from a clean state.
func (e *Engine) executeBatch(recs []*records.Record, sessionID, sessionPath string) (*Result, error) {
	store, err := db.Open(e.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	tx, err := store.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := e.ensureSession(tx, sessionID, sessionPath); err != nil {
		return nil, err
	}

	result := &Result{}
	for _, rec := range recs {
		messageID := e.messageID(rec, sessionID)

		var existing string
		err := tx.QueryRow("SELECT id FROM messages WHERE id = ?", messageID).Scan(&existing)
		switch {
		case err == nil:
			result.Updated++
		case err == sql.ErrNoRows:
			if insertErr := e.insertMessage(tx, rec, messageID, sessionID, result); insertErr != nil {
				// One malformed record must not poison the batch
				result.Errors = append(result.Errors, fmt.Errorf("message %s: %w", messageID, insertErr))
				continue
			}
			result.Inserted++
		default:
			result.Errors = append(result.Errors, fmt.Errorf("message %s: %w", messageID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	if result.Inserted > 0 || result.Updated > 0 {
		e.logger.LogBatch(sessionID, "sync_batch", result.Inserted+result.Updated)
	}

	return result, nil
}

// ensureSession idempotently creates the session row, logging only when a
// row was actually created
func (e *Engine) ensureSession(tx *sql.Tx, sessionID, sessionPath string) error {
	res, err := tx.Exec(`
		INSERT OR IGNORE INTO sessions (id, sessionId, sessionPath)
		VALUES (?, ?, ?)
	`, sessionID, sessionID, sessionPath)
	if err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		e.logger.LogSessionInsert(sessionID, sessionPath)
	}

	return nil
}

// messageID derives the stable id for a record. The synthesized fallback
// combines session id, wall-clock time, and a random component; it breaks
// idempotence across re-runs and only triggers for records with neither
// uuid nor leafUuid.
func (e *Engine) messageID(rec *records.Record, sessionID string) string {
	if rec.ID != "" {
		return rec.ID
	}
	return fmt.Sprintf("%s_%d_%s", sessionID, time.Now().UnixMilli(), uuid.NewString()[:8])
}

func (e *Engine) insertMessage(tx *sql.Tx, rec *records.Record, messageID, sessionID string, result *Result) error {
	columns := []string{"id", "sessionId", "type", "timestamp", "isSidechain"}
	values := []interface{}{messageID, sessionID, rec.Type, rec.Timestamp, rec.IsSidechain}

	// The normalizer projects each tag onto its registered columns, so
	// Fields holds only type-specific columns; unknown tags arrive with
	// none and insert the common columns only. Keys are sorted for a
	// deterministic statement.
	fieldCols := make([]string, 0, len(rec.Fields))
	for col := range rec.Fields {
		fieldCols = append(fieldCols, col)
	}
	sort.Strings(fieldCols)
	for _, col := range fieldCols {
		columns = append(columns, col)
		values = append(values, coerceValue(rec.Fields[col]))
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	query := fmt.Sprintf("INSERT INTO messages (%s) VALUES (%s)",
		strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := tx.Exec(query, values...); err != nil {
		return err
	}

	e.logger.LogMessageInsert(sessionID, messageID, rec.Type)

	// Child rows ride in the same transaction; a failed child row is
	// reported without dropping the parent message
	for _, tu := range rec.ToolUses {
		if err := insertToolUse(tx, tu, messageID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("tool_use %s: %w", tu.ID, err))
		}
	}
	for _, tr := range rec.ToolUseResults {
		if err := insertToolUseResult(tx, tr, messageID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("tool_use_result %s: %w", tr.ToolUseID, err))
		}
	}

	return nil
}

func insertToolUse(tx *sql.Tx, tu records.ToolUse, messageID string) error {
	_, err := tx.Exec(`
		INSERT OR IGNORE INTO tool_uses (id, messageId, toolId, toolName, parameters)
		VALUES (?, ?, ?, ?, ?)
	`, tu.ID, messageID, tu.ID, tu.Name, string(tu.Parameters))
	return err
}

func insertToolUseResult(tx *sql.Tx, tr records.ToolUseResult, messageID string) error {
	var errText interface{}
	if tr.Error != "" {
		errText = tr.Error
	}
	_, err := tx.Exec(`
		INSERT OR IGNORE INTO tool_use_results (id, toolUseId, messageId, output, error)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), tr.ToolUseID, messageID, coerceValue(tr.Output), errText)
	return err
}

// coerceValue converts a decoded JSON value to a SQLite-storable primitive.
// Strings, numbers, booleans, and byte buffers pass through; anything else
// is serialized to JSON text, falling back to its string form rather than
// aborting the row.
func coerceValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case string, bool, int, int64, float64, []byte:
		return v
	case json.Number:
		return v.String()
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
