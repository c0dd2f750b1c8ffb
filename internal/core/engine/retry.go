package engine

import (
	"errors"
	"log"
	"strings"
	"time"

	"modernc.org/sqlite"
)

const (
	maxAttempts = 5
	baseDelay   = 50 * time.Millisecond
	maxDelay    = time.Second
)

// SQLite primary result codes for contention
const (
	codeBusy   = 5
	codeLocked = 6
)

// IsBusy reports whether err is a store contention error worth retrying
func IsBusy(err error) bool {
	if err == nil {
		return false
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == codeBusy || code == codeLocked
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// WithRetry runs op, retrying busy/locked failures with bounded exponential
// backoff. Any other error returns immediately; exhausting attempts returns
// the last busy error. op must be atomic so a retried attempt starts clean.
func WithRetry(op func() error) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if !IsBusy(lastErr) {
			return lastErr
		}

		if attempt < maxAttempts {
			delay := baseDelay << (attempt - 1)
			if delay > maxDelay {
				delay = maxDelay
			}
			log.Printf("Database busy, retrying in %v (attempt %d/%d)", delay, attempt, maxAttempts)
			time.Sleep(delay)
		}
	}

	return lastErr
}
