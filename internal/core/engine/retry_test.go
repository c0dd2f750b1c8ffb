package engine

import (
	"errors"
	"testing"
	"time"
)

var errBusy = errors.New("database is locked (5) (SQLITE_BUSY)")

func TestWithRetry_SucceedsAfterBusy(t *testing.T) {
	attempts := 0
	start := time.Now()

	err := WithRetry(func() error {
		attempts++
		if attempts < 4 {
			return errBusy
		}
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("WithRetry() error = %v", err)
	}
	if attempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", attempts)
	}

	// Backoff should be roughly 50+100+200 ms
	if elapsed < 300*time.Millisecond {
		t.Errorf("Expected at least 300ms of backoff, elapsed %v", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Backoff took too long: %v", elapsed)
	}
}

func TestWithRetry_NonBusyFailsImmediately(t *testing.T) {
	attempts := 0
	wantErr := errors.New("no such table: nope")

	err := WithRetry(func() error {
		attempts++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("WithRetry() error = %v, want %v", err, wantErr)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for non-busy error, got %d", attempts)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0

	err := WithRetry(func() error {
		attempts++
		return errBusy
	})

	if !errors.Is(err, errBusy) {
		t.Fatalf("WithRetry() error = %v, want last busy error", err)
	}
	if attempts != maxAttempts {
		t.Errorf("Expected %d attempts, got %d", maxAttempts, attempts)
	}
}

func TestIsBusy(t *testing.T) {
	if !IsBusy(errBusy) {
		t.Error("Expected locked message to be busy")
	}
	if !IsBusy(errors.New("step: SQLITE_BUSY: database is busy")) {
		t.Error("Expected SQLITE_BUSY message to be busy")
	}
	if IsBusy(errors.New("no such column: foo")) {
		t.Error("Expected unrelated error to not be busy")
	}
	if IsBusy(nil) {
		t.Error("Expected nil to not be busy")
	}
}
