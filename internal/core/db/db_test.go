package db

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	return database
}

func TestOpen(t *testing.T) {
	database := testDB(t)

	var count int
	err := database.conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query schema: %v", err)
	}

	// sessions, messages, tool_uses, tool_use_results, attachments, env_info
	if count < 6 {
		t.Errorf("Expected at least 6 tables, got %d", count)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := first.Exec(`INSERT INTO sessions (id, sessionId, sessionPath) VALUES ('s1', 's1', '/tmp/s1.jsonl')`); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Re-opening must not recreate tables or lose rows
	second, err := Open(path)
	if err != nil {
		t.Fatalf("Open() second call error = %v", err)
	}
	defer func() { _ = second.Close() }()

	var count int
	if err := second.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 session after reopen, got %d", count)
	}
}

func TestOpen_WALMode(t *testing.T) {
	database := testDB(t)

	var journalMode string
	err := database.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}

	if journalMode != "wal" {
		t.Errorf("Expected WAL mode, got %s", journalMode)
	}
}

func TestOpen_ForeignKeys(t *testing.T) {
	database := testDB(t)

	var fkEnabled int
	err := database.conn.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled)
	if err != nil {
		t.Fatalf("Failed to query foreign keys: %v", err)
	}

	if fkEnabled != 1 {
		t.Errorf("Expected foreign keys enabled (1), got %d", fkEnabled)
	}
}

func TestOpen_BusyTimeout(t *testing.T) {
	database := testDB(t)

	var timeout int
	err := database.conn.QueryRow("PRAGMA busy_timeout").Scan(&timeout)
	if err != nil {
		t.Fatalf("Failed to query busy timeout: %v", err)
	}

	if timeout != 10000 {
		t.Errorf("Expected busy_timeout 10000, got %d", timeout)
	}
}

func TestIndexes(t *testing.T) {
	database := testDB(t)

	var indexCount int
	err := database.conn.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND tbl_name='messages'
	`).Scan(&indexCount)
	if err != nil {
		t.Fatalf("Failed to count message indexes: %v", err)
	}

	// sessionId, timestamp, type
	if indexCount < 3 {
		t.Errorf("Expected at least 3 indexes on messages, got %d", indexCount)
	}
}

func TestDuplicateSessionIgnored(t *testing.T) {
	database := testDB(t)

	for i := 0; i < 2; i++ {
		_, err := database.Exec(`
			INSERT OR IGNORE INTO sessions (id, sessionId, sessionPath)
			VALUES ('s1', 's1', '/tmp/s1.jsonl')
		`)
		if err != nil {
			t.Fatalf("Failed to insert session (pass %d): %v", i+1, err)
		}
	}

	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 session row, got %d", count)
	}
}

func TestForeignKeyConstraint(t *testing.T) {
	database := testDB(t)

	_, err := database.Exec(`
		INSERT INTO messages (id, sessionId, type, timestamp)
		VALUES ('m1', 'missing-session', 'user', '2025-01-01T00:00:00Z')
	`)
	if err == nil {
		t.Error("Expected foreign key constraint error, got nil")
	}
}

func TestCascadeDelete(t *testing.T) {
	database := testDB(t)

	if _, err := database.Exec(`INSERT INTO sessions (id, sessionId, sessionPath) VALUES ('s1', 's1', '/tmp/s1.jsonl')`); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}
	if _, err := database.Exec(`
		INSERT INTO messages (id, sessionId, type, timestamp)
		VALUES ('m1', 's1', 'user', '2025-01-01T00:00:00Z')
	`); err != nil {
		t.Fatalf("Failed to insert message: %v", err)
	}
	if _, err := database.Exec(`
		INSERT INTO tool_uses (id, messageId, toolId, toolName, parameters)
		VALUES ('t1', 'm1', 't1', 'Bash', '{}')
	`); err != nil {
		t.Fatalf("Failed to insert tool use: %v", err)
	}

	if _, err := database.Exec("DELETE FROM sessions WHERE id = 's1'"); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}

	for _, table := range []string{"messages", "tool_uses"} {
		var count int
		if err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Errorf("Expected 0 rows in %s after cascade delete, got %d", table, count)
		}
	}
}

func TestOpenReadOnly_MissingFile(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "nope.db"))
	if err == nil {
		t.Error("Expected error opening missing database read-only, got nil")
	}
}

func TestOpenReadOnly_RejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	rw, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := rw.Close(); err != nil {
		t.Fatal(err)
	}

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly() error = %v", err)
	}
	defer func() { _ = ro.Close() }()

	_, err = ro.Exec(`INSERT INTO sessions (id, sessionId, sessionPath) VALUES ('s1', 's1', '/tmp/s1.jsonl')`)
	if err == nil {
		t.Error("Expected write on read-only connection to fail, got nil")
	}
}
