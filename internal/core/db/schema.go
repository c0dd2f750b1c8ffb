package db

func (db *DB) initSchema() error {
	schema := `
	-- Sessions table
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		sessionId TEXT NOT NULL,
		sessionPath TEXT NOT NULL,
		created DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(sessionId)
	);

	-- Messages table: common columns plus a sparse, type-dependent set
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sessionId TEXT NOT NULL,
		type TEXT NOT NULL,

		timestamp TEXT NOT NULL,
		isSidechain BOOLEAN DEFAULT 0,

		-- Summary message fields
		projectName TEXT,
		activeFile TEXT,

		-- User message fields
		userText TEXT,
		userType TEXT,
		userAttachments TEXT,
		toolUseResultId TEXT,
		toolUseResultName TEXT,

		-- Assistant message fields
		assistantRole TEXT,
		assistantText TEXT,
		assistantModel TEXT,

		created DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(sessionId) REFERENCES sessions(sessionId) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tool_uses (
		id TEXT PRIMARY KEY,
		messageId TEXT NOT NULL,
		toolId TEXT NOT NULL,
		toolName TEXT NOT NULL,
		parameters TEXT NOT NULL,
		created DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(messageId) REFERENCES messages(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tool_use_results (
		id TEXT PRIMARY KEY,
		toolUseId TEXT NOT NULL,
		messageId TEXT NOT NULL,
		output TEXT,
		outputMimeType TEXT,
		error TEXT,
		errorType TEXT,
		created DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(toolUseId) REFERENCES tool_uses(id) ON DELETE CASCADE,
		FOREIGN KEY(messageId) REFERENCES messages(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		messageId TEXT NOT NULL,
		type TEXT NOT NULL,
		text TEXT,
		url TEXT,
		mimeType TEXT,
		title TEXT,
		filePath TEXT,
		created DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(messageId) REFERENCES messages(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS env_info (
		id TEXT PRIMARY KEY,
		messageId TEXT NOT NULL,
		workingDirectory TEXT,
		isGitRepo BOOLEAN,
		platform TEXT,
		osVersion TEXT,
		todaysDate TEXT,
		created DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(messageId) REFERENCES messages(id) ON DELETE CASCADE
	);

	-- Indexes for common queries
	CREATE INDEX IF NOT EXISTS idx_messages_sessionId ON messages(sessionId);
	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
	CREATE INDEX IF NOT EXISTS idx_messages_type ON messages(type);
	CREATE INDEX IF NOT EXISTS idx_tool_uses_messageId ON tool_uses(messageId);
	CREATE INDEX IF NOT EXISTS idx_attachments_messageId ON attachments(messageId);
	`

	_, err := db.conn.Exec(schema)
	return err
}
