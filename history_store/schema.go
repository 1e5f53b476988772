package history_store

// Schema creates the chat log table. Timestamps are Unix milliseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS chats (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp         INTEGER NOT NULL,
	user_message      TEXT NOT NULL,
	assistant_message TEXT NOT NULL,
	model             TEXT NOT NULL DEFAULT '',
	folder_name       TEXT NOT NULL DEFAULT '',
	file_count        INTEGER NOT NULL DEFAULT 0,
	session_id        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_chats_timestamp ON chats(timestamp);
`
