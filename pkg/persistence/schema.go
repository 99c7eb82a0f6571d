package persistence

import (
	"database/sql"
	"fmt"
)

// schema is the complete database schema. Statements are idempotent so
// opening an existing database is safe.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id       TEXT PRIMARY KEY,
	variant          TEXT NOT NULL,
	participant_name TEXT NOT NULL,
	participant_role TEXT NOT NULL DEFAULT '',
	module           TEXT NOT NULL DEFAULT '',
	context_json     TEXT NOT NULL DEFAULT '{}',
	status           TEXT NOT NULL DEFAULT 'active',
	created_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	completed_at     TEXT
);

CREATE TABLE IF NOT EXISTS messages (
	message_id  TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(session_id),
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	seq         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON messages(session_id, seq);

CREATE TABLE IF NOT EXISTS conversation_state (
	session_id  TEXT PRIMARY KEY REFERENCES sessions(session_id),
	state_json  TEXT NOT NULL,
	updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE TABLE IF NOT EXISTS safeguarding_flags (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL REFERENCES sessions(session_id),
	flag_type   TEXT NOT NULL,
	excerpt     TEXT NOT NULL,
	confidence  REAL NOT NULL,
	detected_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_flags_session ON safeguarding_flags(session_id);

CREATE TABLE IF NOT EXISTS knowledge_chunks (
	chunk_id       TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	content        TEXT NOT NULL,
	embedding_json TEXT NOT NULL,
	created_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
`

// initializeSchema creates all tables and indexes if they do not exist.
func initializeSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}
