package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"interviewd/pkg/interview"
)

// Store provides typed access to all interview tables on a single
// SQLite handle.
type Store struct {
	db *sql.DB
}

// NewStore wraps an opened database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SessionRecord is the stored form of one session.
type SessionRecord struct {
	Context     interview.SessionContext
	Status      string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Session status values.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusInactive  = "inactive"
)

// CreateSession inserts a new session row together with its initial
// conversation state in one transaction.
func (s *Store) CreateSession(ctx context.Context, sc interview.SessionContext, state interview.ConversationState) error {
	extraJSON, err := json.Marshal(sc.Extra)
	if err != nil {
		return fmt.Errorf("failed to marshal session context: %w", err)
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, variant, participant_name, participant_role, module, context_json, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.SessionID, string(sc.Variant), sc.ParticipantName, sc.ParticipantRole, sc.Module, string(extraJSON), StatusActive)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", sc.SessionID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversation_state (session_id, state_json) VALUES (?, ?)`,
		sc.SessionID, string(stateJSON))
	if err != nil {
		return fmt.Errorf("failed to insert conversation state for %s: %w", sc.SessionID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session creation: %w", err)
	}
	return nil
}

// GetSession loads a session row by id. Returns interview.ErrSessionNotFound
// when no such session exists.
func (s *Store) GetSession(ctx context.Context, sessionID string) (SessionRecord, error) {
	var (
		rec         SessionRecord
		variant     string
		extraJSON   string
		createdAt   string
		completedAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, variant, participant_name, participant_role, module, context_json, status, created_at, completed_at
		 FROM sessions WHERE session_id = ?`, sessionID).Scan(
		&rec.Context.SessionID, &variant, &rec.Context.ParticipantName, &rec.Context.ParticipantRole,
		&rec.Context.Module, &extraJSON, &rec.Status, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, interview.ErrSessionNotFound
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("failed to query session %s: %w", sessionID, err)
	}

	rec.Context.Variant = interview.Variant(variant)
	if extraJSON != "" && extraJSON != "{}" && extraJSON != "null" {
		if err := json.Unmarshal([]byte(extraJSON), &rec.Context.Extra); err != nil {
			return SessionRecord{}, fmt.Errorf("failed to unmarshal session context for %s: %w", sessionID, err)
		}
	}
	rec.CreatedAt = parseTimestamp(createdAt)
	if completedAt.Valid {
		t := parseTimestamp(completedAt.String)
		rec.CompletedAt = &t
	}
	return rec, nil
}

// LoadState loads the conversation state for a session.
func (s *Store) LoadState(ctx context.Context, sessionID string) (interview.ConversationState, error) {
	var stateJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM conversation_state WHERE session_id = ?`, sessionID).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return interview.ConversationState{}, interview.ErrSessionNotFound
	}
	if err != nil {
		return interview.ConversationState{}, fmt.Errorf("failed to query conversation state for %s: %w", sessionID, err)
	}

	var state interview.ConversationState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return interview.ConversationState{}, fmt.Errorf("failed to unmarshal conversation state for %s: %w", sessionID, err)
	}
	return state, nil
}

// SaveState upserts the conversation state for a session. When the state
// is complete, the session row is marked completed too.
func (s *Store) SaveState(ctx context.Context, sessionID string, state interview.ConversationState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversation_state (session_id, state_json, updated_at)
		 VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		 ON CONFLICT(session_id) DO UPDATE SET
		   state_json = excluded.state_json,
		   updated_at = excluded.updated_at`,
		sessionID, string(stateJSON))
	if err != nil {
		return fmt.Errorf("failed to save conversation state for %s: %w", sessionID, err)
	}

	if state.Complete {
		_, err = tx.ExecContext(ctx,
			`UPDATE sessions SET status = ?, completed_at = COALESCE(completed_at, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
			 WHERE session_id = ?`, StatusCompleted, sessionID)
		if err != nil {
			return fmt.Errorf("failed to mark session %s completed: %w", sessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state save: %w", err)
	}
	return nil
}

// LoadMessages returns the full transcript for a session in turn order.
func (s *Store) LoadMessages(ctx context.Context, sessionID string) ([]interview.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, role, content, created_at FROM messages
		 WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var msgs []interview.Message
	for rows.Next() {
		var (
			m         interview.Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = interview.MessageRole(role)
		m.CreatedAt = parseTimestamp(createdAt)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, nil
}

// AppendMessages appends messages to a session's transcript atomically,
// assigning sequence numbers after the current maximum.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, msgs ...interview.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var maxSeq sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM messages WHERE session_id = ?`, sessionID).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("failed to query max sequence for %s: %w", sessionID, err)
	}

	seq := maxSeq.Int64
	for _, m := range msgs {
		seq++
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (message_id, session_id, role, content, created_at, seq)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, sessionID, string(m.Role), m.Content, m.CreatedAt.UTC().Format(time.RFC3339Nano), seq)
		if err != nil {
			return fmt.Errorf("failed to insert message %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message append: %w", err)
	}
	return nil
}

// RecordSafeguardingFlags persists detected flags for audit. Flags are
// append-only; nothing ever deletes them.
func (s *Store) RecordSafeguardingFlags(ctx context.Context, sessionID string, flags []interview.SafeguardingFlag) error {
	if len(flags) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, f := range flags {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO safeguarding_flags (session_id, flag_type, excerpt, confidence, detected_at)
			 VALUES (?, ?, ?, ?, ?)`,
			sessionID, f.Type, f.Excerpt, f.Confidence, f.DetectedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to insert safeguarding flag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit safeguarding flags: %w", err)
	}
	return nil
}

// ListSafeguardingFlags returns all recorded flags for a session, oldest first.
func (s *Store) ListSafeguardingFlags(ctx context.Context, sessionID string) ([]interview.SafeguardingFlag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT flag_type, excerpt, confidence, detected_at FROM safeguarding_flags
		 WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query safeguarding flags for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var flags []interview.SafeguardingFlag
	for rows.Next() {
		var (
			f          interview.SafeguardingFlag
			detectedAt string
		)
		if err := rows.Scan(&f.Type, &f.Excerpt, &f.Confidence, &detectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan safeguarding flag: %w", err)
		}
		f.DetectedAt = parseTimestamp(detectedAt)
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate safeguarding flags: %w", err)
	}
	return flags, nil
}

// UpsertChunk stores or replaces a knowledge chunk and its embedding.
func (s *Store) UpsertChunk(ctx context.Context, chunk interview.KnowledgeChunk) error {
	embJSON, err := json.Marshal(chunk.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO knowledge_chunks (chunk_id, source, content, embedding_json)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(chunk_id) DO UPDATE SET
		   source = excluded.source,
		   content = excluded.content,
		   embedding_json = excluded.embedding_json`,
		chunk.ID, chunk.Source, chunk.Content, string(embJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert knowledge chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// ListChunks loads the entire knowledge corpus with embeddings.
func (s *Store) ListChunks(ctx context.Context) ([]interview.KnowledgeChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, source, content, embedding_json FROM knowledge_chunks`)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge chunks: %w", err)
	}
	defer rows.Close()

	var chunks []interview.KnowledgeChunk
	for rows.Next() {
		var (
			c       interview.KnowledgeChunk
			embJSON string
		)
		if err := rows.Scan(&c.ID, &c.Source, &c.Content, &embJSON); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(embJSON), &c.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding for chunk %s: %w", c.ID, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate knowledge chunks: %w", err)
	}
	return chunks, nil
}

// CountChunks returns the number of stored knowledge chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count knowledge chunks: %w", err)
	}
	return n, nil
}

// parseTimestamp accepts the two formats sqlite produces here: RFC3339
// from Go-side formatting and the strftime default used in column defaults.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
