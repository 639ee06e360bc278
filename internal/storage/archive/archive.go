// Package archive stores exported conversations in PostgreSQL.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"contract-qa/internal/models"
)

var ErrNotFound = errors.New("ARCHIVE_NOT_FOUND")

// Record is one archived conversation.
type Record struct {
	SessionID  string            `json:"sessionId"`
	ExportedAt time.Time         `json:"exportedAt"`
	TurnCount  int               `json:"turnCount"`
	Transcript models.Transcript `json:"transcript"`
}

type PostgresArchive struct {
	db *sql.DB
}

func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{db: db}
}

const createArchiveTable = `CREATE TABLE IF NOT EXISTS conversation_archive (
	session_id TEXT PRIMARY KEY,
	exported_at TIMESTAMPTZ NOT NULL,
	turn_count INTEGER NOT NULL,
	transcript JSONB NOT NULL
)`

func (a *PostgresArchive) Init(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, createArchiveTable); err != nil {
		return fmt.Errorf("create archive table: %w", err)
	}
	return nil
}

// Save upserts the session's transcript.
func (a *PostgresArchive) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	query := `
		INSERT INTO conversation_archive (session_id, exported_at, turn_count, transcript)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET exported_at = EXCLUDED.exported_at,
		    turn_count = EXCLUDED.turn_count,
		    transcript = EXCLUDED.transcript
	`
	if _, err := a.db.ExecContext(ctx, query, rec.SessionID, rec.ExportedAt, rec.TurnCount, data); err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Get(ctx context.Context, sessionID string) (*Record, error) {
	query := `
		SELECT session_id, exported_at, turn_count, transcript
		FROM conversation_archive
		WHERE session_id = $1
	`
	var rec Record
	var data []byte
	err := a.db.QueryRowContext(ctx, query, sessionID).Scan(&rec.SessionID, &rec.ExportedAt, &rec.TurnCount, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive query: %w", err)
	}
	if err := json.Unmarshal(data, &rec.Transcript); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return &rec, nil
}
