package passages

import (
	"context"
	"database/sql"
	"fmt"

	"contract-qa/internal/models"
)

// SQLiteSnapshot keeps the last built batch in the persistence directory.
// Vectors are not stored: TF-IDF weights depend on the whole corpus, so the
// store re-embeds on restore.
type SQLiteSnapshot struct {
	db *sql.DB
}

func NewSQLiteSnapshot(db *sql.DB) *SQLiteSnapshot {
	return &SQLiteSnapshot{db: db}
}

const createPassagesTable = `CREATE TABLE IF NOT EXISTS passages (
	seq INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	text TEXT NOT NULL,
	customer TEXT NOT NULL,
	source_file TEXT NOT NULL,
	sheet_name TEXT NOT NULL DEFAULT ''
)`

func (s *SQLiteSnapshot) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createPassagesTable); err != nil {
		return fmt.Errorf("create passages table: %w", err)
	}
	return nil
}

func (s *SQLiteSnapshot) Save(ctx context.Context, passages []models.Passage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM passages"); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	if len(passages) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO passages (seq, id, text, customer, source_file, sheet_name) VALUES (?, ?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, p := range passages {
			if _, err := stmt.ExecContext(ctx, i, p.ID, p.Text, p.CustomerTag, p.SourceFile, p.SheetName); err != nil {
				return fmt.Errorf("insert passage %s: %w", p.ID, err)
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteSnapshot) Load(ctx context.Context) ([]models.Passage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, customer, source_file, sheet_name FROM passages ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Passage
	for rows.Next() {
		var p models.Passage
		if err := rows.Scan(&p.ID, &p.Text, &p.CustomerTag, &p.SourceFile, &p.SheetName); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
