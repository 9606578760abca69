package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"creator-chat/internal/domain"
)

// SQLite implements domain.MessageStore on a SQLite database. It keeps the
// last canonical snapshot of each chat so a restarted client can render
// history before the backend answers.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath and runs the schema
// migration.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open message db: %w", err)
	}
	// One connection: replacements are serialised by the driver.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate message db: %w", err)
	}
	return &SQLite{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			chat_id    TEXT    NOT NULL,
			seq        INTEGER NOT NULL,
			id         TEXT    NOT NULL,
			author     TEXT    NOT NULL,
			parts      TEXT    NOT NULL DEFAULT '[]',
			generation TEXT,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (chat_id, seq)
		)
	`); err != nil {
		return err
	}
	_, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_order ON messages (chat_id, created_at, seq)")
	return err
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// List returns the messages of chatID ordered by created_at, then insertion.
func (s *SQLite) List(ctx context.Context, chatID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, author, parts, generation, created_at FROM messages WHERE chat_id = ? ORDER BY created_at, seq",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]domain.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// ReplaceAll deletes and re-inserts the messages of chatID in one transaction.
func (s *SQLite) ReplaceAll(ctx context.Context, chatID string, msgs []domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE chat_id = ?", chatID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (chat_id, seq, id, author, parts, generation, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range msgs {
		partsJSON, err := json.Marshal(domain.CloneParts(msg.Parts))
		if err != nil {
			return fmt.Errorf("marshal parts of %s: %w", msg.ID, err)
		}
		var gen sql.NullString
		if msg.Generation != nil {
			b, err := json.Marshal(msg.Generation)
			if err != nil {
				return fmt.Errorf("marshal generation of %s: %w", msg.ID, err)
			}
			gen = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			chatID, i, msg.ID, string(msg.Author.Type), string(partsJSON), gen, unixNanos(msg.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert message %s: %w", msg.ID, err)
		}
	}
	return tx.Commit()
}

func scanMessage(rows *sql.Rows) (domain.Message, error) {
	var (
		msg       domain.Message
		author    string
		partsJSON string
		gen       sql.NullString
		createdAt int64
	)
	if err := rows.Scan(&msg.ID, &author, &partsJSON, &gen, &createdAt); err != nil {
		return msg, fmt.Errorf("scan message: %w", err)
	}
	msg.Author = domain.Author{Type: domain.AuthorType(author)}
	if err := json.Unmarshal([]byte(partsJSON), &msg.Parts); err != nil {
		return msg, fmt.Errorf("unmarshal parts of %s: %w", msg.ID, err)
	}
	if msg.Parts == nil {
		msg.Parts = []domain.Part{}
	}
	if gen.Valid {
		msg.Generation = &domain.Generation{}
		if err := json.Unmarshal([]byte(gen.String), msg.Generation); err != nil {
			return msg, fmt.Errorf("unmarshal generation of %s: %w", msg.ID, err)
		}
	}
	if createdAt != 0 {
		msg.CreatedAt = time.Unix(0, createdAt).UTC()
	}
	return msg, nil
}

// unixNanos stores the zero time as 0 so it survives a round trip.
func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
