package history_store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/history_store/contracts"
	"github.com/meysamhadeli/codecompanion/history_store/models"
	_ "modernc.org/sqlite"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 50

// SQLiteStore keeps the chat log in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens or creates the store at path.
func Open(path string) (contracts.IHistoryStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append stores record, filling in its ID and a zero Timestamp.
func (s *SQLiteStore) Append(ctx context.Context, record *models.HistoryRecord) (int64, error) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (timestamp, user_message, assistant_message, model, folder_name, file_count, session_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.UnixMilli(),
		record.UserMessage,
		record.AssistantMessage,
		record.Model,
		record.FolderName,
		record.FileCount,
		record.SessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save chat: %w: %w", apperr.ErrIO, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read chat id: %w: %w", apperr.ErrIO, err)
	}
	record.ID = id
	return id, nil
}

// List returns the newest records first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, user_message, assistant_message, model, folder_name, file_count, session_id
		 FROM chats ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w: %w", apperr.ErrIO, err)
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list chats: %w: %w", apperr.ErrIO, err)
	}
	return records, nil
}

// Get returns one record, or nil when the id does not exist.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.HistoryRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, user_message, assistant_message, model, folder_name, file_count, session_id
		 FROM chats WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chats: %w: %w", apperr.ErrIO, err)
	}
	return count, nil
}

// Clear removes every record.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats`); err != nil {
		return fmt.Errorf("failed to clear chats: %w: %w", apperr.ErrIO, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.HistoryRecord, error) {
	var record models.HistoryRecord
	var millis int64
	err := row.Scan(
		&record.ID,
		&millis,
		&record.UserMessage,
		&record.AssistantMessage,
		&record.Model,
		&record.FolderName,
		&record.FileCount,
		&record.SessionID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chat: %w: %w", apperr.ErrIO, err)
	}
	record.Timestamp = time.UnixMilli(millis)
	return &record, nil
}
