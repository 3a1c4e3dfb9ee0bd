package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/lib/pq"

	"github.com/knsuzuki/shopmail/internal/notification"
)

const postgresHistorySchema = `
CREATE TABLE IF NOT EXISTS mail_history (
    id           BIGSERIAL PRIMARY KEY,
    order_id     BIGINT NOT NULL,
    mail_subject TEXT NOT NULL DEFAULT '',
    mail_body    TEXT NOT NULL DEFAULT '',
    send_date    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mail_history_order ON mail_history(order_id, id);
`

// NewPostgresDB opens a Postgres pool from dsn, checks connectivity and
// creates the mail_history table if it does not exist.
func NewPostgresDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			log.Printf("failed to close postgres after ping error: %v", cerr)
		}
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresHistorySchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			log.Printf("failed to close postgres after schema error: %v", cerr)
		}
		return nil, fmt.Errorf("creating mail_history table: %w", err)
	}
	return db, nil
}

// PostgresMailHistoryStore implements MailHistoryStore backed by Postgres.
type PostgresMailHistoryStore struct {
	db *sql.DB
}

// NewPostgresMailHistoryStore returns a store over an open Postgres pool.
func NewPostgresMailHistoryStore(db *sql.DB) *PostgresMailHistoryStore {
	return &PostgresMailHistoryStore{db: db}
}

// RecordMail inserts a history record and returns its id.
func (s *PostgresMailHistoryStore) RecordMail(ctx context.Context, rec notification.HistoryRecord) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mail_history (order_id, mail_subject, mail_body, send_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		rec.OrderID, rec.Subject, rec.Body, rec.SentAt.UTC(),
	).Scan(&id)
	if err != nil {
		var perr *pq.Error
		if errors.As(err, &perr) {
			return 0, fmt.Errorf("inserting mail history (%s): %w", perr.Code.Name(), err)
		}
		return 0, fmt.Errorf("inserting mail history: %w", err)
	}
	return id, nil
}

// ListMailHistory returns history records, newest first.
func (s *PostgresMailHistoryStore) ListMailHistory(ctx context.Context, filter MailHistoryFilter) (list []notification.HistoryRecord, err error) {
	query := `SELECT id, order_id, mail_subject, mail_body, send_date FROM mail_history`
	var args []any
	if filter.OrderID > 0 {
		args = append(args, filter.OrderID)
		query += ` WHERE order_id = $` + strconv.Itoa(len(args))
	}
	args = append(args, filter.limit())
	query += ` ORDER BY id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mail history: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()
	return scanHistory(rows)
}

// Close closes the underlying pool.
func (s *PostgresMailHistoryStore) Close() error {
	return s.db.Close()
}
