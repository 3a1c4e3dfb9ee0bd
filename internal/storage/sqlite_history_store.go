package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/knsuzuki/shopmail/internal/notification"
)

// SQLiteMailHistoryStore implements MailHistoryStore backed by SQLite.
type SQLiteMailHistoryStore struct {
	db *sql.DB
}

// NewSQLiteMailHistoryStore returns a new SQLiteMailHistoryStore.
func NewSQLiteMailHistoryStore(db *sql.DB) *SQLiteMailHistoryStore {
	return &SQLiteMailHistoryStore{db: db}
}

// RecordMail inserts a history record and returns its id.
func (s *SQLiteMailHistoryStore) RecordMail(ctx context.Context, rec notification.HistoryRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO mail_history (order_id, mail_subject, mail_body, send_date)
		VALUES (?, ?, ?, ?)`,
		rec.OrderID, rec.Subject, rec.Body, rec.SentAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting mail history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading mail history id: %w", err)
	}
	return id, nil
}

// ListMailHistory returns history records, newest first.
func (s *SQLiteMailHistoryStore) ListMailHistory(ctx context.Context, filter MailHistoryFilter) (list []notification.HistoryRecord, err error) {
	query := `SELECT id, order_id, mail_subject, mail_body, send_date FROM mail_history`
	var args []any
	if filter.OrderID > 0 {
		query += ` WHERE order_id = ?`
		args = append(args, filter.OrderID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, filter.limit())

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

func scanHistory(rows *sql.Rows) ([]notification.HistoryRecord, error) {
	list := []notification.HistoryRecord{}
	for rows.Next() {
		var r notification.HistoryRecord
		if err := rows.Scan(&r.ID, &r.OrderID, &r.Subject, &r.Body, &r.SentAt); err != nil {
			return nil, fmt.Errorf("scanning mail history row: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mail history rows: %w", err)
	}
	return list, nil
}
