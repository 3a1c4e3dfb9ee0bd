package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/knsuzuki/shopmail/internal/notification"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// MailHistoryFilter narrows ListMailHistory. Zero values mean no filter and
// the default limit.
type MailHistoryFilter struct {
	OrderID int64
	Limit   int
}

func (f MailHistoryFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultHistoryLimit
	case f.Limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return f.Limit
}

// MailHistoryStore defines the interface for persisting shipping notice history.
type MailHistoryStore interface {
	notification.HistoryRecorder
	// ListMailHistory returns the most recent records first.
	ListMailHistory(ctx context.Context, filter MailHistoryFilter) ([]notification.HistoryRecord, error)
}

// Supported history drivers.
const (
	HistoryDriverSQLite   = "sqlite"
	HistoryDriverPostgres = "postgres"
)

// OpenHistoryStore returns the history store for driver. The sqlite driver
// reuses sqliteDB; the postgres driver opens its own pool from dsn, and the
// returned store must then be closed by the caller.
func OpenHistoryStore(ctx context.Context, driver, dsn string, sqliteDB *sql.DB) (MailHistoryStore, error) {
	switch driver {
	case "", HistoryDriverSQLite:
		if sqliteDB == nil {
			return nil, fmt.Errorf("sqlite history store: database is nil")
		}
		return NewSQLiteMailHistoryStore(sqliteDB), nil
	case HistoryDriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres history store: dsn is required")
		}
		db, err := NewPostgresDB(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return NewPostgresMailHistoryStore(db), nil
	}
	return nil, fmt.Errorf("unknown history driver %q (must be sqlite or postgres)", driver)
}
