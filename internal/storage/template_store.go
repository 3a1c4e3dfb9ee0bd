package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/knsuzuki/shopmail/internal/notification"
)

// TemplateStore defines the interface for reading mail template definitions.
type TemplateStore interface {
	notification.TemplateStore
	// ListTemplates returns every template ordered by id.
	ListTemplates(ctx context.Context) ([]*notification.TemplateRef, error)
}

// SQLiteTemplateStore implements TemplateStore backed by SQLite.
type SQLiteTemplateStore struct {
	db *sql.DB
}

// NewSQLiteTemplateStore returns a new SQLiteTemplateStore.
func NewSQLiteTemplateStore(db *sql.DB) *SQLiteTemplateStore {
	return &SQLiteTemplateStore{db: db}
}

// FindTemplate returns the template with the given id. An unknown id yields
// an error wrapping notification.ErrTemplateNotFound.
func (s *SQLiteTemplateStore) FindTemplate(ctx context.Context, id int64) (*notification.TemplateRef, error) {
	var t notification.TemplateRef
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, file_name, mail_subject, mail_header, mail_footer
		FROM mail_templates
		WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.FileName, &t.Subject, &t.Header, &t.Footer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mail template %d: %w", id, notification.ErrTemplateNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying mail template %d: %w", id, err)
	}
	return &t, nil
}

// ListTemplates returns all templates ordered by id.
func (s *SQLiteTemplateStore) ListTemplates(ctx context.Context) (list []*notification.TemplateRef, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, file_name, mail_subject, mail_header, mail_footer
		FROM mail_templates
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying mail templates: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var t notification.TemplateRef
		if err := rows.Scan(&t.ID, &t.Name, &t.FileName, &t.Subject, &t.Header, &t.Footer); err != nil {
			return nil, fmt.Errorf("scanning mail template row: %w", err)
		}
		list = append(list, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mail template rows: %w", err)
	}
	return list, nil
}
