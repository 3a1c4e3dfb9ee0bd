package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knsuzuki/shopmail/internal/notification"
	"github.com/knsuzuki/shopmail/internal/storage"
)

func TestSQLiteMailHistoryStore(t *testing.T) {
	db, _, err := storage.NewSQLiteDB(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := storage.NewSQLiteMailHistoryStore(db)
	ctx := context.Background()
	sentAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for _, orderID := range []int64{1, 2, 1} {
		id, err := store.RecordMail(ctx, notification.HistoryRecord{
			OrderID: orderID,
			Subject: "[Acme] 商品出荷のお知らせ",
			Body:    "body",
			SentAt:  sentAt,
		})
		require.NoError(t, err)
		assert.Positive(t, id)
	}

	t.Run("list newest first", func(t *testing.T) {
		list, err := store.ListMailHistory(ctx, storage.MailHistoryFilter{})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.EqualValues(t, 3, list[0].ID)
		assert.EqualValues(t, 1, list[2].ID)
		assert.Equal(t, "[Acme] 商品出荷のお知らせ", list[0].Subject)
		assert.True(t, sentAt.Equal(list[0].SentAt))
	})

	t.Run("filter by order", func(t *testing.T) {
		list, err := store.ListMailHistory(ctx, storage.MailHistoryFilter{OrderID: 1})
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, r := range list {
			assert.EqualValues(t, 1, r.OrderID)
		}
	})

	t.Run("limit", func(t *testing.T) {
		list, err := store.ListMailHistory(ctx, storage.MailHistoryFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("no match is empty not nil", func(t *testing.T) {
		list, err := store.ListMailHistory(ctx, storage.MailHistoryFilter{OrderID: 404})
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})
}

func TestPostgresMailHistoryStore_RecordMail(t *testing.T) {
	ctx := context.Background()
	sentAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := notification.HistoryRecord{OrderID: 42, Subject: "s", Body: "b", SentAt: sentAt}

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  int64
		wantErr bool
	}{
		{
			name: "returns inserted id",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO mail_history \(order_id, mail_subject, mail_body, send_date\)\s+VALUES \(\$1, \$2, \$3, \$4\)\s+RETURNING id`).
					WithArgs(int64(42), "s", "b", sentAt).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
			},
			wantID: 7,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO mail_history`).
					WithArgs(int64(42), "s", "b", sentAt).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.mock(mock)

			id, err := storage.NewPostgresMailHistoryStore(db).RecordMail(ctx, rec)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, sql.ErrConnDone))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresMailHistoryStore_ListMailHistory(t *testing.T) {
	ctx := context.Background()
	sentAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "order_id", "mail_subject", "mail_body", "send_date"}

	t.Run("filter by order uses numbered placeholders", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, order_id, mail_subject, mail_body, send_date FROM mail_history WHERE order_id = \$1 ORDER BY id DESC LIMIT \$2`).
			WithArgs(int64(5), 10).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(int64(9), int64(5), "s2", "b2", sentAt).
				AddRow(int64(3), int64(5), "s1", "b1", sentAt))

		list, err := storage.NewPostgresMailHistoryStore(db).ListMailHistory(ctx, storage.MailHistoryFilter{OrderID: 5, Limit: 10})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.EqualValues(t, 9, list[0].ID)
		assert.Equal(t, "b1", list[1].Body)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("default and capped limit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM mail_history ORDER BY id DESC LIMIT \$1`).
			WithArgs(50).
			WillReturnRows(sqlmock.NewRows(cols))
		mock.ExpectQuery(`FROM mail_history ORDER BY id DESC LIMIT \$1`).
			WithArgs(500).
			WillReturnRows(sqlmock.NewRows(cols))

		store := storage.NewPostgresMailHistoryStore(db)
		list, err := store.ListMailHistory(ctx, storage.MailHistoryFilter{})
		require.NoError(t, err)
		assert.Empty(t, list)
		_, err = store.ListMailHistory(ctx, storage.MailHistoryFilter{Limit: 10000})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM mail_history`).WillReturnError(sql.ErrConnDone)

		_, err = storage.NewPostgresMailHistoryStore(db).ListMailHistory(ctx, storage.MailHistoryFilter{})
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}

func TestOpenHistoryStore(t *testing.T) {
	ctx := context.Background()
	db, _, err := storage.NewSQLiteDB(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	store, err := storage.OpenHistoryStore(ctx, "", "", db)
	require.NoError(t, err)
	assert.IsType(t, &storage.SQLiteMailHistoryStore{}, store)

	store, err = storage.OpenHistoryStore(ctx, storage.HistoryDriverSQLite, "", db)
	require.NoError(t, err)
	assert.IsType(t, &storage.SQLiteMailHistoryStore{}, store)

	_, err = storage.OpenHistoryStore(ctx, storage.HistoryDriverSQLite, "", nil)
	assert.Error(t, err)

	_, err = storage.OpenHistoryStore(ctx, storage.HistoryDriverPostgres, "", db)
	assert.Error(t, err)

	_, err = storage.OpenHistoryStore(ctx, "mysql", "dsn", db)
	assert.Error(t, err)
}
