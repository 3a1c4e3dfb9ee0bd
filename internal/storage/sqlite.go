package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver.
)

// migration represents a single schema migration step.
type migration struct {
	version int
	sql     string
}

// migrations holds all schema migrations in order. Each migration is applied
// exactly once, tracked by the schema_migrations table.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE mail_templates (
    id           INTEGER PRIMARY KEY,
    name         TEXT NOT NULL,
    file_name    TEXT NOT NULL,
    mail_subject TEXT NOT NULL DEFAULT '',
    mail_header  TEXT NOT NULL DEFAULT '',
    mail_footer  TEXT NOT NULL DEFAULT '',
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO mail_templates (id, name, file_name, mail_subject, mail_header, mail_footer) VALUES
    (1, '注文受付メール', 'order.txt', 'ご注文ありがとうございます',
        'この度はご注文いただき誠にありがとうございます。下記ご注文内容にお間違えがないかご確認ください。',
        'このメッセージはお客様へのお知らせ専用ですので、このメッセージへの返信としてご質問をお送りいただいても回答できません。ご了承ください。'),
    (2, '会員仮登録メール', 'entry_confirm.txt', '会員登録のご確認',
        'この度は会員登録依頼をいただきまして、有り難うございます。',
        'ご不明な点がございましたら、お気軽にお問い合わせください。'),
    (3, '会員本登録メール', 'entry_complete.txt', '会員登録が完了しました。',
        '本会員登録が完了いたしました。',
        'ご不明な点がございましたら、お気軽にお問い合わせください。'),
    (4, '会員退会メール', 'customer_withdraw_mail.txt', '退会手続きのご完了',
        '退会手続きを承りました。',
        'またのご利用を心よりお待ちしております。'),
    (5, '問合受付メール', 'contact_mail.txt', 'お問い合わせを受け付けました。',
        'お問い合わせいただきありがとうございます。',
        '内容を確認のうえ、担当者よりご連絡いたします。'),
    (6, 'パスワードリセット', 'forgot_mail.txt', 'パスワード変更のご確認',
        'パスワード再発行のご依頼を受け付けました。',
        'お心当たりのない場合は、このメールを破棄してください。'),
    (7, 'パスワードリマインダー', 'reset_complete_mail.txt', 'パスワード変更のお知らせ',
        'パスワードを変更いたしました。',
        'ログイン後、パスワードの変更をお願いいたします。'),
    (8, '出荷通知メール', 'shipping_notify.txt', '商品出荷のお知らせ',
        'ご注文いただいた商品を発送いたしました。',
        '商品の到着まで今しばらくお待ちください。');
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE mail_history (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id     INTEGER NOT NULL,
    mail_subject TEXT NOT NULL DEFAULT '',
    mail_body    TEXT NOT NULL DEFAULT '',
    send_date    DATETIME NOT NULL
);
CREATE INDEX idx_mail_history_order ON mail_history(order_id, id);
`,
	},
}

// NewSQLiteDB opens (or creates) the SQLite database at dbPath, sets the
// WAL and busy-timeout pragmas, and applies pending migrations. The second
// return value is true when the mail tables were created by this call.
func NewSQLiteDB(ctx context.Context, dbPath string) (*sql.DB, bool, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, false, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, false, fmt.Errorf("opening database: %w", err)
	}

	// SQLite is single-writer; one connection also keeps ":memory:" databases
	// alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return nil, false, errors.Join(fmt.Errorf("setting pragma %q: %w", p, err), db.Close())
		}
	}

	fresh, err := runMigrations(ctx, db)
	if err != nil {
		return nil, false, errors.Join(fmt.Errorf("running migrations: %w", err), db.Close())
	}
	return db, fresh, nil
}

// runMigrations applies every migration newer than the recorded schema
// version. fresh is true when the mail tables did not exist before the call.
func runMigrations(ctx context.Context, db *sql.DB) (fresh bool, err error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return false, fmt.Errorf("creating schema_migrations table: %w", err)
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return false, err
	}

	for _, m := range migrations[min(current, len(migrations)):] {
		if err := applyMigration(ctx, db, m); err != nil {
			return false, err
		}
	}
	return current == 0, nil
}

// applyMigration runs m and records its version in one transaction.
func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return errors.Join(fmt.Errorf("migration %d: %w", m.version, err), tx.Rollback())
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.version, time.Now().UTC(),
	); err != nil {
		return errors.Join(fmt.Errorf("recording migration %d: %w", m.version, err), tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}
	return nil
}

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("querying current schema version: %w", err)
	}
	return v, nil
}
