package blobstore

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/jmoiron/sqlx"
    _ "modernc.org/sqlite"
)

// SQLite stores blobs in a single key/value table.
type SQLite struct {
    conn *sqlx.DB
}

// OpenSQLite opens or creates a SQLite database at path.
func OpenSQLite(path string) (*SQLite, error) {
    conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
    if err != nil {
        return nil, fmt.Errorf("open db: %w", err)
    }
    // One writer keeps whole-log overwrites ordered.
    conn.SetMaxOpenConns(1)

    s := &SQLite{conn: conn}
    if err := s.migrate(); err != nil {
        conn.Close()
        return nil, fmt.Errorf("migrate: %w", err)
    }
    return s, nil
}

func (s *SQLite) migrate() error {
    _, err := s.conn.Exec(`
    CREATE TABLE IF NOT EXISTS blobs (
        key TEXT PRIMARY KEY,
        value BLOB NOT NULL,
        updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );`)
    return err
}

// Close closes the database connection.
func (s *SQLite) Close() error {
    return s.conn.Close()
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
    var value []byte
    err := s.conn.GetContext(ctx, &value, `SELECT value FROM blobs WHERE key = ?`, key)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, false, nil
    }
    if err != nil {
        return nil, false, fmt.Errorf("get %q: %w", key, err)
    }
    return value, true, nil
}

func (s *SQLite) Put(ctx context.Context, key string, data []byte) error {
    _, err := s.conn.ExecContext(ctx, `
    INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
    ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
        key, data)
    if err != nil {
        return fmt.Errorf("put %q: %w", key, err)
    }
    return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
    if _, err := s.conn.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key); err != nil {
        return fmt.Errorf("delete %q: %w", key, err)
    }
    return nil
}

// Keys lists stored slots in name order.
func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
    var keys []string
    if err := s.conn.SelectContext(ctx, &keys, `SELECT key FROM blobs ORDER BY key`); err != nil {
        return nil, fmt.Errorf("list keys: %w", err)
    }
    return keys, nil
}
