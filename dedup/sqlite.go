package dedup

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"

	"github.com/pressly/goose/v3"
	// SQLite driver.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite keeps admitted ids in a local database file. Instances on the same
// host that point at the same file share admissions.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and applies pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return &SQLite{db: db}, nil
}

func sqliteDSN(path string) string {
	values := url.Values{}
	values.Add("_pragma", "journal_mode(WAL)")
	values.Add("_pragma", "synchronous(NORMAL)")
	// Wait on writers from other processes instead of failing with SQLITE_BUSY.
	values.Add("_pragma", "busy_timeout(5000)")
	return fmt.Sprintf("file:%s?%s", path, values.Encode())
}

var _ Tracker = (*SQLite)(nil)

func (s *SQLite) Seen(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM seen_datasets WHERE dataset_id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query seen dataset (%s): %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLite) MarkSeen(ctx context.Context, id string) error {
	_, err := s.Admit(ctx, id)
	return err
}

func (s *SQLite) Admit(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO seen_datasets (dataset_id) VALUES (?)", id)
	if err != nil {
		return false, fmt.Errorf("insert seen dataset (%s): %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected (%s): %w", id, err)
	}
	return n == 1, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
