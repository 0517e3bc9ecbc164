package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// FileName is the database file created inside the data directory.
const FileName = "journal.db"

// Verify interface compliance.
var _ driven.IngestJournal = (*Journal)(nil)

// Journal is an SQLite-backed driven.IngestJournal.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal in dataDir and applies pending
// migrations.
func Open(dataDir string) (*Journal, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: journal data directory is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, FileName)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	j := &Journal{db: db, path: dbPath}
	if err := j.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return j, nil
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends rec and returns it with its ID set.
func (j *Journal) Record(ctx context.Context, rec domain.IngestRecord) (domain.IngestRecord, error) {
	if !rec.Status.IsValid() {
		return rec, fmt.Errorf("%w: unknown ingest status %q", domain.ErrInvalidInput, rec.Status)
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}

	res, err := j.db.ExecContext(ctx, `
		INSERT INTO ingest_journal
			(source, path, title, batch_id, pages, chunks, status, error, duration_ms, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Source, rec.Path, rec.Title, rec.BatchID, rec.Pages, rec.Chunks,
		string(rec.Status), rec.Error, rec.Duration.Milliseconds(),
		rec.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return rec, fmt.Errorf("recording ingest of %s: %w", rec.Source, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return rec, fmt.Errorf("reading journal id: %w", err)
	}
	rec.ID = id
	return rec, nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]domain.IngestRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, source, path, title, batch_id, pages, chunks, status, error, duration_ms, at
		FROM ingest_journal
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	records := make([]domain.IngestRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (domain.IngestRecord, error) {
	var (
		rec        domain.IngestRecord
		status, at string
		durationMS int64
	)
	if err := rows.Scan(&rec.ID, &rec.Source, &rec.Path, &rec.Title, &rec.BatchID,
		&rec.Pages, &rec.Chunks, &status, &rec.Error, &durationMS, &at); err != nil {
		return rec, fmt.Errorf("scanning journal row: %w", err)
	}
	rec.Status = domain.IngestStatus(status)
	rec.Duration = time.Duration(durationMS) * time.Millisecond

	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return rec, fmt.Errorf("parsing journal time %q: %w", at, err)
	}
	rec.At = t
	return rec, nil
}

// migrate applies every NNN_name.up.sql newer than the recorded version,
// each in its own transaction.
func (j *Journal) migrate(fsys fs.FS) error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := j.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := j.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

func (j *Journal) apply(version int, stmt string) (err error) {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err = tx.Exec(stmt); err != nil {
		return err
	}
	if _, err = tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}
