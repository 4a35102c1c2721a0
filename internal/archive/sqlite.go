package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stroke-code-server/internal/domain"
)

// SQLiteStore implements domain.CaseStore using SQLite.
// Each case is stored as its JSON document plus indexed columns.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite case archive.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("archive path is required for the sqlite driver")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets the CLI read while the server appends
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// NewSQLiteStoreFromDB wraps an open database whose schema already exists
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL,
		thrombectomy_eligible INTEGER NOT NULL DEFAULT 0,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cases_created_at ON cases(created_at);
	CREATE INDEX IF NOT EXISTS idx_cases_thrombectomy ON cases(thrombectomy_eligible);
	`

	_, err := db.Exec(schema)
	return err
}

// Append stores a case. Appending an existing id fails with domain.ErrDuplicateCase.
func (s *SQLiteStore) Append(ctx context.Context, c domain.Case) error {
	var existing int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases WHERE id = ?", c.ID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to check existing: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("case %s: %w", c.ID, domain.ErrDuplicateCase)
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode case: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cases (id, created_at, thrombectomy_eligible, payload)
		VALUES (?, ?, ?, ?)
	`,
		c.ID,
		c.Timestamp.UTC(),
		c.Thrombectomy.Eligible,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// Get retrieves a case by id
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Case, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM cases WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Case{}, fmt.Errorf("case %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Case{}, fmt.Errorf("failed to scan: %w", err)
	}
	return decodeCase(payload)
}

// List returns cases in insertion order with pagination.
// A negative limit returns every case from offset.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]domain.Case, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload
		FROM cases
		ORDER BY seq ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := []domain.Case{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		c, err := decodeCase(payload)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Count returns the total number of archived cases.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases").Scan(&count)
	return count, err
}

// CountThrombectomyEligible returns the number of archived cases eligible for thrombectomy
func (s *SQLiteStore) CountThrombectomyEligible(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases WHERE thrombectomy_eligible = 1").Scan(&count)
	return count, err
}

// ExportJSON exports all cases to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, -1, 0)
	if err != nil {
		return fmt.Errorf("failed to list cases: %w", err)
	}

	export := &CaseExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Cases:      all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports cases from a JSON reader, skipping ids already archived.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export CaseExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return importCases(ctx, s, export)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeCase(payload string) (domain.Case, error) {
	var c domain.Case
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return domain.Case{}, fmt.Errorf("failed to decode case: %w", err)
	}
	return c, nil
}
