package confirmation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/preventive-care-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite confirmation store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const sqliteColumns = `id, patient_id, screening_key, last_screened_on, source, notes, created_at, updated_at`

func scanSQLite(s scanner) (*Confirmation, error) {
	c := &Confirmation{}
	var key, source string
	var lastScreened sql.NullString

	err := s.Scan(&c.ID, &c.PatientID, &key, &lastScreened, &source, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.ScreeningKey = domain.ScreeningKey(key)
	c.Source = Source(source)
	if lastScreened.Valid && lastScreened.String != "" {
		t, err := time.Parse(domain.DateLayout, lastScreened.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_screened_on %q: %w", lastScreened.String, err)
		}
		c.LastScreenedOn = &t
	}
	return c, nil
}

func dateValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(domain.DateLayout)
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS screening_confirmations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id TEXT NOT NULL,
		screening_key TEXT NOT NULL,
		last_screened_on TEXT,
		source TEXT NOT NULL DEFAULT 'patient',
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(patient_id, screening_key)
	);

	CREATE INDEX IF NOT EXISTS idx_confirmations_patient ON screening_confirmations(patient_id);
	CREATE INDEX IF NOT EXISTS idx_confirmations_created_at ON screening_confirmations(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates a confirmation.
func (s *SQLiteStore) Save(ctx context.Context, c *Confirmation) error {
	now := time.Now().UTC()

	var existingID int64
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM screening_confirmations WHERE patient_id = ? AND screening_key = ?",
		c.PatientID, string(c.ScreeningKey),
	).Scan(&existingID, &createdAt)

	if err == nil {
		c.ID = existingID
		c.CreatedAt = createdAt
		c.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE screening_confirmations SET
				last_screened_on = ?,
				source = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			dateValue(c.LastScreenedOn),
			string(c.Source),
			c.Notes,
			now,
			existingID,
		)
		return err
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	c.CreatedAt = now
	c.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO screening_confirmations (
			patient_id, screening_key, last_screened_on, source, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		c.PatientID,
		string(c.ScreeningKey),
		dateValue(c.LastScreenedOn),
		string(c.Source),
		c.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	c.ID = id

	return nil
}

// Get retrieves the confirmation for a patient and screening key.
func (s *SQLiteStore) Get(ctx context.Context, patientID string, key domain.ScreeningKey) (*Confirmation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM screening_confirmations
		WHERE patient_id = ? AND screening_key = ?
		LIMIT 1
	`, patientID, string(key))

	c, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return c, nil
}

// ListForPatient returns a patient's confirmations ordered by screening key.
func (s *SQLiteStore) ListForPatient(ctx context.Context, patientID string) ([]*Confirmation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM screening_confirmations
		WHERE patient_id = ?
		ORDER BY screening_key
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return collectSQLite(rows)
}

// List returns all confirmations with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Confirmation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM screening_confirmations
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return collectSQLite(rows)
}

func collectSQLite(rows *sql.Rows) ([]*Confirmation, error) {
	defer rows.Close()

	var result []*Confirmation
	for rows.Next() {
		c, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Count returns the total number of confirmations.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM screening_confirmations").Scan(&count)
	return count, err
}

// Delete removes a confirmation by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM screening_confirmations WHERE id = ?", id)
	return err
}

// ExportJSON exports all confirmations to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportAll(ctx, s, writer)
}

// ImportJSON imports confirmations from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importAll(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
