package confirmation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/preventive-care-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL confirmation store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL confirmation store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

const postgresColumns = `id, patient_id, screening_key, last_screened_on, source, notes, created_at, updated_at`

func scanPostgres(s scanner) (*Confirmation, error) {
	c := &Confirmation{}
	var key, source string
	var lastScreened sql.NullTime

	err := s.Scan(&c.ID, &c.PatientID, &key, &lastScreened, &source, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.ScreeningKey = domain.ScreeningKey(key)
	c.Source = Source(source)
	if lastScreened.Valid {
		t := lastScreened.Time.UTC()
		c.LastScreenedOn = &t
	}
	return c, nil
}

// Save stores or updates a confirmation.
func (s *PostgresStore) Save(ctx context.Context, c *Confirmation) error {
	now := time.Now().UTC()

	query := `
		INSERT INTO screening_confirmations (
			patient_id, screening_key, last_screened_on, source, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (patient_id, screening_key) DO UPDATE SET
			last_screened_on = EXCLUDED.last_screened_on,
			source = EXCLUDED.source,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		c.PatientID,
		string(c.ScreeningKey),
		dateValue(c.LastScreenedOn),
		string(c.Source),
		c.Notes,
		now,
		now,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save confirmation: %w", err)
	}

	c.UpdatedAt = now
	return nil
}

// Get retrieves the confirmation for a patient and screening key.
func (s *PostgresStore) Get(ctx context.Context, patientID string, key domain.ScreeningKey) (*Confirmation, error) {
	query := `
		SELECT ` + postgresColumns + `
		FROM screening_confirmations
		WHERE patient_id = $1 AND screening_key = $2
		LIMIT 1
	`

	c, err := scanPostgres(s.db.QueryRowContext(ctx, query, patientID, string(key)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmation: %w", err)
	}
	return c, nil
}

// ListForPatient returns a patient's confirmations ordered by screening key.
func (s *PostgresStore) ListForPatient(ctx context.Context, patientID string) ([]*Confirmation, error) {
	query := `
		SELECT ` + postgresColumns + `
		FROM screening_confirmations
		WHERE patient_id = $1
		ORDER BY screening_key
	`

	rows, err := s.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmations: %w", err)
	}
	return collectPostgres(rows)
}

// List returns all confirmations with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Confirmation, error) {
	query := `
		SELECT ` + postgresColumns + `
		FROM screening_confirmations
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmations: %w", err)
	}
	return collectPostgres(rows)
}

func collectPostgres(rows *sql.Rows) ([]*Confirmation, error) {
	defer rows.Close()

	var result []*Confirmation
	for rows.Next() {
		c, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan confirmation: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Count returns the total number of confirmations.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM screening_confirmations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmations: %w", err)
	}
	return count, nil
}

// Delete removes a confirmation by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM screening_confirmations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete confirmation: %w", err)
	}
	return nil
}

// ExportJSON exports all confirmations to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportAll(ctx, s, writer)
}

// ImportJSON imports confirmations from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importAll(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
