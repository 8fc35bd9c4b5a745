// Package confirmation stores patients' later answers about when a screening last happened.
// A stored confirmation replaces a "not sure" recency answer on the next evaluation.
package confirmation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/preventive-care-server/internal/domain"
)

// Source records who supplied a confirmation.
type Source string

const (
	SourcePatient   Source = "patient"
	SourceClinician Source = "clinician"
	SourceImport    Source = "import"
)

// Confirmation is one patient's confirmed date for one screening.
type Confirmation struct {
	ID             int64               `json:"id,omitempty"`
	PatientID      string              `json:"patient_id"`
	ScreeningKey   domain.ScreeningKey `json:"screening_key"`
	LastScreenedOn *time.Time          `json:"last_screened_on,omitempty"` // nil means never screened
	Source         Source              `json:"source"`
	Notes          string              `json:"notes,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Validate checks a confirmation against the evaluation date.
func (c *Confirmation) Validate(asOf time.Time) error {
	if c.PatientID == "" {
		return domain.NewValidationError("patient_id", "patient id is required", c.PatientID)
	}
	if !c.ScreeningKey.IsValid() {
		return domain.NewValidationError("screening_key", "unknown screening", string(c.ScreeningKey))
	}
	if c.LastScreenedOn != nil && c.LastScreenedOn.After(asOf) {
		return domain.NewValidationError("last_screened_on", "date is in the future",
			c.LastScreenedOn.Format(domain.DateLayout))
	}
	switch c.Source {
	case SourcePatient, SourceClinician, SourceImport:
	case "":
		c.Source = SourcePatient
	default:
		return domain.NewValidationError("source", fmt.Sprintf("unknown source %q", c.Source), string(c.Source))
	}
	return nil
}

// Bucket maps the confirmed date to a recency bucket as of the given date.
func (c *Confirmation) Bucket(asOf time.Time) domain.RecencyBucket {
	return domain.BucketFor(c.LastScreenedOn, asOf)
}

// Store defines the interface for confirmation storage operations.
type Store interface {
	// Save stores or updates a confirmation. A patient has at most one per screening key.
	Save(ctx context.Context, confirmation *Confirmation) error

	// Get returns the confirmation for a patient and key, or nil when none exists.
	Get(ctx context.Context, patientID string, key domain.ScreeningKey) (*Confirmation, error)

	// ListForPatient returns every confirmation of one patient ordered by screening key.
	ListForPatient(ctx context.Context, patientID string) ([]*Confirmation, error)

	// List returns all confirmations with pagination.
	List(ctx context.Context, limit, offset int) ([]*Confirmation, error)

	// Count returns the total number of confirmations.
	Count(ctx context.Context) (int64, error)

	// Delete removes a confirmation by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all confirmations to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports confirmations from a JSON reader, skipping ones that already exist
	// or fail validation.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version       string          `json:"version"`
	ExportedAt    time.Time       `json:"exported_at"`
	Count         int             `json:"count"`
	Confirmations []*Confirmation `json:"confirmations"`
}

const exportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ApplyToAnswers fills recency answers that are missing or not_sure from stored confirmations.
// Explicit answers in raw always win.
func ApplyToAnswers(raw domain.RawAnswers, confirmations []*Confirmation, asOf time.Time) domain.RawAnswers {
	for _, c := range confirmations {
		if c == nil || raw.ScreeningAnswer(c.ScreeningKey) != domain.RECENCY_NOT_SURE {
			continue
		}
		raw = raw.WithScreeningAnswer(c.ScreeningKey, c.Bucket(asOf))
	}
	return raw
}

func exportAll(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list confirmations: %w", err)
	}

	export := &Export{
		Version:       exportVersion,
		ExportedAt:    time.Now().UTC(),
		Count:         len(all),
		Confirmations: all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importAll(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	now := time.Now().UTC()
	for _, c := range export.Confirmations {
		if c == nil {
			skipped++
			continue
		}
		if c.Source == "" {
			c.Source = SourceImport
		}
		if err := c.Validate(now); err != nil {
			skipped++
			continue
		}

		existing, err := s.Get(ctx, c.PatientID, c.ScreeningKey)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		c.ID = 0
		if err := s.Save(ctx, c); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
