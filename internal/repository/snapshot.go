package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/preventive-care-server/internal/domain"
)

// SnapshotRepository stores computed checklists in PostgreSQL
type SnapshotRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *pgxpool.Pool, logger *logrus.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: logger,
	}
}

// SaveSnapshot inserts a snapshot. Snapshots are immutable, so there is no update path.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *domain.ChecklistSnapshot) error {
	if snapshot.Checklist == nil {
		return domain.NewValidationError("checklist", "snapshot has no checklist", nil)
	}
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	id, err := uuid.Parse(snapshot.ID)
	if err != nil {
		return domain.NewValidationError("id", "snapshot id must be a UUID", snapshot.ID)
	}

	body, err := json.Marshal(snapshot.Checklist)
	if err != nil {
		return fmt.Errorf("encoding checklist: %w", err)
	}

	query := `
		INSERT INTO checklist_snapshots (
			id, patient_id, profile_hash, catalog_version, as_of, due_now, due_soon, checklist
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING created_at`

	err = r.db.QueryRow(ctx, query,
		id,
		snapshot.PatientID,
		snapshot.ProfileHash,
		snapshot.CatalogVersion,
		snapshot.AsOf,
		snapshot.Checklist.DueNowCount,
		snapshot.Checklist.DueSoonCount,
		body,
	).Scan(&snapshot.CreatedAt)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"snapshot_id": snapshot.ID,
			"patient_id":  snapshot.PatientID,
			"error":       err,
		}).Error("Failed to save checklist snapshot")
		return fmt.Errorf("saving snapshot: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"snapshot_id":     snapshot.ID,
		"catalog_version": snapshot.CatalogVersion,
		"due_now":         snapshot.Checklist.DueNowCount,
	}).Debug("Checklist snapshot saved")

	return nil
}

// GetSnapshot retrieves a snapshot by its ID
func (r *SnapshotRepository) GetSnapshot(ctx context.Context, id string) (*domain.ChecklistSnapshot, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.NewNotFoundError("snapshot", id)
	}

	query := `
		SELECT id, patient_id, profile_hash, catalog_version, as_of, checklist, created_at
		FROM checklist_snapshots
		WHERE id = $1`

	snapshot, err := scanSnapshot(r.db.QueryRow(ctx, query, parsed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("snapshot", id)
		}
		r.log.WithFields(logrus.Fields{
			"snapshot_id": id,
			"error":       err,
		}).Error("Failed to get checklist snapshot")
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}

	return snapshot, nil
}

// ListSnapshots returns a patient's most recent snapshots, newest first
func (r *SnapshotRepository) ListSnapshots(ctx context.Context, patientID string, limit int) ([]*domain.ChecklistSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, patient_id, profile_hash, catalog_version, as_of, checklist, created_at
		FROM checklist_snapshots
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, patientID, limit)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to list checklist snapshots")
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.ChecklistSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}

	return snapshots, nil
}

func scanSnapshot(row pgx.Row) (*domain.ChecklistSnapshot, error) {
	var snapshot domain.ChecklistSnapshot
	var id uuid.UUID
	var asOf time.Time
	var body []byte

	err := row.Scan(
		&id,
		&snapshot.PatientID,
		&snapshot.ProfileHash,
		&snapshot.CatalogVersion,
		&asOf,
		&body,
		&snapshot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	snapshot.ID = id.String()
	snapshot.AsOf = asOf.UTC()
	snapshot.Checklist = &domain.Checklist{}
	if err := json.Unmarshal(body, snapshot.Checklist); err != nil {
		return nil, fmt.Errorf("decoding checklist: %w", err)
	}
	return &snapshot, nil
}
