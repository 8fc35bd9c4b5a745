package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/preventive-care-server/internal/database"
	"github.com/preventive-care-server/internal/domain"
)

// generateTestPassword creates a random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := database.ConfigFrom(domain.DatabaseConfig{
		Host:         host,
		Port:         port.Int(),
		Database:     "testdb",
		Username:     "testuser",
		Password:     testPassword,
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	})

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	migrationRunner, err := database.NewMigrationRunner(config.URL(), "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}
	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func testChecklist() *domain.Checklist {
	return &domain.Checklist{
		Recommendations: []domain.Recommendation{
			{ScreeningID: "colorectal-cancer-screening", Title: "Colorectal cancer screening", Category: "cancer", Status: domain.DUE_NOW, Rationale: "Adults aged 45 to 75", Priority: 1},
			{ScreeningID: "blood-pressure-screening", Title: "Blood pressure screening", Category: "cardiovascular", Status: domain.UP_TO_DATE, Rationale: "Adults 18 and older", Priority: 2},
		},
		DueNowCount:    1,
		UpToDateCount:  1,
		CatalogVersion: "uspstf-2024.1",
	}
}

func TestSnapshotRepository_SaveAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewSnapshotRepository(db.Pool, logger)
	ctx := context.Background()

	snapshot := &domain.ChecklistSnapshot{
		PatientID:      "patient-1",
		ProfileHash:    "abc123",
		CatalogVersion: "uspstf-2024.1",
		AsOf:           time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		Checklist:      testChecklist(),
	}
	if err := repo.SaveSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}
	if _, err := uuid.Parse(snapshot.ID); err != nil {
		t.Fatalf("Expected generated UUID, got %q", snapshot.ID)
	}
	if snapshot.CreatedAt.IsZero() {
		t.Error("Expected created_at to be populated")
	}

	got, err := repo.GetSnapshot(ctx, snapshot.ID)
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if got.ProfileHash != "abc123" || got.PatientID != "patient-1" {
		t.Errorf("Unexpected snapshot %+v", got)
	}
	if !got.AsOf.Equal(snapshot.AsOf) {
		t.Errorf("Expected as_of %v, got %v", snapshot.AsOf, got.AsOf)
	}
	if len(got.Checklist.Recommendations) != 2 || got.Checklist.Recommendations[0].Status != domain.DUE_NOW {
		t.Errorf("Checklist did not round trip: %+v", got.Checklist)
	}
}

func TestSnapshotRepository_GetMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewSnapshotRepository(db.Pool, logger)

	for _, id := range []string{uuid.New().String(), "not-a-uuid"} {
		_, err := repo.GetSnapshot(context.Background(), id)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for %s, got %v", id, err)
		}
	}
}

func TestSnapshotRepository_ListSnapshots(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewSnapshotRepository(db.Pool, logger)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snapshot := &domain.ChecklistSnapshot{
			PatientID:      "patient-2",
			ProfileHash:    "hash",
			CatalogVersion: "uspstf-2024.1",
			AsOf:           time.Date(2025, time.June, 1+i, 0, 0, 0, 0, time.UTC),
			Checklist:      testChecklist(),
		}
		if err := repo.SaveSnapshot(ctx, snapshot); err != nil {
			t.Fatalf("Failed to save snapshot: %v", err)
		}
	}

	snapshots, err := repo.ListSnapshots(ctx, "patient-2", 2)
	if err != nil {
		t.Fatalf("Failed to list snapshots: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snapshots))
	}
	if snapshots[0].CreatedAt.Before(snapshots[1].CreatedAt) {
		t.Error("Expected newest snapshot first")
	}

	none, err := repo.ListSnapshots(ctx, "nobody", 10)
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no snapshots, got %d (%v)", len(none), err)
	}
}

func TestSnapshotRepository_RejectsInvalidInput(t *testing.T) {
	repo := NewSnapshotRepository(nil, logrus.New())

	err := repo.SaveSnapshot(context.Background(), &domain.ChecklistSnapshot{})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "checklist" {
		t.Errorf("Expected checklist validation error, got %v", err)
	}

	err = repo.SaveSnapshot(context.Background(), &domain.ChecklistSnapshot{ID: "nope", Checklist: testChecklist()})
	if !errors.As(err, &validationErr) || validationErr.Field != "id" {
		t.Errorf("Expected id validation error, got %v", err)
	}
}
