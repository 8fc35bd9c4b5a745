package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"

	"github.com/preventive-care-server/migrations"
)

// MigrationRunner applies the snapshot and confirmation schema. With no path it uses the
// migrations compiled into the binary; a path overrides them with a directory on disk.
type MigrationRunner struct {
	migrate *migrate.Migrate
	source  string
	log     *logrus.Logger
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	var (
		m      *migrate.Migrate
		err    error
		source = "embedded"
	)
	if migrationsPath == "" {
		src, srcErr := iofs.New(migrations.FS, ".")
		if srcErr != nil {
			return nil, fmt.Errorf("opening embedded migrations: %w", srcErr)
		}
		m, err = migrate.NewWithSourceInstance("iofs", src, databaseURL)
	} else {
		source = "file://" + migrationsPath
		m, err = migrate.New(source, databaseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}

	return &MigrationRunner{migrate: m, source: source, log: logger}, nil
}

// Up applies every pending migration.
func (mr *MigrationRunner) Up(ctx context.Context) error {
	return mr.run(ctx, "up", mr.migrate.Up)
}

// Down rolls back the most recent migration.
func (mr *MigrationRunner) Down(ctx context.Context) error {
	return mr.run(ctx, "down", func() error { return mr.migrate.Steps(-1) })
}

// run executes one migration step and asks golang-migrate to stop between files once ctx ends.
func (mr *MigrationRunner) run(ctx context.Context, direction string, step func() error) error {
	entry := mr.log.WithFields(logrus.Fields{
		"direction": direction,
		"source":    mr.source,
	})
	entry.Info("Running schema migrations")

	done := make(chan error, 1)
	go func() { done <- step() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		mr.migrate.GracefulStop <- true
		<-done
		return fmt.Errorf("migrations %s interrupted: %w", direction, ctx.Err())
	}

	if errors.Is(err, migrate.ErrNoChange) {
		entry.Info("Schema already current")
		return nil
	}
	if err != nil {
		return fmt.Errorf("running migrations %s: %w", direction, err)
	}

	version, dirty, verr := mr.Version()
	if verr != nil {
		entry.WithError(verr).Warn("Could not read schema version")
		return nil
	}
	entry.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("Schema migrations applied")
	return nil
}

// Version returns the current schema version. A fresh database reports version 0.
func (mr *MigrationRunner) Version() (uint, bool, error) {
	version, dirty, err := mr.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the migration source and database handles.
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}
