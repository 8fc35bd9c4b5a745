package domain

import (
	"context"
	"time"
)

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}

// ChecklistCache memoizes computed checklists. Implementations treat failures as misses.
type ChecklistCache interface {
	Get(ctx context.Context, key string) (*Checklist, bool)
	Set(ctx context.Context, key string, checklist *Checklist, ttl time.Duration)
	Close() error
}

// SnapshotRepository persists computed checklists for audit
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snapshot *ChecklistSnapshot) error
	GetSnapshot(ctx context.Context, id string) (*ChecklistSnapshot, error)
	ListSnapshots(ctx context.Context, patientID string, limit int) ([]*ChecklistSnapshot, error)
}

// ChecklistSnapshot is an immutable record of one computed checklist
type ChecklistSnapshot struct {
	ID             string     `json:"id"`
	PatientID      string     `json:"patient_id,omitempty"`
	ProfileHash    string     `json:"profile_hash"`
	CatalogVersion string     `json:"catalog_version"`
	AsOf           time.Time  `json:"as_of"`
	Checklist      *Checklist `json:"checklist"`
	CreatedAt      time.Time  `json:"created_at"`
}
