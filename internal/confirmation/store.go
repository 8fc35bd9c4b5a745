package confirmation

import (
	"fmt"

	"github.com/preventive-care-server/internal/domain"
)

// Store drivers accepted by NewStore.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// NewStore opens the store selected by the configuration.
// It returns a nil Store when confirmations are disabled.
func NewStore(config domain.ConfirmationsConfig) (Store, error) {
	switch config.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		if config.SQLitePath == "" {
			return nil, fmt.Errorf("confirmations.sqlite_path is required for the sqlite driver")
		}
		store, err := NewSQLiteStore(config.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverPostgres:
		if config.PostgresURL == "" {
			return nil, fmt.Errorf("confirmations.postgres_url is required for the postgres driver")
		}
		store, err := NewPostgresStoreFromURL(config.PostgresURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown confirmations driver %q", config.Driver)
	}
}
