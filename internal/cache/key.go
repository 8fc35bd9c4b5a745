package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/preventive-care-server/internal/domain"
)

// Key derives the cache key for a profile evaluated against a catalog version. Profiles
// marshal canonically, so equal profiles share a key.
func Key(profile *domain.Profile, catalogVersion string) (string, error) {
	data, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("failed to marshal profile for cache key: %w", err)
	}
	hash := sha256.Sum256(append([]byte(catalogVersion+"::"), data...))
	return hex.EncodeToString(hash[:]), nil
}
