package service

import (
	"github.com/preventive-care-server/internal/domain"
)

// SchedulingTarget is what a booking UI needs to proceed with one screening.
type SchedulingTarget struct {
	ScreeningID string        `json:"screeningId"`
	Title       string        `json:"title"`
	Status      domain.Status `json:"status"`
	LocationID  string        `json:"locationId,omitempty"`
}

// SchedulingBridge validates that a screening is on the current checklist before booking.
// It does not schedule anything.
type SchedulingBridge struct {
	locations map[string]string
}

// NewSchedulingBridge creates a bridge with a category to location id mapping.
func NewSchedulingBridge(locations map[string]string) *SchedulingBridge {
	copied := make(map[string]string, len(locations))
	for category, id := range locations {
		copied[category] = id
	}
	return &SchedulingBridge{locations: copied}
}

// ValidateForScheduling returns the booking target for a screening on the checklist, or a
// *domain.NotFoundError when the id is absent.
func (b *SchedulingBridge) ValidateForScheduling(checklist *domain.Checklist, screeningID string) (*SchedulingTarget, error) {
	rec, ok := checklist.Find(screeningID)
	if !ok {
		return nil, domain.NewNotFoundError("screening", screeningID)
	}
	return &SchedulingTarget{
		ScreeningID: rec.ScreeningID,
		Title:       rec.Title,
		Status:      rec.Status,
		LocationID:  b.locations[rec.Category],
	}, nil
}
