package domain

// Recommendation is one screening on the patient's checklist.
type Recommendation struct {
	ScreeningID string       `json:"screeningId"`
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	Status      Status       `json:"status"`
	Rationale   string       `json:"rationale"`
	Priority    int          `json:"priority"`
	Source      string       `json:"source,omitempty"`
	RecencyKey  ScreeningKey `json:"recencyKey,omitempty"`
}

// Checklist is the ranked list of applicable recommendations with per-status counts.
type Checklist struct {
	Recommendations []Recommendation `json:"recommendations"`
	DueNowCount     int              `json:"dueNowCount"`
	DueSoonCount    int              `json:"dueSoonCount"`
	UpToDateCount   int              `json:"upToDateCount"`
	UnknownCount    int              `json:"unknownCount"`
	CatalogVersion  string           `json:"catalogVersion"`
}

// Find returns the recommendation with the given screening id.
func (c *Checklist) Find(screeningID string) (Recommendation, bool) {
	if c == nil {
		return Recommendation{}, false
	}
	for _, r := range c.Recommendations {
		if r.ScreeningID == screeningID {
			return r, true
		}
	}
	return Recommendation{}, false
}

// Decision is the audit form of one rule evaluation, including inapplicable rules.
type Decision struct {
	ScreeningID string        `json:"screeningId"`
	Title       string        `json:"title"`
	Category    string        `json:"category"`
	Applicable  bool          `json:"applicable"`
	Status      Status        `json:"status"`
	Recency     RecencyBucket `json:"recency"`
	Rationale   string        `json:"rationale"`
}

// FilterOrdered keeps the items for which keep returns true, preserving order.
func FilterOrdered[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
