package domain

// RawAnswers is the loosely typed onboarding payload as submitted by the wizard.
// Optional answers are pointers so that "not answered" and zero stay distinct.
type RawAnswers struct {
	DateOfBirth string `json:"dateOfBirth"`
	SexAtBirth  string `json:"sexAtBirth"`

	SurgicalHistory SurgicalHistory `json:"surgicalHistory"`

	IsPregnant    bool `json:"isPregnant"`
	WeeksPregnant *int `json:"weeksPregnant,omitempty"`

	SmokingStatus string   `json:"smokingStatus"`
	SmokingYears  *float64 `json:"smokingYears,omitempty"`
	PacksPerDay   *float64 `json:"packsPerDay,omitempty"`
	QuitYear      *int     `json:"quitYear,omitempty"`

	AlcoholFrequency  string `json:"alcoholFrequency"`
	DrinksPerOccasion *int   `json:"drinksPerOccasion,omitempty"`

	SexuallyActive       string `json:"sexuallyActive"`
	PartnersLast12Months *int   `json:"partnersLast12Months,omitempty"`
	STIHistory           string `json:"stiHistory"`
	HIVRisk              string `json:"hivRisk"`

	Conditions    []string `json:"conditions"`
	CancerTypes   []string `json:"cancerTypes,omitempty"`
	FamilyHistory []string `json:"familyHistory"`

	HeightInches *float64 `json:"heightInches,omitempty"`
	WeightLbs    *float64 `json:"weightLbs,omitempty"`

	ScreeningHistory map[string]string `json:"screeningHistory"`

	Logistics Logistics `json:"logistics"`
}

// SurgicalHistory records organ-removing procedures.
type SurgicalHistory struct {
	Hysterectomy  bool `json:"hysterectomy"`
	Oophorectomy  bool `json:"oophorectomy"`
	Prostatectomy bool `json:"prostatectomy"`
}

// Logistics is carried through for scheduling and is never read by the engine.
type Logistics struct {
	ZipCode                   string   `json:"zipCode,omitempty"`
	InsurancePlan             string   `json:"insurancePlan,omitempty"`
	HasPCP                    *bool    `json:"hasPCP,omitempty"`
	OpenToTelehealth          *bool    `json:"openToTelehealth,omitempty"`
	PreferredAppointmentTimes []string `json:"preferredAppointmentTimes,omitempty"`
}

// WithScreeningAnswer returns a copy of the answers with one recency answer replaced.
func (r RawAnswers) WithScreeningAnswer(key ScreeningKey, bucket RecencyBucket) RawAnswers {
	history := make(map[string]string, len(r.ScreeningHistory)+1)
	for k, v := range r.ScreeningHistory {
		history[k] = v
	}
	history[string(key)] = string(bucket)
	r.ScreeningHistory = history
	return r
}

// ScreeningAnswer returns the raw recency answer for key, treating a missing answer as not_sure.
func (r RawAnswers) ScreeningAnswer(key ScreeningKey) RecencyBucket {
	if v, ok := r.ScreeningHistory[string(key)]; ok && v != "" {
		return RecencyBucket(v)
	}
	return RECENCY_NOT_SURE
}
