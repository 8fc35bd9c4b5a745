package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Profile is the canonical, immutable health-risk profile. It is built only by the Normalizer,
// so every Profile the engine sees has already passed validation.
type Profile struct {
	asOf        time.Time
	dateOfBirth time.Time
	age         int
	sex         Sex

	removedOrgans map[Organ]string

	pregnant      bool
	weeksPregnant *int

	smokingStatus  SmokingStatus
	packYears      *float64
	yearsSinceQuit *int

	alcoholFrequency  AlcoholFrequency
	drinksPerOccasion *int

	sexuallyActive TriState
	partners       *int
	stiHistory     TriState
	hivRisk        TriState

	conditions    map[Condition]bool
	cancerTypes   []string
	familyHistory map[FamilyHistory]bool

	bmi         *float64
	bmiCategory BMICategory

	recency map[ScreeningKey]RecencyBucket

	logistics Logistics
}

// AsOf is the evaluation date the derived fields were computed against.
func (p *Profile) AsOf() time.Time { return p.asOf }

func (p *Profile) DateOfBirth() time.Time { return p.dateOfBirth }

func (p *Profile) Age() int { return p.age }

func (p *Profile) Sex() Sex { return p.sex }

// HasOrgan reports whether the organ is present after surgical-history inference.
func (p *Profile) HasOrgan(o Organ) bool {
	_, removed := p.removedOrgans[o]
	return !removed
}

// IsSurgicallyRemoved reports whether surgical history removed the organ.
func (p *Profile) IsSurgicallyRemoved(o Organ) bool {
	reason, removed := p.removedOrgans[o]
	return removed && reason != notPresentForSex
}

// RemovalReason names the procedure that removed the organ, empty when present.
func (p *Profile) RemovalReason(o Organ) string {
	return p.removedOrgans[o]
}

func (p *Profile) IsPregnant() bool { return p.pregnant }

func (p *Profile) WeeksPregnant() *int { return copyInt(p.weeksPregnant) }

func (p *Profile) SmokingStatus() SmokingStatus { return p.smokingStatus }

// PackYears is nil when a smoker's history is incomplete.
func (p *Profile) PackYears() *float64 { return copyFloat(p.packYears) }

func (p *Profile) YearsSinceQuit() *int { return copyInt(p.yearsSinceQuit) }

func (p *Profile) AlcoholFrequency() AlcoholFrequency { return p.alcoholFrequency }

func (p *Profile) DrinksPerOccasion() *int { return copyInt(p.drinksPerOccasion) }

func (p *Profile) SexuallyActive() TriState { return p.sexuallyActive }

func (p *Profile) PartnersLast12Months() *int { return copyInt(p.partners) }

func (p *Profile) STIHistory() TriState { return p.stiHistory }

func (p *Profile) HIVRisk() TriState { return p.hivRisk }

func (p *Profile) HasCondition(c Condition) bool { return p.conditions[c] }

// Conditions returns the reported conditions in sorted order.
func (p *Profile) Conditions() []Condition {
	out := make([]Condition, 0, len(p.conditions))
	for c := range p.conditions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p *Profile) CancerTypes() []string {
	return append([]string(nil), p.cancerTypes...)
}

func (p *Profile) HasFamilyHistory(f FamilyHistory) bool { return p.familyHistory[f] }

// FamilyHistory returns the reported family history in sorted order.
func (p *Profile) FamilyHistory() []FamilyHistory {
	out := make([]FamilyHistory, 0, len(p.familyHistory))
	for f := range p.familyHistory {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BMI is the unrounded body mass index, nil when height or weight is missing.
func (p *Profile) BMI() *float64 { return copyFloat(p.bmi) }

func (p *Profile) BMICategory() BMICategory { return p.bmiCategory }

// Recency returns the bucket for a screening key. Unanswered keys are not_sure.
func (p *Profile) Recency(key ScreeningKey) RecencyBucket {
	if b, ok := p.recency[key]; ok {
		return b
	}
	return RECENCY_NOT_SURE
}

func (p *Profile) Logistics() Logistics { return p.logistics }

const notPresentForSex = "not present for sex at birth"

// profileSnapshot is the canonical serialized form. Sets are emitted sorted and maps are
// encoded with sorted keys, so equal profiles always marshal to equal bytes.
type profileSnapshot struct {
	AsOf              string                         `json:"asOf"`
	DateOfBirth       string                         `json:"dateOfBirth"`
	Age               int                            `json:"age"`
	Sex               Sex                            `json:"sexAtBirth"`
	CervixPresent     bool                           `json:"cervixPresent"`
	OvariesPresent    bool                           `json:"ovariesPresent"`
	ProstatePresent   bool                           `json:"prostatePresent"`
	Pregnant          bool                           `json:"isPregnant"`
	WeeksPregnant     *int                           `json:"weeksPregnant,omitempty"`
	SmokingStatus     SmokingStatus                  `json:"smokingStatus,omitempty"`
	PackYears         *float64                       `json:"packYears,omitempty"`
	YearsSinceQuit    *int                           `json:"yearsSinceQuit,omitempty"`
	AlcoholFrequency  AlcoholFrequency               `json:"alcoholFrequency,omitempty"`
	DrinksPerOccasion *int                           `json:"drinksPerOccasion,omitempty"`
	SexuallyActive    TriState                       `json:"sexuallyActive"`
	Partners          *int                           `json:"partnersLast12Months,omitempty"`
	STIHistory        TriState                       `json:"stiHistory"`
	HIVRisk           TriState                       `json:"hivRisk"`
	Conditions        []Condition                    `json:"conditions"`
	CancerTypes       []string                       `json:"cancerTypes,omitempty"`
	FamilyHistory     []FamilyHistory                `json:"familyHistory"`
	BMI               *float64                       `json:"bmi,omitempty"`
	BMICategory       BMICategory                    `json:"bmiCategory"`
	Recency           map[ScreeningKey]RecencyBucket `json:"screeningRecency"`
}

// MarshalJSON emits the canonical form used for hashing and audit snapshots.
// Logistics are excluded because they never influence the checklist.
func (p *Profile) MarshalJSON() ([]byte, error) {
	recency := make(map[ScreeningKey]RecencyBucket, len(ScreeningKeys))
	for _, key := range ScreeningKeys {
		recency[key] = p.Recency(key)
	}
	return json.Marshal(profileSnapshot{
		AsOf:              p.asOf.Format(DateLayout),
		DateOfBirth:       p.dateOfBirth.Format(DateLayout),
		Age:               p.age,
		Sex:               p.sex,
		CervixPresent:     p.HasOrgan(CERVIX),
		OvariesPresent:    p.HasOrgan(OVARIES),
		ProstatePresent:   p.HasOrgan(PROSTATE),
		Pregnant:          p.pregnant,
		WeeksPregnant:     p.weeksPregnant,
		SmokingStatus:     p.smokingStatus,
		PackYears:         p.packYears,
		YearsSinceQuit:    p.yearsSinceQuit,
		AlcoholFrequency:  p.alcoholFrequency,
		DrinksPerOccasion: p.drinksPerOccasion,
		SexuallyActive:    p.sexuallyActive,
		Partners:          p.partners,
		STIHistory:        p.stiHistory,
		HIVRisk:           p.hivRisk,
		Conditions:        p.Conditions(),
		CancerTypes:       p.cancerTypes,
		FamilyHistory:     p.FamilyHistory(),
		BMI:               p.bmi,
		BMICategory:       p.bmiCategory,
		Recency:           recency,
	})
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
