package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

const (
	maxPlausibleAge   = 120
	maxPregnancyWeeks = 45
	bmiImperialFactor = 703.0
)

// Normalizer converts raw onboarding answers into a validated Profile.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a normalizer that evaluates against the current date.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerWithClock creates a normalizer with an injected clock.
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize validates raw answers and derives a Profile as of the normalizer's clock.
func (n *Normalizer) Normalize(raw *RawAnswers) (*Profile, error) {
	return NormalizeAt(raw, n.now())
}

// NormalizeAt validates raw answers and derives a Profile as of the given date.
func NormalizeAt(raw *RawAnswers, asOf time.Time) (*Profile, error) {
	if raw == nil {
		return nil, NewValidationError("answers", "onboarding answers are required", nil)
	}
	asOf = truncateToDate(asOf)

	p := &Profile{
		asOf:          asOf,
		removedOrgans: make(map[Organ]string),
		conditions:    make(map[Condition]bool),
		familyHistory: make(map[FamilyHistory]bool),
		recency:       make(map[ScreeningKey]RecencyBucket, len(ScreeningKeys)),
		logistics:     raw.Logistics,
	}

	if err := normalizeDemographics(raw, p); err != nil {
		return nil, err
	}
	normalizeAnatomy(raw.SurgicalHistory, p)
	if err := normalizePregnancy(raw, p); err != nil {
		return nil, err
	}
	if err := normalizeSmoking(raw, p); err != nil {
		return nil, err
	}
	if err := normalizeAlcohol(raw, p); err != nil {
		return nil, err
	}
	if err := normalizeSexualHealth(raw, p); err != nil {
		return nil, err
	}
	if err := normalizeHistory(raw, p); err != nil {
		return nil, err
	}
	if err := normalizeBody(raw, p); err != nil {
		return nil, err
	}
	if err := normalizeRecency(raw, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AgeOn returns whole years elapsed between birth and asOf. A Feb 29 birthday is reached
// on Mar 1 in non-leap years.
func AgeOn(dateOfBirth, asOf time.Time) int {
	years := asOf.Year() - dateOfBirth.Year()
	if asOf.Month() < dateOfBirth.Month() ||
		(asOf.Month() == dateOfBirth.Month() && asOf.Day() < dateOfBirth.Day()) {
		years--
	}
	return years
}

// BucketFor maps the date of the last screening to a recency bucket as of the given date.
// A nil date means the screening was never done.
func BucketFor(lastScreened *time.Time, asOf time.Time) RecencyBucket {
	if lastScreened == nil {
		return RECENCY_NEVER
	}
	switch elapsed := AgeOn(*lastScreened, asOf); {
	case elapsed < 1:
		return RECENCY_WITHIN_1_YEAR
	case elapsed < 3:
		return RECENCY_1_3_YEARS
	default:
		return RECENCY_OVER_3_YEARS
	}
}

// ParseDate parses a calendar date, accepting RFC 3339 timestamps as well.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD: %w", err)
	}
	return truncateToDate(t), nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeDemographics(raw *RawAnswers, p *Profile) error {
	if strings.TrimSpace(raw.DateOfBirth) == "" {
		return NewValidationError("dateOfBirth", "date of birth is required", raw.DateOfBirth)
	}
	dob, err := ParseDate(raw.DateOfBirth)
	if err != nil {
		return NewValidationError("dateOfBirth", err.Error(), raw.DateOfBirth)
	}
	if dob.After(p.asOf) {
		return NewValidationError("dateOfBirth", "date of birth is in the future", raw.DateOfBirth)
	}
	age := AgeOn(dob, p.asOf)
	if age > maxPlausibleAge {
		return NewValidationError("dateOfBirth", "age is not plausible", raw.DateOfBirth)
	}

	if strings.TrimSpace(raw.SexAtBirth) == "" {
		return NewValidationError("sexAtBirth", "sex at birth is required", raw.SexAtBirth)
	}
	sex, err := ParseSex(strings.ToLower(strings.TrimSpace(raw.SexAtBirth)))
	if err != nil {
		return NewValidationError("sexAtBirth", err.Error(), raw.SexAtBirth)
	}

	p.dateOfBirth = dob
	p.age = age
	p.sex = sex
	return nil
}

// Surgical flags that do not match sex at birth are ignored.
func normalizeAnatomy(s SurgicalHistory, p *Profile) {
	switch p.sex {
	case FEMALE:
		if s.Hysterectomy {
			p.removedOrgans[CERVIX] = "hysterectomy"
		}
		if s.Oophorectomy {
			p.removedOrgans[OVARIES] = "oophorectomy"
		}
		p.removedOrgans[PROSTATE] = notPresentForSex
	case MALE:
		if s.Prostatectomy {
			p.removedOrgans[PROSTATE] = "prostatectomy"
		}
		p.removedOrgans[CERVIX] = notPresentForSex
		p.removedOrgans[OVARIES] = notPresentForSex
	}
}

func normalizePregnancy(raw *RawAnswers, p *Profile) error {
	if p.sex != FEMALE || !raw.IsPregnant {
		return nil
	}
	if w := raw.WeeksPregnant; w != nil {
		if *w < 0 || *w > maxPregnancyWeeks {
			return NewValidationError("weeksPregnant",
				fmt.Sprintf("must be between 0 and %d", maxPregnancyWeeks), *w)
		}
		p.weeksPregnant = copyInt(w)
	}
	p.pregnant = true
	return nil
}

func normalizeSmoking(raw *RawAnswers, p *Profile) error {
	status := SmokingStatus(strings.ToLower(strings.TrimSpace(raw.SmokingStatus)))
	if status != "" && !status.IsValid() {
		return NewValidationError("smokingStatus", ErrInvalidSmoking.Error(), raw.SmokingStatus)
	}
	p.smokingStatus = status

	if raw.SmokingYears != nil && *raw.SmokingYears < 0 {
		return NewValidationError("smokingYears", "must not be negative", *raw.SmokingYears)
	}
	if raw.PacksPerDay != nil && *raw.PacksPerDay < 0 {
		return NewValidationError("packsPerDay", "must not be negative", *raw.PacksPerDay)
	}

	switch status {
	case NEVER_SMOKED:
		zero := 0.0
		p.packYears = &zero
	case FORMER_SMOKER, CURRENT_SMOKER:
		if raw.SmokingYears != nil && raw.PacksPerDay != nil {
			py := *raw.SmokingYears * *raw.PacksPerDay
			p.packYears = &py
		}
	}

	if status == FORMER_SMOKER && raw.QuitYear != nil {
		quit := *raw.QuitYear
		if quit > p.asOf.Year() {
			return NewValidationError("quitYear", "quit year is in the future", quit)
		}
		if quit < p.dateOfBirth.Year() {
			return NewValidationError("quitYear", "quit year precedes date of birth", quit)
		}
		since := p.asOf.Year() - quit
		p.yearsSinceQuit = &since
	}
	return nil
}

func normalizeAlcohol(raw *RawAnswers, p *Profile) error {
	freq := AlcoholFrequency(strings.ToLower(strings.TrimSpace(raw.AlcoholFrequency)))
	if freq != "" && !freq.IsValid() {
		return NewValidationError("alcoholFrequency", "invalid alcohol frequency", raw.AlcoholFrequency)
	}
	if raw.DrinksPerOccasion != nil && *raw.DrinksPerOccasion < 0 {
		return NewValidationError("drinksPerOccasion", "must not be negative", *raw.DrinksPerOccasion)
	}
	p.alcoholFrequency = freq
	if freq == ALCOHOL_NEVER {
		zero := 0
		p.drinksPerOccasion = &zero
		return nil
	}
	p.drinksPerOccasion = copyInt(raw.DrinksPerOccasion)
	return nil
}

func normalizeSexualHealth(raw *RawAnswers, p *Profile) error {
	var err error
	if p.sexuallyActive, err = parseTriState("sexuallyActive", raw.SexuallyActive); err != nil {
		return err
	}
	if p.stiHistory, err = parseTriState("stiHistory", raw.STIHistory); err != nil {
		return err
	}
	if p.hivRisk, err = parseTriState("hivRisk", raw.HIVRisk); err != nil {
		return err
	}
	if raw.PartnersLast12Months != nil && *raw.PartnersLast12Months < 0 {
		return NewValidationError("partnersLast12Months", "must not be negative", *raw.PartnersLast12Months)
	}
	p.partners = copyInt(raw.PartnersLast12Months)
	return nil
}

// parseTriState treats blank and "prefer not to answer" as unknown.
func parseTriState(field, value string) (TriState, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "", "prefer_not_to_answer", "prefer_not_to_say":
		return UNKNOWN, nil
	}
	t := TriState(v)
	if !t.IsValid() {
		return "", NewValidationError(field, ErrInvalidTriState.Error(), value)
	}
	return t, nil
}

func normalizeHistory(raw *RawAnswers, p *Profile) error {
	for _, c := range raw.Conditions {
		cond := Condition(strings.ToLower(strings.TrimSpace(c)))
		if !cond.IsValid() {
			return NewValidationError("conditions", ErrInvalidCondition.Error(), c)
		}
		p.conditions[cond] = true
	}
	for _, f := range raw.FamilyHistory {
		fh := FamilyHistory(strings.ToLower(strings.TrimSpace(f)))
		if !fh.IsValid() {
			return NewValidationError("familyHistory", "invalid family history item", f)
		}
		p.familyHistory[fh] = true
	}
	if p.conditions[CANCER] && len(raw.CancerTypes) > 0 {
		types := make([]string, 0, len(raw.CancerTypes))
		for _, t := range raw.CancerTypes {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, strings.ToLower(t))
			}
		}
		sort.Strings(types)
		p.cancerTypes = types
	}
	return nil
}

func normalizeBody(raw *RawAnswers, p *Profile) error {
	p.bmiCategory = BMI_UNKNOWN
	if raw.HeightInches != nil && *raw.HeightInches <= 0 {
		return NewValidationError("heightInches", "must be positive", *raw.HeightInches)
	}
	if raw.WeightLbs != nil && *raw.WeightLbs <= 0 {
		return NewValidationError("weightLbs", "must be positive", *raw.WeightLbs)
	}
	if raw.HeightInches == nil || raw.WeightLbs == nil {
		return nil
	}
	h := *raw.HeightInches
	// Unrounded; thresholds apply to the exact value.
	bmi := *raw.WeightLbs / (h * h) * bmiImperialFactor
	p.bmi = &bmi
	p.bmiCategory = CategorizeBMI(bmi)
	return nil
}

// CategorizeBMI buckets a BMI value at 18.5 / 25 / 30.
func CategorizeBMI(bmi float64) BMICategory {
	switch {
	case bmi < 18.5:
		return BMI_UNDERWEIGHT
	case bmi < 25:
		return BMI_NORMAL
	case bmi < 30:
		return BMI_OVERWEIGHT
	default:
		return BMI_OBESE
	}
}

func normalizeRecency(raw *RawAnswers, p *Profile) error {
	keys := make([]string, 0, len(raw.ScreeningHistory))
	for k := range raw.ScreeningHistory {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := raw.ScreeningHistory[k]
		key := ScreeningKey(k)
		if !key.IsValid() {
			return NewValidationError("screeningHistory", "unknown screening", k)
		}
		if v == "" {
			continue
		}
		bucket, err := ParseRecencyBucket(v)
		if err != nil {
			return NewValidationError("screeningHistory."+k, err.Error(), v)
		}
		p.recency[key] = bucket
	}
	for _, key := range ScreeningKeys {
		if _, ok := p.recency[key]; !ok {
			p.recency[key] = RECENCY_NOT_SURE
		}
	}
	return nil
}
