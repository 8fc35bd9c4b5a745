// Package onboarding declares the onboarding wizard's steps and which of them a patient sees.
package onboarding

import (
	"slices"
	"strings"
	"time"

	"github.com/preventive-care-server/internal/domain"
)

// Step is one screen of the onboarding wizard.
type Step struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Fields []string `json:"fields"`
	Number int      `json:"number"`
	Total  int      `json:"total"`

	visible func(raw *domain.RawAnswers, asOf time.Time) bool
}

// Pregnancy questions are asked of female patients in this age range.
const (
	minPregnancyAge = 12
	maxPregnancyAge = 55
)

var steps = []Step{
	{ID: "basics", Title: "About you", Fields: []string{"dateOfBirth", "sexAtBirth"}},
	{ID: "anatomy", Title: "Surgical history", Fields: []string{"surgicalHistory"}},
	{ID: "pregnancy", Title: "Pregnancy", Fields: []string{"isPregnant", "weeksPregnant"}, visible: mayBePregnant},
	{ID: "smoking", Title: "Tobacco use", Fields: []string{"smokingStatus"}},
	{ID: "smoking_details", Title: "Smoking history", Fields: []string{"smokingYears", "packsPerDay", "quitYear"}, visible: hasSmoked},
	{ID: "alcohol", Title: "Alcohol use", Fields: []string{"alcoholFrequency", "drinksPerOccasion"}},
	{ID: "sexual_health", Title: "Sexual health", Fields: []string{"sexuallyActive"}},
	{ID: "sexual_health_details", Title: "Sexual health details", Fields: []string{"partnersLast12Months", "stiHistory", "hivRisk"}, visible: sexuallyActive},
	{ID: "conditions", Title: "Health conditions", Fields: []string{"conditions"}},
	{ID: "cancer_details", Title: "Cancer history", Fields: []string{"cancerTypes"}, visible: hadCancer},
	{ID: "family_history", Title: "Family history", Fields: []string{"familyHistory"}},
	{ID: "body", Title: "Height and weight", Fields: []string{"heightInches", "weightLbs"}},
	{ID: "screening_history", Title: "Past screenings", Fields: []string{"screeningHistory"}},
	{ID: "logistics", Title: "Scheduling preferences", Fields: []string{"logistics"}},
}

// All returns every step in wizard order, numbered as if all were visible.
func All() []Step {
	return number(slices.Clone(steps))
}

// VisibleSteps returns the steps shown for the answers given so far, renumbered 1..n.
func VisibleSteps(raw *domain.RawAnswers, asOf time.Time) []Step {
	if raw == nil {
		raw = &domain.RawAnswers{}
	}
	shown := domain.FilterOrdered(steps, func(s Step) bool {
		return s.visible == nil || s.visible(raw, asOf)
	})
	return number(shown)
}

func number(list []Step) []Step {
	for i := range list {
		list[i].Number = i + 1
		list[i].Total = len(list)
		list[i].Fields = slices.Clone(list[i].Fields)
	}
	return list
}

// mayBePregnant is true for female patients of childbearing age. An unreadable date of birth
// keeps the step so the question is not lost.
func mayBePregnant(raw *domain.RawAnswers, asOf time.Time) bool {
	if domain.Sex(normalize(raw.SexAtBirth)) != domain.FEMALE {
		return false
	}
	dob, err := domain.ParseDate(raw.DateOfBirth)
	if err != nil {
		return true
	}
	age := domain.AgeOn(dob, asOf)
	return age >= minPregnancyAge && age <= maxPregnancyAge
}

func hasSmoked(raw *domain.RawAnswers, _ time.Time) bool {
	return domain.SmokingStatus(normalize(raw.SmokingStatus)).Smoked()
}

func sexuallyActive(raw *domain.RawAnswers, _ time.Time) bool {
	return domain.TriState(normalize(raw.SexuallyActive)) == domain.YES
}

func hadCancer(raw *domain.RawAnswers, _ time.Time) bool {
	return slices.ContainsFunc(raw.Conditions, func(c string) bool {
		return domain.Condition(normalize(c)) == domain.CANCER
	})
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
