package confirmation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preventive-care-server/internal/domain"
)

var asOf = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

func TestConfirmation_Validate(t *testing.T) {
	tests := []struct {
		name  string
		c     Confirmation
		field string
	}{
		{"Valid", Confirmation{PatientID: "p", ScreeningKey: domain.KEY_PSA, Source: SourcePatient}, ""},
		{"Missing_Patient", Confirmation{ScreeningKey: domain.KEY_PSA}, "patient_id"},
		{"Unknown_Key", Confirmation{PatientID: "p", ScreeningKey: "xray"}, "screening_key"},
		{"Future_Date", Confirmation{PatientID: "p", ScreeningKey: domain.KEY_PSA, LastScreenedOn: dayPtr(2025, time.June, 2)}, "last_screened_on"},
		{"Unknown_Source", Confirmation{PatientID: "p", ScreeningKey: domain.KEY_PSA, Source: "fax"}, "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate(asOf)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var validationErr *domain.ValidationError
			require.True(t, errors.As(err, &validationErr), "expected a ValidationError, got %v", err)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestConfirmation_ValidateDefaultsSource(t *testing.T) {
	c := Confirmation{PatientID: "p", ScreeningKey: domain.KEY_AAA}
	require.NoError(t, c.Validate(asOf))
	assert.Equal(t, SourcePatient, c.Source)
}

func TestConfirmation_Bucket(t *testing.T) {
	tests := []struct {
		date     *time.Time
		expected domain.RecencyBucket
	}{
		{nil, domain.RECENCY_NEVER},
		{dayPtr(2024, time.December, 1), domain.RECENCY_WITHIN_1_YEAR},
		{dayPtr(2024, time.June, 1), domain.RECENCY_1_3_YEARS},
		{dayPtr(2022, time.June, 1), domain.RECENCY_OVER_3_YEARS},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			c := Confirmation{LastScreenedOn: tt.date}
			assert.Equal(t, tt.expected, c.Bucket(asOf))
		})
	}
}

func TestApplyToAnswers(t *testing.T) {
	raw := domain.RawAnswers{
		ScreeningHistory: map[string]string{
			"colonoscopy": "within_1_year",
			"mammogram":   "not_sure",
		},
	}
	confirmations := []*Confirmation{
		{ScreeningKey: domain.KEY_COLONOSCOPY, LastScreenedOn: dayPtr(2010, time.January, 1)},
		{ScreeningKey: domain.KEY_MAMMOGRAM, LastScreenedOn: dayPtr(2024, time.March, 1)},
		{ScreeningKey: domain.KEY_PSA},
		nil,
	}

	out := ApplyToAnswers(raw, confirmations, asOf)

	assert.Equal(t, domain.RECENCY_WITHIN_1_YEAR, out.ScreeningAnswer(domain.KEY_COLONOSCOPY), "explicit answers win")
	assert.Equal(t, domain.RECENCY_1_3_YEARS, out.ScreeningAnswer(domain.KEY_MAMMOGRAM))
	assert.Equal(t, domain.RECENCY_NEVER, out.ScreeningAnswer(domain.KEY_PSA))
	assert.Equal(t, domain.RECENCY_NOT_SURE, out.ScreeningAnswer(domain.KEY_AAA))

	assert.Equal(t, "not_sure", raw.ScreeningHistory["mammogram"], "input answers are not mutated")
}
