// Package domain contains the core entities of the preventive care recommendation engine:
// the normalized patient profile, screening statuses, recency buckets and interval policies.
//
// Guideline thresholds used across the engine follow the U.S. Preventive Services Task Force
// (USPSTF) A and B recommendations.
package domain

import (
	"errors"
	"fmt"
)

// Sex represents sex assigned at birth. It drives anatomy inference and sex-gated screenings.
type Sex string

const (
	MALE   Sex = "male"
	FEMALE Sex = "female"
)

// SmokingStatus represents tobacco smoking history.
type SmokingStatus string

const (
	NEVER_SMOKED   SmokingStatus = "never"
	FORMER_SMOKER  SmokingStatus = "former"
	CURRENT_SMOKER SmokingStatus = "current"
)

// AlcoholFrequency follows the AUDIT-C frequency answer options.
type AlcoholFrequency string

const (
	ALCOHOL_NEVER           AlcoholFrequency = "never"
	ALCOHOL_MONTHLY_OR_LESS AlcoholFrequency = "monthly_or_less"
	ALCOHOL_2_4_MONTHLY     AlcoholFrequency = "2_4_monthly"
	ALCOHOL_2_3_WEEKLY      AlcoholFrequency = "2_3_weekly"
	ALCOHOL_4_PLUS_WEEKLY   AlcoholFrequency = "4_plus_weekly"
)

// TriState is an answer that may be withheld. UNKNOWN is never treated as "no".
type TriState string

const (
	YES     TriState = "yes"
	NO      TriState = "no"
	UNKNOWN TriState = "unknown"
)

// BMICategory buckets body mass index at 18.5 / 25 / 30.
type BMICategory string

const (
	BMI_UNDERWEIGHT BMICategory = "underweight"
	BMI_NORMAL      BMICategory = "normal"
	BMI_OVERWEIGHT  BMICategory = "overweight"
	BMI_OBESE       BMICategory = "obese"
	BMI_UNKNOWN     BMICategory = "unknown"
)

// Organ identifies anatomy that surgical history can remove.
type Organ string

const (
	CERVIX   Organ = "cervix"
	OVARIES  Organ = "ovaries"
	PROSTATE Organ = "prostate"
)

// Condition is a self-reported chronic condition.
type Condition string

const (
	DIABETES               Condition = "diabetes"
	HYPERTENSION           Condition = "hypertension"
	HIGH_CHOLESTEROL       Condition = "high_cholesterol"
	HEART_DISEASE          Condition = "heart_disease"
	HIV                    Condition = "hiv"
	CANCER                 Condition = "cancer"
	CHRONIC_KIDNEY_DISEASE Condition = "chronic_kidney_disease"
	IMMUNOCOMPROMISED      Condition = "immunocompromised"
)

// FamilyHistory is a first-degree family history item.
type FamilyHistory string

const (
	FH_COLORECTAL_CANCER   FamilyHistory = "colorectal_cancer"
	FH_BREAST_CANCER       FamilyHistory = "breast_cancer"
	FH_PROSTATE_CANCER     FamilyHistory = "prostate_cancer"
	FH_OVARIAN_CANCER      FamilyHistory = "ovarian_cancer"
	FH_EARLY_HEART_DISEASE FamilyHistory = "early_heart_disease"
)

// RecencyBucket is the ordinal answer to "when was your last ...".
type RecencyBucket string

const (
	RECENCY_NEVER         RecencyBucket = "never"
	RECENCY_WITHIN_1_YEAR RecencyBucket = "within_1_year"
	RECENCY_1_3_YEARS     RecencyBucket = "1_3_years"
	RECENCY_OVER_3_YEARS  RecencyBucket = "over_3_years"
	RECENCY_NOT_SURE      RecencyBucket = "not_sure"
)

// ScreeningKey names a prior-screening history question. Several rules may share one key.
type ScreeningKey string

const (
	KEY_COLONOSCOPY     ScreeningKey = "colonoscopy"
	KEY_CERVICAL        ScreeningKey = "cervical"
	KEY_MAMMOGRAM       ScreeningKey = "mammogram"
	KEY_HIV_TEST        ScreeningKey = "hiv_test"
	KEY_BLOOD_PRESSURE  ScreeningKey = "blood_pressure"
	KEY_CHOLESTEROL     ScreeningKey = "cholesterol"
	KEY_DIABETES        ScreeningKey = "diabetes"
	KEY_DEPRESSION      ScreeningKey = "depression"
	KEY_LUNG_CT         ScreeningKey = "lung_ct"
	KEY_BONE_DENSITY    ScreeningKey = "bone_density"
	KEY_PSA             ScreeningKey = "psa"
	KEY_HEPATITIS_C     ScreeningKey = "hepatitis_c"
	KEY_STI             ScreeningKey = "sti"
	KEY_AAA             ScreeningKey = "aaa"
	KEY_ALCOHOL         ScreeningKey = "alcohol"
	KEY_TOBACCO         ScreeningKey = "tobacco"
	KEY_BRCA_ASSESSMENT ScreeningKey = "brca_assessment"
)

// ScreeningKeys lists every recency question in onboarding order.
var ScreeningKeys = []ScreeningKey{
	KEY_COLONOSCOPY, KEY_CERVICAL, KEY_MAMMOGRAM, KEY_HIV_TEST, KEY_BLOOD_PRESSURE,
	KEY_CHOLESTEROL, KEY_DIABETES, KEY_DEPRESSION, KEY_LUNG_CT, KEY_BONE_DENSITY, KEY_PSA,
	KEY_HEPATITIS_C, KEY_STI, KEY_AAA, KEY_ALCOHOL, KEY_TOBACCO, KEY_BRCA_ASSESSMENT,
}

// Status is the checklist state of one screening.
type Status string

const (
	DUE_NOW        Status = "DUE_NOW"
	DUE_SOON       Status = "DUE_SOON"
	UP_TO_DATE     Status = "UP_TO_DATE"
	STATUS_UNKNOWN Status = "UNKNOWN"
	NOT_APPLICABLE Status = "NOT_APPLICABLE"
)

// PolicyKind is the shape of a screening's repeat interval.
type PolicyKind string

const (
	ONE_TIME       PolicyKind = "ONE_TIME"
	PERIODIC       PolicyKind = "PERIODIC"
	AGE_WINDOW     PolicyKind = "AGE_WINDOW"
	RISK_TRIGGERED PolicyKind = "RISK_TRIGGERED"
)

// Validation errors for enum parsing
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidSex       = errors.New("invalid sex at birth")
	ErrInvalidSmoking   = errors.New("invalid smoking status")
	ErrInvalidRecency   = errors.New("invalid recency bucket")
	ErrInvalidStatus    = errors.New("invalid screening status")
	ErrInvalidPolicy    = errors.New("invalid interval policy")
	ErrInvalidTriState  = errors.New("invalid yes/no/unknown answer")
	ErrInvalidCondition = errors.New("invalid condition")
)

// IsValid reports whether s is a supported sex at birth.
func (s Sex) IsValid() bool {
	return s == MALE || s == FEMALE
}

func (s Sex) String() string {
	return string(s)
}

func (s SmokingStatus) IsValid() bool {
	switch s {
	case NEVER_SMOKED, FORMER_SMOKER, CURRENT_SMOKER:
		return true
	default:
		return false
	}
}

func (s SmokingStatus) String() string {
	return string(s)
}

// Smoked reports whether the status implies any smoking history.
func (s SmokingStatus) Smoked() bool {
	return s == FORMER_SMOKER || s == CURRENT_SMOKER
}

func (a AlcoholFrequency) IsValid() bool {
	switch a {
	case ALCOHOL_NEVER, ALCOHOL_MONTHLY_OR_LESS, ALCOHOL_2_4_MONTHLY, ALCOHOL_2_3_WEEKLY, ALCOHOL_4_PLUS_WEEKLY:
		return true
	default:
		return false
	}
}

func (t TriState) IsValid() bool {
	switch t {
	case YES, NO, UNKNOWN:
		return true
	default:
		return false
	}
}

func (b BMICategory) IsValid() bool {
	switch b {
	case BMI_UNDERWEIGHT, BMI_NORMAL, BMI_OVERWEIGHT, BMI_OBESE, BMI_UNKNOWN:
		return true
	default:
		return false
	}
}

func (o Organ) IsValid() bool {
	switch o {
	case CERVIX, OVARIES, PROSTATE:
		return true
	default:
		return false
	}
}

func (c Condition) IsValid() bool {
	switch c {
	case DIABETES, HYPERTENSION, HIGH_CHOLESTEROL, HEART_DISEASE, HIV, CANCER,
		CHRONIC_KIDNEY_DISEASE, IMMUNOCOMPROMISED:
		return true
	default:
		return false
	}
}

func (f FamilyHistory) IsValid() bool {
	switch f {
	case FH_COLORECTAL_CANCER, FH_BREAST_CANCER, FH_PROSTATE_CANCER, FH_OVARIAN_CANCER, FH_EARLY_HEART_DISEASE:
		return true
	default:
		return false
	}
}

func (r RecencyBucket) IsValid() bool {
	switch r {
	case RECENCY_NEVER, RECENCY_WITHIN_1_YEAR, RECENCY_1_3_YEARS, RECENCY_OVER_3_YEARS, RECENCY_NOT_SURE:
		return true
	default:
		return false
	}
}

func (r RecencyBucket) String() string {
	return string(r)
}

// YearRange returns the elapsed-years range [lower, upper) covered by a completed-screening bucket.
// upper is negative for an unbounded range. ok is false for never and not_sure.
func (r RecencyBucket) YearRange() (lower, upper int, ok bool) {
	switch r {
	case RECENCY_WITHIN_1_YEAR:
		return 0, 1, true
	case RECENCY_1_3_YEARS:
		return 1, 3, true
	case RECENCY_OVER_3_YEARS:
		return 3, -1, true
	default:
		return 0, 0, false
	}
}

func (k ScreeningKey) IsValid() bool {
	for _, known := range ScreeningKeys {
		if k == known {
			return true
		}
	}
	return false
}

func (s Status) IsValid() bool {
	switch s {
	case DUE_NOW, DUE_SOON, UP_TO_DATE, STATUS_UNKNOWN, NOT_APPLICABLE:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// Rank orders statuses for the checklist. NOT_APPLICABLE sorts last and is never emitted.
func (s Status) Rank() int {
	switch s {
	case DUE_NOW:
		return 0
	case DUE_SOON:
		return 1
	case STATUS_UNKNOWN:
		return 2
	case UP_TO_DATE:
		return 3
	default:
		return 4
	}
}

func (p PolicyKind) IsValid() bool {
	switch p {
	case ONE_TIME, PERIODIC, AGE_WINDOW, RISK_TRIGGERED:
		return true
	default:
		return false
	}
}

// ParseSex parses a sex-at-birth answer.
func ParseSex(value string) (Sex, error) {
	s := Sex(value)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSex, value)
	}
	return s, nil
}

// ParseRecencyBucket parses a recency answer.
func ParseRecencyBucket(value string) (RecencyBucket, error) {
	r := RecencyBucket(value)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecency, value)
	}
	return r, nil
}

// ParseStatus parses a checklist status.
func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
	return s, nil
}
