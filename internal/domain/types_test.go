package domain

import (
	"errors"
	"testing"
)

func TestStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    Status
		expected string
	}{
		{"Due now", DUE_NOW, "DUE_NOW"},
		{"Due soon", DUE_SOON, "DUE_SOON"},
		{"Up to date", UP_TO_DATE, "UP_TO_DATE"},
		{"Unknown", STATUS_UNKNOWN, "UNKNOWN"},
		{"Not applicable", NOT_APPLICABLE, "NOT_APPLICABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}
		})
	}
}

func TestStatusRank(t *testing.T) {
	ordered := []Status{DUE_NOW, DUE_SOON, STATUS_UNKNOWN, UP_TO_DATE, NOT_APPLICABLE}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Errorf("Expected %s to rank before %s", ordered[i-1], ordered[i])
		}
	}
}

func TestRecencyBucketYearRange(t *testing.T) {
	tests := []struct {
		bucket RecencyBucket
		lower  int
		upper  int
		ok     bool
	}{
		{RECENCY_WITHIN_1_YEAR, 0, 1, true},
		{RECENCY_1_3_YEARS, 1, 3, true},
		{RECENCY_OVER_3_YEARS, 3, -1, true},
		{RECENCY_NEVER, 0, 0, false},
		{RECENCY_NOT_SURE, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.bucket), func(t *testing.T) {
			lower, upper, ok := tt.bucket.YearRange()
			if lower != tt.lower || upper != tt.upper || ok != tt.ok {
				t.Errorf("Expected (%d, %d, %v), got (%d, %d, %v)", tt.lower, tt.upper, tt.ok, lower, upper, ok)
			}
		})
	}
}

func TestParseEnums(t *testing.T) {
	if s, err := ParseSex("female"); err != nil || s != FEMALE {
		t.Errorf("Expected FEMALE, got %v (%v)", s, err)
	}
	if _, err := ParseSex("other"); !errors.Is(err, ErrInvalidSex) {
		t.Errorf("Expected ErrInvalidSex, got %v", err)
	}
	if r, err := ParseRecencyBucket("1_3_years"); err != nil || r != RECENCY_1_3_YEARS {
		t.Errorf("Expected 1_3_years, got %v (%v)", r, err)
	}
	if _, err := ParseRecencyBucket("last_week"); !errors.Is(err, ErrInvalidRecency) {
		t.Errorf("Expected ErrInvalidRecency, got %v", err)
	}
	if s, err := ParseStatus("UNKNOWN"); err != nil || s != STATUS_UNKNOWN {
		t.Errorf("Expected UNKNOWN, got %v (%v)", s, err)
	}
	if _, err := ParseStatus("OVERDUE"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
}

func TestScreeningKeysAreValid(t *testing.T) {
	seen := make(map[ScreeningKey]bool)
	for _, k := range ScreeningKeys {
		if !k.IsValid() {
			t.Errorf("Expected %s to be valid", k)
		}
		if seen[k] {
			t.Errorf("Duplicate screening key %s", k)
		}
		seen[k] = true
	}
	if ScreeningKey("xray").IsValid() {
		t.Error("Expected unknown key to be invalid")
	}
}

func TestSmokingStatusSmoked(t *testing.T) {
	if NEVER_SMOKED.Smoked() {
		t.Error("never smoked should not count as smoking history")
	}
	if !FORMER_SMOKER.Smoked() || !CURRENT_SMOKER.Smoked() {
		t.Error("former and current smokers have smoking history")
	}
}

func TestFilterOrdered(t *testing.T) {
	in := []int{5, 2, 8, 1, 9}
	out := FilterOrdered(in, func(v int) bool { return v > 4 })

	expected := []int{5, 8, 9}
	if len(out) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, out)
	}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, out)
		}
	}
}
