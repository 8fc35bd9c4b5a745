package service

import (
	"fmt"
	"strings"

	"github.com/preventive-care-server/internal/catalog"
	"github.com/preventive-care-server/internal/domain"
)

// EligibilityDecision is the outcome of testing one rule against a profile.
type EligibilityDecision struct {
	Applicable bool
	Rationale  string
}

// EligibilityEvaluator decides whether a screening rule pertains to a profile.
// Checks run in a fixed order: anatomy, pregnancy override, then the rule's predicate.
type EligibilityEvaluator struct{}

// NewEligibilityEvaluator creates a new evaluator
func NewEligibilityEvaluator() *EligibilityEvaluator {
	return &EligibilityEvaluator{}
}

// Evaluate applies a rule to a profile and explains the result.
func (e *EligibilityEvaluator) Evaluate(profile *domain.Profile, rule catalog.ScreeningRule) EligibilityDecision {
	for _, organ := range rule.RequiresOrgans {
		if !profile.HasOrgan(organ) {
			return EligibilityDecision{
				Applicable: false,
				Rationale:  fmt.Sprintf("Not applicable: no %s (%s).", organ, profile.RemovalReason(organ)),
			}
		}
	}

	switch rule.Pregnancy {
	case catalog.PregnancySuppress:
		if profile.IsPregnant() {
			rationale := "Not applicable: deferred during pregnancy."
			if rule.ReplacedBy != "" {
				rationale = fmt.Sprintf("Not applicable: replaced during pregnancy by %s.", rule.ReplacedBy)
			}
			return EligibilityDecision{Applicable: false, Rationale: rationale}
		}
	case catalog.PregnancyOnly:
		if !profile.IsPregnant() {
			return EligibilityDecision{Applicable: false, Rationale: "Not applicable: applies only during pregnancy."}
		}
	}

	outcome := rule.Criteria.Evaluate(profile)
	if !outcome.Matched {
		return EligibilityDecision{
			Applicable: false,
			Rationale:  fmt.Sprintf("Not applicable: %s. Recommended for: %s.", joinReasons(outcome.Reasons), lowerFirst(rule.Eligibility)),
		}
	}
	return EligibilityDecision{
		Applicable: true,
		Rationale:  fmt.Sprintf("%s: %s.", rule.Eligibility, joinReasons(outcome.Reasons)),
	}
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "no criteria"
	}
	return strings.Join(reasons, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
