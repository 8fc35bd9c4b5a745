package service

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/preventive-care-server/internal/catalog"
	"github.com/preventive-care-server/internal/domain"
)

// Engine evaluates a profile against a guideline catalog. It holds no per-call state, so one
// Engine may serve concurrent requests.
type Engine struct {
	logger     *logrus.Logger
	evaluator  *EligibilityEvaluator
	classifier *IntervalClassifier
}

// NewEngine creates a new recommendation engine
func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{
		logger:     logger,
		evaluator:  NewEligibilityEvaluator(),
		classifier: NewIntervalClassifier(),
	}
}

// Explain evaluates every rule and returns all decisions in catalog order, including the
// inapplicable ones.
func (e *Engine) Explain(profile *domain.Profile, c *catalog.Catalog) ([]domain.Decision, error) {
	if profile == nil {
		return nil, domain.NewValidationError("profile", "profile is required", nil)
	}
	if !c.IsValidated() {
		return nil, domain.NewCatalogError("", "", "catalog has not been validated")
	}

	decisions := make([]domain.Decision, 0, len(c.Rules))
	for _, rule := range c.Rules {
		recency := profile.Recency(rule.RecencyKey)
		eligibility := e.evaluator.Evaluate(profile, rule)

		decision := domain.Decision{
			ScreeningID: rule.ID,
			Title:       rule.Title,
			Category:    rule.Category,
			Applicable:  eligibility.Applicable,
			Status:      domain.NOT_APPLICABLE,
			Recency:     recency,
			Rationale:   eligibility.Rationale,
		}
		if eligibility.Applicable {
			decision.Status = e.classifier.Classify(recency, rule.Policy, profile.Age())
			if decision.Status == domain.NOT_APPLICABLE {
				decision.Applicable = false
				decision.Rationale = fmt.Sprintf("Not applicable: no screening interval is defined for age %d.", profile.Age())
			} else {
				decision.Rationale = decision.Rationale + " " + statusNote(decision.Status, recency, rule.Policy.Kind)
			}
		}
		decisions = append(decisions, decision)
	}
	return decisions, nil
}

// ComputeChecklist returns the ordered recommendations for a profile.
func (e *Engine) ComputeChecklist(profile *domain.Profile, c *catalog.Catalog) ([]domain.Recommendation, error) {
	checklist, err := e.Evaluate(profile, c)
	if err != nil {
		return nil, err
	}
	return checklist.Recommendations, nil
}

// Evaluate returns the full checklist with counts.
func (e *Engine) Evaluate(profile *domain.Profile, c *catalog.Catalog) (*domain.Checklist, error) {
	start := time.Now()

	decisions, err := e.Explain(profile, c)
	if err != nil {
		return nil, err
	}

	recommendations := make([]domain.Recommendation, 0, len(decisions))
	for i, d := range decisions {
		recommendations = append(recommendations, domain.Recommendation{
			ScreeningID: d.ScreeningID,
			Title:       d.Title,
			Category:    d.Category,
			Status:      d.Status,
			Rationale:   d.Rationale,
			Source:      c.Rules[i].Source,
			RecencyKey:  c.Rules[i].RecencyKey,
		})
	}

	checklist := NewChecklistAggregator(c).Aggregate(recommendations)

	e.logger.WithFields(logrus.Fields{
		"catalog_version": c.Version,
		"rules_evaluated": len(decisions),
		"applicable":      len(checklist.Recommendations),
		"due_now":         checklist.DueNowCount,
		"due_soon":        checklist.DueSoonCount,
		"up_to_date":      checklist.UpToDateCount,
		"unknown":         checklist.UnknownCount,
		"duration_ms":     time.Since(start).Milliseconds(),
	}).Debug("Computed preventive care checklist")

	return checklist, nil
}

func statusNote(status domain.Status, recency domain.RecencyBucket, kind domain.PolicyKind) string {
	switch status {
	case domain.DUE_NOW:
		if recency == domain.RECENCY_NEVER {
			return "No previous screening on record."
		}
		return fmt.Sprintf("Last screening (%s) is past the recommended interval.", describeRecency(recency))
	case domain.DUE_SOON:
		return fmt.Sprintf("Last screening (%s) is approaching the recommended interval.", describeRecency(recency))
	case domain.UP_TO_DATE:
		if kind == domain.ONE_TIME {
			return fmt.Sprintf("A previous screening is on record (%s).", describeRecency(recency))
		}
		return fmt.Sprintf("Last screening (%s) is within the recommended interval.", describeRecency(recency))
	case domain.STATUS_UNKNOWN:
		return "Date of last screening is not known; please confirm."
	default:
		return ""
	}
}

func describeRecency(r domain.RecencyBucket) string {
	switch r {
	case domain.RECENCY_WITHIN_1_YEAR:
		return "within the last year"
	case domain.RECENCY_1_3_YEARS:
		return "1 to 3 years ago"
	case domain.RECENCY_OVER_3_YEARS:
		return "more than 3 years ago"
	default:
		return string(r)
	}
}

// ComputeChecklist evaluates a profile against a catalog with a silent engine.
func ComputeChecklist(profile *domain.Profile, c *catalog.Catalog) ([]domain.Recommendation, error) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewEngine(logger).ComputeChecklist(profile, c)
}
