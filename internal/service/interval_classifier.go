package service

import (
	"github.com/preventive-care-server/internal/catalog"
	"github.com/preventive-care-server/internal/domain"
)

// IntervalClassifier turns a recency bucket and interval policy into a checklist status.
//
// Buckets cover elapsed years [0,1), [1,3) and [3,∞). With interval I in years:
//   - never is DUE_NOW and not_sure is UNKNOWN under every policy
//   - ONE_TIME is UP_TO_DATE once any screening is on record
//   - PERIODIC and AGE_WINDOW are DUE_NOW when the bucket lies entirely past I, DUE_SOON when
//     the bucket straddles I or ends exactly at I (other than the most recent bucket), and
//     UP_TO_DATE otherwise
//   - RISK_TRIGGERED has no approaching window: DUE_NOW unless the bucket lies inside I
type IntervalClassifier struct{}

// NewIntervalClassifier creates a new classifier
func NewIntervalClassifier() *IntervalClassifier {
	return &IntervalClassifier{}
}

// Classify returns the status for one applicable screening.
func (c *IntervalClassifier) Classify(recency domain.RecencyBucket, policy catalog.IntervalPolicy, age int) domain.Status {
	switch recency {
	case domain.RECENCY_NEVER:
		if policy.Kind == domain.AGE_WINDOW {
			if _, ok := policy.IntervalFor(age); !ok {
				return domain.NOT_APPLICABLE
			}
		}
		return domain.DUE_NOW
	case domain.RECENCY_NOT_SURE:
		if policy.Kind == domain.AGE_WINDOW {
			if _, ok := policy.IntervalFor(age); !ok {
				return domain.NOT_APPLICABLE
			}
		}
		return domain.STATUS_UNKNOWN
	}

	lower, upper, ok := recency.YearRange()
	if !ok {
		return domain.STATUS_UNKNOWN
	}

	switch policy.Kind {
	case domain.ONE_TIME:
		return domain.UP_TO_DATE

	case domain.PERIODIC:
		return classifyPeriodic(lower, upper, policy.Years)

	case domain.AGE_WINDOW:
		interval, ok := policy.IntervalFor(age)
		if !ok {
			return domain.NOT_APPLICABLE
		}
		return classifyPeriodic(lower, upper, interval)

	case domain.RISK_TRIGGERED:
		if upper >= 0 && upper <= policy.Years {
			return domain.UP_TO_DATE
		}
		return domain.DUE_NOW

	default:
		return domain.STATUS_UNKNOWN
	}
}

// classifyPeriodic compares a bucket [lower, upper) with an interval; upper < 0 is unbounded.
func classifyPeriodic(lower, upper, interval int) domain.Status {
	switch {
	case lower >= interval:
		return domain.DUE_NOW
	case upper < 0 || upper > interval:
		return domain.DUE_SOON
	case upper == interval && lower > 0:
		return domain.DUE_SOON
	default:
		return domain.UP_TO_DATE
	}
}
