package service

import (
	"sort"

	"github.com/preventive-care-server/internal/catalog"
	"github.com/preventive-care-server/internal/domain"
)

// ChecklistAggregator filters, ranks and counts classified recommendations.
type ChecklistAggregator struct {
	catalog *catalog.Catalog
}

// NewChecklistAggregator creates an aggregator that breaks ties by the catalog's declared order.
func NewChecklistAggregator(c *catalog.Catalog) *ChecklistAggregator {
	return &ChecklistAggregator{catalog: c}
}

// Aggregate drops NOT_APPLICABLE items, orders the rest by status urgency, category order and
// rule declaration order, and assigns 1-based priorities.
func (a *ChecklistAggregator) Aggregate(recommendations []domain.Recommendation) *domain.Checklist {
	items := domain.FilterOrdered(recommendations, func(r domain.Recommendation) bool {
		return r.Status != domain.NOT_APPLICABLE
	})

	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Status.Rank(), items[j].Status.Rank()
		if ri != rj {
			return ri < rj
		}
		ci, cj := a.catalog.CategoryOrder(items[i].Category), a.catalog.CategoryOrder(items[j].Category)
		if ci != cj {
			return ci < cj
		}
		return a.catalog.RuleOrder(items[i].ScreeningID) < a.catalog.RuleOrder(items[j].ScreeningID)
	})

	checklist := &domain.Checklist{
		Recommendations: items,
		CatalogVersion:  a.catalog.Version,
	}
	for i := range items {
		items[i].Priority = i + 1
		switch items[i].Status {
		case domain.DUE_NOW:
			checklist.DueNowCount++
		case domain.DUE_SOON:
			checklist.DueSoonCount++
		case domain.UP_TO_DATE:
			checklist.UpToDateCount++
		case domain.STATUS_UNKNOWN:
			checklist.UnknownCount++
		}
	}
	return checklist
}
