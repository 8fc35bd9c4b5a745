// Package catalog holds the declarative table of preventive screening rules.
//
// Rules are data: an applicability predicate, an interval policy, anatomy requirements and a
// pregnancy override. A catalog is validated once at load time and is read-only afterwards.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/preventive-care-server/internal/domain"
)

// PregnancyOverride states how pregnancy affects a rule.
type PregnancyOverride string

const (
	PregnancyUnaffected PregnancyOverride = ""
	PregnancySuppress   PregnancyOverride = "suppress"
	PregnancyOnly       PregnancyOverride = "only"
)

// Category groups rules for display and breaks ranking ties by declaration order.
type Category struct {
	ID    string `json:"id" mapstructure:"id"`
	Title string `json:"title" mapstructure:"title"`
}

// AgeWindow is one age-dependent sub-interval of an AGE_WINDOW policy. Ages are inclusive.
type AgeWindow struct {
	MinAge int `json:"minAge" mapstructure:"min_age"`
	MaxAge int `json:"maxAge" mapstructure:"max_age"`
	Years  int `json:"years" mapstructure:"years"`
}

// IntervalPolicy describes how often a screening repeats.
type IntervalPolicy struct {
	Kind    domain.PolicyKind `json:"kind" mapstructure:"kind"`
	Years   int               `json:"years,omitempty" mapstructure:"years"`
	Windows []AgeWindow       `json:"windows,omitempty" mapstructure:"windows"`
}

// IntervalFor returns the repeat interval in years at the given age. ok is false when an
// AGE_WINDOW policy has no window covering the age; ONE_TIME returns 0.
func (p IntervalPolicy) IntervalFor(age int) (years int, ok bool) {
	switch p.Kind {
	case domain.ONE_TIME:
		return 0, true
	case domain.PERIODIC, domain.RISK_TRIGGERED:
		return p.Years, true
	case domain.AGE_WINDOW:
		for _, w := range p.Windows {
			if age >= w.MinAge && age <= w.MaxAge {
				return w.Years, true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// ScreeningRule is one catalog entry.
type ScreeningRule struct {
	ID             string              `json:"id" mapstructure:"id"`
	Title          string              `json:"title" mapstructure:"title"`
	Category       string              `json:"category" mapstructure:"category"`
	RecencyKey     domain.ScreeningKey `json:"recencyKey" mapstructure:"recency_key"`
	RequiresOrgans []domain.Organ      `json:"requiresOrgans,omitempty" mapstructure:"requires_organs"`
	Pregnancy      PregnancyOverride   `json:"pregnancy,omitempty" mapstructure:"pregnancy"`
	ReplacedBy     string              `json:"replacedBy,omitempty" mapstructure:"replaced_by"`
	Eligibility    string              `json:"eligibility" mapstructure:"eligibility"`
	Criteria       Predicate           `json:"criteria" mapstructure:"criteria"`
	Policy         IntervalPolicy      `json:"policy" mapstructure:"policy"`
	Source         string              `json:"source" mapstructure:"source"`
}

// Catalog is a validated, versioned set of screening rules.
type Catalog struct {
	Version    string          `json:"version" mapstructure:"version"`
	Categories []Category      `json:"categories" mapstructure:"categories"`
	Rules      []ScreeningRule `json:"rules" mapstructure:"rules"`

	categoryOrder map[string]int
	ruleIndex     map[string]int
}

// New validates the given definition and returns a ready catalog.
func New(version string, categories []Category, rules []ScreeningRule) (*Catalog, error) {
	c := &Catalog{Version: version, Categories: categories, Rules: rules}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every rule against the schema and builds the lookup indexes. All problems
// are reported, each as a *domain.CatalogError.
func (c *Catalog) Validate() error {
	var errs []error
	add := func(err error) { errs = append(errs, err) }

	if c.Version == "" {
		add(domain.NewCatalogError("", "version", "catalog version is required"))
	}
	if len(c.Rules) == 0 {
		add(domain.NewCatalogError("", "rules", "catalog has no rules"))
	}

	categoryOrder := make(map[string]int, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.ID == "" {
			add(domain.NewCatalogError("", fmt.Sprintf("categories[%d]", i), "category id is required"))
			continue
		}
		if _, dup := categoryOrder[cat.ID]; dup {
			add(domain.NewCatalogError("", "categories", fmt.Sprintf("duplicate category %q", cat.ID)))
			continue
		}
		categoryOrder[cat.ID] = i
	}

	ruleIndex := make(map[string]int, len(c.Rules))
	for i := range c.Rules {
		rule := &c.Rules[i]
		if rule.ID == "" {
			add(domain.NewCatalogError("", fmt.Sprintf("rules[%d]", i), "rule id is required"))
			continue
		}
		if _, dup := ruleIndex[rule.ID]; dup {
			add(domain.NewCatalogError(rule.ID, "id", "duplicate rule id"))
			continue
		}
		ruleIndex[rule.ID] = i
		for _, err := range validateRule(rule, categoryOrder) {
			add(err)
		}
	}

	// replacements can only be checked once every id is known
	for i := range c.Rules {
		rule := &c.Rules[i]
		if rule.ReplacedBy == "" {
			continue
		}
		if rule.Pregnancy != PregnancySuppress {
			add(domain.NewCatalogError(rule.ID, "replaced_by", "only pregnancy-suppressed rules may name a replacement"))
			continue
		}
		target, ok := ruleIndex[rule.ReplacedBy]
		if !ok {
			add(domain.NewCatalogError(rule.ID, "replaced_by", fmt.Sprintf("replacement %q does not exist", rule.ReplacedBy)))
			continue
		}
		if c.Rules[target].Pregnancy != PregnancyOnly {
			add(domain.NewCatalogError(rule.ID, "replaced_by", fmt.Sprintf("replacement %q is not a pregnancy-only rule", rule.ReplacedBy)))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	c.categoryOrder = categoryOrder
	c.ruleIndex = ruleIndex
	return nil
}

func validateRule(rule *ScreeningRule, categories map[string]int) []error {
	var errs []error
	if rule.Title == "" {
		errs = append(errs, domain.NewCatalogError(rule.ID, "title", "title is required"))
	}
	if _, ok := categories[rule.Category]; !ok {
		errs = append(errs, domain.NewCatalogError(rule.ID, "category", fmt.Sprintf("unknown category %q", rule.Category)))
	}
	if !rule.RecencyKey.IsValid() {
		errs = append(errs, domain.NewCatalogError(rule.ID, "recency_key", fmt.Sprintf("unknown recency key %q", rule.RecencyKey)))
	}
	for _, organ := range rule.RequiresOrgans {
		if !organ.IsValid() {
			errs = append(errs, domain.NewCatalogError(rule.ID, "requires_organs", fmt.Sprintf("unknown organ %q", organ)))
		}
	}
	switch rule.Pregnancy {
	case PregnancyUnaffected, PregnancySuppress, PregnancyOnly:
	default:
		errs = append(errs, domain.NewCatalogError(rule.ID, "pregnancy", fmt.Sprintf("unknown pregnancy override %q", rule.Pregnancy)))
	}
	if rule.Source == "" {
		errs = append(errs, domain.NewCatalogError(rule.ID, "source", "guideline source is required"))
	}
	if rule.Criteria.IsEmpty() {
		errs = append(errs, domain.NewCatalogError(rule.ID, "criteria", "applicability predicate is required"))
	} else if err := rule.Criteria.validate(rule.ID, "criteria"); err != nil {
		errs = append(errs, err)
	}
	if err := validatePolicy(rule.ID, rule.Policy); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func validatePolicy(ruleID string, p IntervalPolicy) error {
	switch p.Kind {
	case "":
		return domain.NewCatalogError(ruleID, "policy", "interval policy is required")
	case domain.ONE_TIME:
		if p.Years != 0 || len(p.Windows) > 0 {
			return domain.NewCatalogError(ruleID, "policy", "ONE_TIME takes no interval")
		}
	case domain.PERIODIC, domain.RISK_TRIGGERED:
		if p.Years <= 0 {
			return domain.NewCatalogError(ruleID, "policy.years", fmt.Sprintf("%s requires a positive interval", p.Kind))
		}
		if len(p.Windows) > 0 {
			return domain.NewCatalogError(ruleID, "policy.windows", fmt.Sprintf("%s takes no age windows", p.Kind))
		}
	case domain.AGE_WINDOW:
		if len(p.Windows) == 0 {
			return domain.NewCatalogError(ruleID, "policy.windows", "AGE_WINDOW requires at least one window")
		}
		windows := append([]AgeWindow(nil), p.Windows...)
		sort.Slice(windows, func(i, j int) bool { return windows[i].MinAge < windows[j].MinAge })
		for i, w := range windows {
			if w.MinAge < 0 || w.MaxAge < w.MinAge {
				return domain.NewCatalogError(ruleID, "policy.windows", fmt.Sprintf("window %d-%d is empty", w.MinAge, w.MaxAge))
			}
			if w.Years <= 0 {
				return domain.NewCatalogError(ruleID, "policy.windows", fmt.Sprintf("window %d-%d requires a positive interval", w.MinAge, w.MaxAge))
			}
			if i > 0 && w.MinAge <= windows[i-1].MaxAge {
				return domain.NewCatalogError(ruleID, "policy.windows", fmt.Sprintf("window %d-%d overlaps %d-%d",
					w.MinAge, w.MaxAge, windows[i-1].MinAge, windows[i-1].MaxAge))
			}
		}
	default:
		return domain.NewCatalogError(ruleID, "policy.kind", fmt.Sprintf("%v: %q", domain.ErrInvalidPolicy, p.Kind))
	}
	return nil
}

// Rule returns the rule with the given id.
func (c *Catalog) Rule(id string) (ScreeningRule, bool) {
	i, ok := c.ruleIndex[id]
	if !ok {
		return ScreeningRule{}, false
	}
	return c.Rules[i], true
}

// RuleOrder returns the declaration index of a rule, or -1.
func (c *Catalog) RuleOrder(id string) int {
	if i, ok := c.ruleIndex[id]; ok {
		return i
	}
	return -1
}

// CategoryOrder returns the declaration index of a category; unknown categories sort last.
func (c *Catalog) CategoryOrder(category string) int {
	if i, ok := c.categoryOrder[category]; ok {
		return i
	}
	return len(c.Categories)
}

// IsValidated reports whether Validate has succeeded on this catalog.
func (c *Catalog) IsValidated() bool {
	return c != nil && c.ruleIndex != nil
}

// PregnancySensitive lists the ids of rules whose applicability changes with pregnancy.
func (c *Catalog) PregnancySensitive() []string {
	ids := make([]string, 0)
	for _, r := range c.Rules {
		if r.Pregnancy != PregnancyUnaffected {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
