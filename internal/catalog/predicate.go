package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/preventive-care-server/internal/domain"
)

// Field names a profile attribute a predicate leaf can test.
type Field string

const (
	FieldAge               Field = "age"
	FieldSex               Field = "sex"
	FieldSmokingStatus     Field = "smoking_status"
	FieldPackYears         Field = "pack_years"
	FieldYearsSinceQuit    Field = "years_since_quit"
	FieldBMI               Field = "bmi"
	FieldBMICategory       Field = "bmi_category"
	FieldAlcoholFrequency  Field = "alcohol_frequency"
	FieldDrinksPerOccasion Field = "drinks_per_occasion"
	FieldSexuallyActive    Field = "sexually_active"
	FieldPartners          Field = "partners_last_12_months"
	FieldSTIHistory        Field = "sti_history"
	FieldHIVRisk           Field = "hiv_risk"
	FieldPregnant          Field = "pregnant"
	FieldWeeksPregnant     Field = "weeks_pregnant"
	FieldCondition         Field = "condition"
	FieldFamilyHistory     Field = "family_history"
	FieldOrganRemoved      Field = "organ_removed"
)

// Operator is a predicate leaf comparison.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
	OpIsTrue   Operator = "is_true"
	OpIsFalse  Operator = "is_false"
	OpContains Operator = "contains"
)

// Predicate is a data-only applicability expression. Exactly one of All, Any, Not or a
// Field leaf is set.
type Predicate struct {
	All   []Predicate `json:"all,omitempty" mapstructure:"all"`
	Any   []Predicate `json:"any,omitempty" mapstructure:"any"`
	Not   *Predicate  `json:"not,omitempty" mapstructure:"not"`
	Field Field       `json:"field,omitempty" mapstructure:"field"`
	Op    Operator    `json:"op,omitempty" mapstructure:"op"`
	Value interface{} `json:"value,omitempty" mapstructure:"value"`
}

// Outcome is the result of evaluating a predicate: whether it matched and the facts that decided it.
// Unknown marks a result that depends on an unanswered or incomplete answer. An unknown outcome
// never matches, and negating it stays unknown.
type Outcome struct {
	Matched bool
	Unknown bool
	Reasons []string
}

func unknownOutcome(reason string) Outcome {
	return Outcome{Unknown: true, Reasons: []string{reason}}
}

type fieldKind int

const (
	kindNumber fieldKind = iota
	kindEnum
	kindTriState
	kindBool
	kindSet
)

type fieldSpec struct {
	kind   fieldKind
	label  string
	values []string
	number func(p *domain.Profile) (float64, bool)
	text   func(p *domain.Profile) string
	tri    func(p *domain.Profile) domain.TriState
	flag   func(p *domain.Profile) bool
	has    func(p *domain.Profile, v string) bool
}

var operatorsByKind = map[fieldKind][]Operator{
	kindNumber:   {OpEq, OpGte, OpLte},
	kindEnum:     {OpEq, OpNeq, OpIn},
	kindTriState: {OpIsTrue, OpIsFalse},
	kindBool:     {OpIsTrue, OpIsFalse},
	kindSet:      {OpContains},
}

func intValue(v *int) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return float64(*v), true
}

func floatValue(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

var fieldSpecs = map[Field]fieldSpec{
	FieldAge: {kind: kindNumber, label: "age",
		number: func(p *domain.Profile) (float64, bool) { return float64(p.Age()), true }},
	FieldSex: {kind: kindEnum, label: "sex at birth",
		values: []string{string(domain.MALE), string(domain.FEMALE)},
		text:   func(p *domain.Profile) string { return string(p.Sex()) }},
	FieldSmokingStatus: {kind: kindEnum, label: "smoking status",
		values: []string{string(domain.NEVER_SMOKED), string(domain.FORMER_SMOKER), string(domain.CURRENT_SMOKER)},
		text:   func(p *domain.Profile) string { return string(p.SmokingStatus()) }},
	FieldPackYears: {kind: kindNumber, label: "pack-years",
		number: func(p *domain.Profile) (float64, bool) { return floatValue(p.PackYears()) }},
	FieldYearsSinceQuit: {kind: kindNumber, label: "years since quitting",
		number: func(p *domain.Profile) (float64, bool) { return intValue(p.YearsSinceQuit()) }},
	FieldBMI: {kind: kindNumber, label: "BMI",
		number: func(p *domain.Profile) (float64, bool) { return floatValue(p.BMI()) }},
	FieldBMICategory: {kind: kindEnum, label: "BMI category",
		values: []string{string(domain.BMI_UNDERWEIGHT), string(domain.BMI_NORMAL), string(domain.BMI_OVERWEIGHT),
			string(domain.BMI_OBESE), string(domain.BMI_UNKNOWN)},
		text: func(p *domain.Profile) string {
			if p.BMICategory() == domain.BMI_UNKNOWN {
				return ""
			}
			return string(p.BMICategory())
		}},
	FieldAlcoholFrequency: {kind: kindEnum, label: "alcohol use",
		values: []string{string(domain.ALCOHOL_NEVER), string(domain.ALCOHOL_MONTHLY_OR_LESS), string(domain.ALCOHOL_2_4_MONTHLY),
			string(domain.ALCOHOL_2_3_WEEKLY), string(domain.ALCOHOL_4_PLUS_WEEKLY)},
		text: func(p *domain.Profile) string { return string(p.AlcoholFrequency()) }},
	FieldDrinksPerOccasion: {kind: kindNumber, label: "drinks per occasion",
		number: func(p *domain.Profile) (float64, bool) { return intValue(p.DrinksPerOccasion()) }},
	FieldSexuallyActive: {kind: kindTriState, label: "sexual activity",
		tri: func(p *domain.Profile) domain.TriState { return p.SexuallyActive() }},
	FieldPartners: {kind: kindNumber, label: "number of partners in the last 12 months",
		number: func(p *domain.Profile) (float64, bool) { return intValue(p.PartnersLast12Months()) }},
	FieldSTIHistory: {kind: kindTriState, label: "STI history",
		tri: func(p *domain.Profile) domain.TriState { return p.STIHistory() }},
	FieldHIVRisk: {kind: kindTriState, label: "HIV risk",
		tri: func(p *domain.Profile) domain.TriState { return p.HIVRisk() }},
	FieldPregnant: {kind: kindBool, label: "pregnant",
		flag: func(p *domain.Profile) bool { return p.IsPregnant() }},
	FieldWeeksPregnant: {kind: kindNumber, label: "weeks of pregnancy",
		number: func(p *domain.Profile) (float64, bool) { return intValue(p.WeeksPregnant()) }},
	FieldCondition: {kind: kindSet, label: "condition",
		values: []string{string(domain.DIABETES), string(domain.HYPERTENSION), string(domain.HIGH_CHOLESTEROL),
			string(domain.HEART_DISEASE), string(domain.HIV), string(domain.CANCER),
			string(domain.CHRONIC_KIDNEY_DISEASE), string(domain.IMMUNOCOMPROMISED)},
		has: func(p *domain.Profile, v string) bool { return p.HasCondition(domain.Condition(v)) }},
	FieldFamilyHistory: {kind: kindSet, label: "family history",
		values: []string{string(domain.FH_COLORECTAL_CANCER), string(domain.FH_BREAST_CANCER), string(domain.FH_PROSTATE_CANCER),
			string(domain.FH_OVARIAN_CANCER), string(domain.FH_EARLY_HEART_DISEASE)},
		has: func(p *domain.Profile, v string) bool { return p.HasFamilyHistory(domain.FamilyHistory(v)) }},
	FieldOrganRemoved: {kind: kindSet, label: "surgical removal",
		values: []string{string(domain.CERVIX), string(domain.OVARIES), string(domain.PROSTATE)},
		has:    func(p *domain.Profile, v string) bool { return p.IsSurgicallyRemoved(domain.Organ(v)) }},
}

// Leaf builds a field comparison.
func Leaf(field Field, op Operator, value interface{}) Predicate {
	return Predicate{Field: field, Op: op, Value: value}
}

// All builds a conjunction.
func All(preds ...Predicate) Predicate { return Predicate{All: preds} }

// Any builds a disjunction.
func Any(preds ...Predicate) Predicate { return Predicate{Any: preds} }

// Not negates a predicate.
func Not(pred Predicate) Predicate { return Predicate{Not: &pred} }

// AgeBetween is shorthand for an inclusive age range.
func AgeBetween(minAge, maxAge int) Predicate {
	return All(Leaf(FieldAge, OpGte, minAge), Leaf(FieldAge, OpLte, maxAge))
}

// IsEmpty reports whether the predicate has no content.
func (p Predicate) IsEmpty() bool {
	return len(p.All) == 0 && len(p.Any) == 0 && p.Not == nil && p.Field == ""
}

// Evaluate applies the predicate to a profile.
func (p Predicate) Evaluate(profile *domain.Profile) Outcome {
	switch {
	case len(p.All) > 0:
		// A definite failure decides the conjunction; otherwise any unknown child leaves it unknown.
		reasons := make([]string, 0, len(p.All))
		var unknown *Outcome
		for _, child := range p.All {
			out := child.Evaluate(profile)
			switch {
			case out.Unknown:
				if unknown == nil {
					unknown = &out
				}
			case !out.Matched:
				return out
			default:
				reasons = append(reasons, out.Reasons...)
			}
		}
		if unknown != nil {
			return *unknown
		}
		return Outcome{Matched: true, Reasons: reasons}
	case len(p.Any) > 0:
		failed := make([]string, 0, len(p.Any))
		unknown := false
		for _, child := range p.Any {
			out := child.Evaluate(profile)
			if out.Matched {
				return out
			}
			unknown = unknown || out.Unknown
			failed = append(failed, strings.Join(out.Reasons, " and "))
		}
		return Outcome{Unknown: unknown, Reasons: []string{strings.Join(failed, ", nor ")}}
	case p.Not != nil:
		out := p.Not.Evaluate(profile)
		if out.Unknown {
			return out
		}
		return Outcome{Matched: !out.Matched, Reasons: out.Reasons}
	default:
		return p.evaluateLeaf(profile)
	}
}

func (p Predicate) evaluateLeaf(profile *domain.Profile) Outcome {
	spec, ok := fieldSpecs[p.Field]
	if !ok {
		return Outcome{Matched: false, Reasons: []string{fmt.Sprintf("unknown field %q", p.Field)}}
	}

	switch spec.kind {
	case kindNumber:
		actual, known := spec.number(profile)
		if !known {
			return unknownOutcome(spec.label + " was not answered or is incomplete")
		}
		want, _ := toFloat(p.Value)
		return compareNumber(spec.label, actual, p.Op, want)

	case kindEnum:
		actual := spec.text(profile)
		if actual == "" {
			return unknownOutcome(spec.label + " was not answered")
		}
		switch p.Op {
		case OpEq:
			want := fmt.Sprint(p.Value)
			if actual == want {
				return Outcome{Matched: true, Reasons: []string{fmt.Sprintf("%s is %s", spec.label, humanize(actual))}}
			}
			return Outcome{Reasons: []string{fmt.Sprintf("%s is %s, requires %s", spec.label, humanize(actual), humanize(want))}}
		case OpNeq:
			want := fmt.Sprint(p.Value)
			if actual != want {
				return Outcome{Matched: true, Reasons: []string{fmt.Sprintf("%s is %s", spec.label, humanize(actual))}}
			}
			return Outcome{Reasons: []string{fmt.Sprintf("%s is %s", spec.label, humanize(actual))}}
		default:
			options, _ := toStrings(p.Value)
			for _, o := range options {
				if o == actual {
					return Outcome{Matched: true, Reasons: []string{fmt.Sprintf("%s is %s", spec.label, humanize(actual))}}
				}
			}
			return Outcome{Reasons: []string{fmt.Sprintf("%s is %s, requires one of %s",
				spec.label, humanize(actual), humanizeList(options))}}
		}

	case kindTriState:
		actual := spec.tri(profile)
		if actual == domain.UNKNOWN {
			return unknownOutcome(spec.label + " was not answered")
		}
		yes := actual == domain.YES
		reason := spec.label + " reported"
		if !yes {
			reason = "no " + spec.label + " reported"
		}
		return Outcome{Matched: yes == (p.Op == OpIsTrue), Reasons: []string{reason}}

	case kindBool:
		actual := spec.flag(profile)
		reason := spec.label
		if !actual {
			reason = "not " + spec.label
		}
		return Outcome{Matched: actual == (p.Op == OpIsTrue), Reasons: []string{reason}}

	default:
		want := fmt.Sprint(p.Value)
		if spec.has(profile, want) {
			return Outcome{Matched: true, Reasons: []string{fmt.Sprintf("%s of %s reported", spec.label, humanize(want))}}
		}
		return Outcome{Reasons: []string{fmt.Sprintf("no %s of %s reported", spec.label, humanize(want))}}
	}
}

func compareNumber(label string, actual float64, op Operator, want float64) Outcome {
	a, w := formatNumber(actual), formatNumber(want)
	switch op {
	case OpGte:
		if actual >= want {
			return Outcome{Matched: true, Reasons: []string{fmt.Sprintf("%s %s is at least %s", label, a, w)}}
		}
		return Outcome{Reasons: []string{fmt.Sprintf("%s %s is below %s", label, a, w)}}
	case OpLte:
		if actual <= want {
			return Outcome{Matched: true, Reasons: []string{fmt.Sprintf("%s %s is at most %s", label, a, w)}}
		}
		return Outcome{Reasons: []string{fmt.Sprintf("%s %s is above %s", label, a, w)}}
	default:
		if actual == want {
			return Outcome{Matched: true, Reasons: []string{fmt.Sprintf("%s is %s", label, a)}}
		}
		return Outcome{Reasons: []string{fmt.Sprintf("%s is %s, requires %s", label, a, w)}}
	}
}

// validate checks the predicate's structure against the field registry.
func (p Predicate) validate(ruleID, path string) error {
	set := 0
	if len(p.All) > 0 {
		set++
	}
	if len(p.Any) > 0 {
		set++
	}
	if p.Not != nil {
		set++
	}
	if p.Field != "" {
		set++
	}
	if set != 1 {
		return domain.NewCatalogError(ruleID, path, "predicate must set exactly one of all, any, not or field")
	}

	for i, child := range p.All {
		if err := child.validate(ruleID, fmt.Sprintf("%s.all[%d]", path, i)); err != nil {
			return err
		}
	}
	for i, child := range p.Any {
		if err := child.validate(ruleID, fmt.Sprintf("%s.any[%d]", path, i)); err != nil {
			return err
		}
	}
	if p.Not != nil {
		return p.Not.validate(ruleID, path+".not")
	}
	if p.Field == "" {
		return nil
	}

	spec, ok := fieldSpecs[p.Field]
	if !ok {
		return domain.NewCatalogError(ruleID, path, fmt.Sprintf("unknown field %q", p.Field))
	}
	allowed := false
	for _, op := range operatorsByKind[spec.kind] {
		if op == p.Op {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.NewCatalogError(ruleID, path, fmt.Sprintf("operator %q is not valid for field %q", p.Op, p.Field))
	}

	switch spec.kind {
	case kindNumber:
		if _, ok := toFloat(p.Value); !ok {
			return domain.NewCatalogError(ruleID, path, fmt.Sprintf("field %q requires a numeric value", p.Field))
		}
	case kindEnum:
		if p.Op == OpIn {
			options, ok := toStrings(p.Value)
			if !ok || len(options) == 0 {
				return domain.NewCatalogError(ruleID, path, fmt.Sprintf("field %q with 'in' requires a list", p.Field))
			}
			for _, o := range options {
				if !contains(spec.values, o) {
					return domain.NewCatalogError(ruleID, path, fmt.Sprintf("invalid value %q for field %q", o, p.Field))
				}
			}
			return nil
		}
		s, ok := p.Value.(string)
		if !ok || !contains(spec.values, s) {
			return domain.NewCatalogError(ruleID, path, fmt.Sprintf("invalid value %v for field %q", p.Value, p.Field))
		}
	case kindSet:
		s, ok := p.Value.(string)
		if !ok || !contains(spec.values, s) {
			return domain.NewCatalogError(ruleID, path, fmt.Sprintf("invalid value %v for field %q", p.Value, p.Field))
		}
	case kindTriState, kindBool:
		if p.Value != nil {
			return domain.NewCatalogError(ruleID, path, fmt.Sprintf("field %q takes no value", p.Field))
		}
	}
	return nil
}

// KnownFields lists the fields predicates may reference.
func KnownFields() []Field {
	out := make([]Field, 0, len(fieldSpecs))
	for f := range fieldSpecs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toStrings(v interface{}) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 1, 64)
}

func humanize(v string) string {
	return strings.ReplaceAll(v, "_", " ")
}

func humanizeList(values []string) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = humanize(v)
	}
	return strings.Join(out, ", ")
}
