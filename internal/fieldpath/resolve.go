package fieldpath

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/briefs/internal/brief"
)

// Resolve reads the value at p. Out-of-range indices and missing intake
// answers resolve to Null; only shape errors are returned.
func Resolve(b *brief.Brief, p Path) (brief.Value, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	switch p.Root() {
	case BusinessContext:
		k, _ := p.key(1)
		return brief.Text(*businessField(&b.BusinessContext, k)), nil
	case Requirements:
		return resolveList(b.Requirements, p), nil
	case RiskFactors:
		return resolveList(b.RiskFactors, p), nil
	case SuccessCriteria:
		if p.Len() == 1 {
			g := make(brief.Group, len(b.SuccessCriteria))
			for i := range b.SuccessCriteria {
				g[i] = criterionGroup(b.SuccessCriteria[i])
			}
			return g, nil
		}
		i, _ := p.index(1)
		if i >= len(b.SuccessCriteria) {
			return brief.Null{}, nil
		}
		sc := b.SuccessCriteria[i]
		if p.Len() == 2 {
			return criterionGroup(sc), nil
		}
		k, _ := p.key(2)
		return criterionField(sc, k), nil
	case Constraints:
		return resolveConstraint(&b.Constraints, p), nil
	case IntakeResponses:
		q, _ := p.key(1)
		v, ok := b.IntakeResponses[q]
		if !ok || v == nil {
			return brief.Null{}, nil
		}
		return v, nil
	}
	return nil, unknown(p)
}

func resolveList(items []string, p Path) brief.Value {
	if p.Len() == 1 {
		return brief.List(append([]string(nil), items...))
	}
	i, _ := p.index(p.Len() - 1)
	if i >= len(items) {
		return brief.Null{}
	}
	return brief.Text(items[i])
}

func criterionGroup(sc brief.SuccessCriterion) brief.Group {
	return brief.Group{
		brief.Text(sc.Metric),
		brief.Text(sc.Target),
		optionalNumber(sc.Weight),
		brief.Text(sc.MeasurementMethod),
	}
}

func criterionField(sc brief.SuccessCriterion, k string) brief.Value {
	switch k {
	case "metric":
		return brief.Text(sc.Metric)
	case "target":
		return brief.Text(sc.Target)
	case "weight":
		return optionalNumber(sc.Weight)
	case "measurementMethod":
		return brief.Text(sc.MeasurementMethod)
	}
	return brief.Null{}
}

func resolveConstraint(c *brief.Constraints, p Path) brief.Value {
	group, _ := p.key(1)
	leaf, _ := p.key(2)
	switch group {
	case "budget":
		switch leaf {
		case "min":
			return optionalNumber(c.Budget.Min)
		case "max":
			return optionalNumber(c.Budget.Max)
		case "currency":
			return brief.Text(c.Budget.Currency)
		case "flexibility":
			return brief.Text(c.Budget.Flexibility)
		}
	case "timeline":
		switch leaf {
		case "urgency":
			return brief.Text(c.Timeline.Urgency)
		case "startDate":
			return brief.Text(c.Timeline.StartDate)
		case "deadline":
			return brief.Text(c.Timeline.Deadline)
		}
	case "sensitivity":
		switch leaf {
		case "level":
			return brief.Text(c.Sensitivity.Level)
		case "notes":
			return brief.Text(c.Sensitivity.Notes)
		case "dataTypes":
			return resolveList(c.Sensitivity.DataTypes, Path{segs: p.segs[2:]})
		}
	case "technical":
		switch leaf {
		case "preferences":
			return brief.Text(c.Technical.Preferences)
		case "existingSystems":
			return resolveList(c.Technical.ExistingSystems, Path{segs: p.segs[2:]})
		}
	}
	return brief.Null{}
}

func optionalNumber(n *int64) brief.Value {
	if n == nil {
		return brief.Null{}
	}
	return brief.NumberOf(*n)
}

func businessField(bc *brief.BusinessContext, k string) *string {
	switch k {
	case "companyName":
		return &bc.CompanyName
	case "industry":
		return &bc.Industry
	case "companySize":
		return &bc.CompanySize
	case "currentState":
		return &bc.CurrentState
	case "desiredOutcome":
		return &bc.DesiredOutcome
	case "problemStatement":
		return &bc.ProblemStatement
	case "stakeholders":
		return &bc.Stakeholders
	}
	panic("fieldpath: unknown business context field " + k)
}

// Assign writes v at p. Text leaves take Text or Null; list roots take List
// or Null; list items may be written at an index up to len (append);
// integer leaves take Number, numeric Text or Null.
func Assign(b *brief.Brief, p Path, v brief.Value) error {
	if err := Validate(p); err != nil {
		return err
	}
	if v == nil {
		v = brief.Null{}
	}
	switch p.Root() {
	case BusinessContext:
		k, _ := p.key(1)
		return assignText(businessField(&b.BusinessContext, k), p, v)
	case Requirements:
		return assignList(&b.Requirements, p, 1, v)
	case RiskFactors:
		return assignList(&b.RiskFactors, p, 1, v)
	case SuccessCriteria:
		if p.Len() < 3 {
			return fmt.Errorf("%w: %s", ErrNotAssignable, p)
		}
		i, _ := p.index(1)
		if i > len(b.SuccessCriteria) {
			return fmt.Errorf("%w: %s (len %d)", ErrIndexOutOfRange, p, len(b.SuccessCriteria))
		}
		if i == len(b.SuccessCriteria) {
			b.SuccessCriteria = append(b.SuccessCriteria, brief.SuccessCriterion{})
		}
		sc := &b.SuccessCriteria[i]
		k, _ := p.key(2)
		switch k {
		case "metric":
			return assignText(&sc.Metric, p, v)
		case "target":
			return assignText(&sc.Target, p, v)
		case "weight":
			return assignInt(&sc.Weight, p, v)
		case "measurementMethod":
			return assignText(&sc.MeasurementMethod, p, v)
		}
	case Constraints:
		return assignConstraint(&b.Constraints, p, v)
	case IntakeResponses:
		if _, ok := v.(brief.Group); ok {
			return fmt.Errorf("%w: %s cannot hold a composite value", ErrKind, p)
		}
		q, _ := p.key(1)
		if b.IntakeResponses == nil {
			b.IntakeResponses = brief.Answers{}
		}
		b.IntakeResponses[q] = v
		return nil
	}
	return unknown(p)
}

func assignConstraint(c *brief.Constraints, p Path, v brief.Value) error {
	group, _ := p.key(1)
	leaf, _ := p.key(2)
	switch group + "." + leaf {
	case "budget.min":
		return assignInt(&c.Budget.Min, p, v)
	case "budget.max":
		return assignInt(&c.Budget.Max, p, v)
	case "budget.currency":
		return assignText(&c.Budget.Currency, p, v)
	case "budget.flexibility":
		return assignText(&c.Budget.Flexibility, p, v)
	case "timeline.urgency":
		return assignText(&c.Timeline.Urgency, p, v)
	case "timeline.startDate":
		return assignText(&c.Timeline.StartDate, p, v)
	case "timeline.deadline":
		return assignText(&c.Timeline.Deadline, p, v)
	case "sensitivity.level":
		return assignText(&c.Sensitivity.Level, p, v)
	case "sensitivity.notes":
		return assignText(&c.Sensitivity.Notes, p, v)
	case "sensitivity.dataTypes":
		return assignList(&c.Sensitivity.DataTypes, p, 3, v)
	case "technical.preferences":
		return assignText(&c.Technical.Preferences, p, v)
	case "technical.existingSystems":
		return assignList(&c.Technical.ExistingSystems, p, 3, v)
	}
	return unknown(p)
}

func assignText(dst *string, p Path, v brief.Value) error {
	switch val := v.(type) {
	case brief.Null:
		*dst = ""
	case brief.Text:
		*dst = string(val)
	default:
		return fmt.Errorf("%w: %s expects text, got %T", ErrKind, p, v)
	}
	return nil
}

func assignInt(dst **int64, p Path, v brief.Value) error {
	var raw string
	switch val := v.(type) {
	case brief.Null:
		*dst = nil
		return nil
	case brief.Number:
		raw = string(val)
	case brief.Text:
		raw = strings.TrimSpace(string(val))
		if raw == "" {
			*dst = nil
			return nil
		}
	default:
		return fmt.Errorf("%w: %s expects an integer, got %T", ErrKind, p, v)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s expects an integer, got %q", ErrKind, p, raw)
	}
	*dst = &n
	return nil
}

// assignList writes either the whole list (path ends at the list) or one
// item (path has an index at position at).
func assignList(dst *[]string, p Path, at int, v brief.Value) error {
	if p.Len() == at {
		switch val := v.(type) {
		case brief.Null:
			*dst = nil
		case brief.List:
			*dst = append([]string(nil), val...)
		default:
			return fmt.Errorf("%w: %s expects a list, got %T", ErrKind, p, v)
		}
		return nil
	}
	i, _ := p.index(at)
	text, ok := v.(brief.Text)
	if !ok {
		return fmt.Errorf("%w: %s expects text, got %T", ErrKind, p, v)
	}
	switch {
	case i < len(*dst):
		(*dst)[i] = string(text)
	case i == len(*dst):
		*dst = append(*dst, string(text))
	default:
		return fmt.Errorf("%w: %s (len %d)", ErrIndexOutOfRange, p, len(*dst))
	}
	return nil
}

// Walk visits every tracked leaf path of b in schema order: the seven
// business-context fields, each requirement, each success-criterion field,
// each constraint leaf, each risk factor, and each intake answer (sorted by
// question ID). fn returning false stops the walk.
func Walk(b *brief.Brief, fn func(Path, brief.Value) bool) {
	visit := func(p Path) bool {
		v, err := Resolve(b, p)
		if err != nil {
			return true
		}
		return fn(p, v)
	}
	for _, k := range fieldOrder[BusinessContext] {
		if !visit(New(BusinessContext, k)) {
			return
		}
	}
	for i := range b.Requirements {
		if !visit(New(Requirements, i)) {
			return
		}
	}
	for i := range b.SuccessCriteria {
		for _, k := range fieldOrder[SuccessCriteria] {
			if !visit(New(SuccessCriteria, i, k)) {
				return
			}
		}
	}
	for _, group := range fieldOrder[Constraints] {
		for _, leaf := range fieldOrder[group] {
			if !visit(New(Constraints, group, leaf)) {
				return
			}
		}
	}
	for i := range b.RiskFactors {
		if !visit(New(RiskFactors, i)) {
			return
		}
	}
	keys := make([]string, 0, len(b.IntakeResponses))
	for k := range b.IntakeResponses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !visit(New(IntakeResponses, k)) {
			return
		}
	}
}

// NonEmptyLeaves returns the paths Walk visits whose value is non-empty.
func NonEmptyLeaves(b *brief.Brief) []Path {
	var out []Path
	Walk(b, func(p Path, v brief.Value) bool {
		if !brief.IsEmpty(v) {
			out = append(out, p)
		}
		return true
	})
	return out
}

// Checker returns a brief.PathChecker accepting any syntactically valid path
// that fits the brief shape.
func Checker() brief.PathChecker {
	return ValidateString
}
