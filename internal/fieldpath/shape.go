package fieldpath

import (
	"fmt"
	"strings"
)

// Root section keys, in schema order.
const (
	BusinessContext = "businessContext"
	Requirements    = "requirements"
	SuccessCriteria = "successCriteria"
	Constraints     = "constraints"
	RiskFactors     = "riskFactors"
	IntakeResponses = "intakeResponses"
)

// fieldOrder lists the known keys under each parent key in schema order.
// The empty parent holds the roots.
var fieldOrder = map[string][]string{
	"": {BusinessContext, Requirements, SuccessCriteria, Constraints, RiskFactors, IntakeResponses},
	BusinessContext: {
		"companyName", "industry", "companySize", "currentState",
		"desiredOutcome", "problemStatement", "stakeholders",
	},
	SuccessCriteria: {"metric", "target", "weight", "measurementMethod"},
	Constraints:     {"budget", "timeline", "sensitivity", "technical"},
	"budget":        {"min", "max", "currency", "flexibility"},
	"timeline":      {"urgency", "startDate", "deadline"},
	"sensitivity":   {"level", "dataTypes", "notes"},
	"technical":     {"existingSystems", "preferences"},
}

// listLeaves are constraint leaves holding a list of strings.
var listLeaves = map[string]bool{
	"dataTypes":       true,
	"existingSystems": true,
}

// BusinessContextFields returns the seven business-context keys in order.
func BusinessContextFields() []string {
	return append([]string(nil), fieldOrder[BusinessContext]...)
}

func rank(parent, key string) int {
	for i, k := range fieldOrder[parent] {
		if k == key {
			return i
		}
	}
	return -1
}

func known(parent, key string) bool {
	return rank(parent, key) >= 0
}

// Validate checks that p addresses something in the brief's shape:
//
//	businessContext.<field>
//	requirements | requirements.<i>
//	successCriteria | successCriteria.<i> | successCriteria.<i>.<field>
//	constraints.<group>.<field> (and .<i> under dataTypes/existingSystems)
//	riskFactors | riskFactors.<i>
//	intakeResponses.<questionID>
//
// Indices are not range-checked here; Resolve treats out-of-range as null.
func Validate(p Path) error {
	if p.IsZero() {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	root, ok := p.key(0)
	if !ok || !known("", root) {
		return unknown(p)
	}
	n := p.Len()
	switch root {
	case BusinessContext:
		if k, ok := p.key(1); n == 2 && ok && known(BusinessContext, k) {
			return nil
		}
	case Requirements, RiskFactors:
		if n == 1 {
			return nil
		}
		if _, ok := p.index(1); n == 2 && ok {
			return nil
		}
	case SuccessCriteria:
		if n == 1 {
			return nil
		}
		if _, ok := p.index(1); !ok {
			return unknown(p)
		}
		if n == 2 {
			return nil
		}
		if k, ok := p.key(2); n == 3 && ok && known(SuccessCriteria, k) {
			return nil
		}
	case Constraints:
		group, ok := p.key(1)
		if !ok || !known(Constraints, group) || n < 3 {
			return unknown(p)
		}
		leaf, ok := p.key(2)
		if !ok || !known(group, leaf) {
			return unknown(p)
		}
		if n == 3 {
			return nil
		}
		if _, ok := p.index(3); n == 4 && ok && listLeaves[leaf] {
			return nil
		}
	case IntakeResponses:
		if _, ok := p.key(1); n == 2 && ok {
			return nil
		}
	}
	return unknown(p)
}

// ValidateString parses and validates raw in one step.
func ValidateString(raw string) error {
	p, err := Parse(raw)
	if err != nil {
		return err
	}
	return Validate(p)
}

func unknown(p Path) error {
	return fmt.Errorf("%w: %s", ErrUnknownPath, p)
}

// Compare orders paths in schema order: root section, then known keys in
// declaration order, then list indices numerically. Unknown keys sort after
// known ones, alphabetically. A path sorts before its extensions.
func Compare(a, b Path) int {
	parent := ""
	for i := 0; i < len(a.segs) && i < len(b.segs); i++ {
		sa, sb := a.segs[i], b.segs[i]
		switch {
		case sa.IsIndex && sb.IsIndex:
			if sa.Index != sb.Index {
				return cmpInt(sa.Index, sb.Index)
			}
			continue
		case sa.IsIndex:
			return -1
		case sb.IsIndex:
			return 1
		}
		if sa.Key != sb.Key {
			ra, rb := rank(parent, sa.Key), rank(parent, sb.Key)
			switch {
			case ra >= 0 && rb >= 0:
				return cmpInt(ra, rb)
			case ra >= 0:
				return -1
			case rb >= 0:
				return 1
			}
			return strings.Compare(sa.Key, sb.Key)
		}
		parent = sa.Key
	}
	return cmpInt(len(a.segs), len(b.segs))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
