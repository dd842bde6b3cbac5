package brief

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Value is a sealed interface over the shapes a field can hold.
// Only Null, Text, Number, Bool, List and Group implement it.
// Group is produced when resolving a composite path (e.g. a whole success
// criterion) and is never stored.
type Value interface {
	briefValue()
}

// Null is an absent value.
type Null struct{}

func (Null) briefValue() {}

// Text is a free-text or single-choice value.
type Text string

func (Text) briefValue() {}

// Number keeps the literal text of a numeric answer so that no precision is
// lost and no float ever enters the document.
type Number string

func (Number) briefValue() {}

// Bool is a yes/no answer. Bools are never considered empty.
type Bool bool

func (Bool) briefValue() {}

// List is an ordered list of text items (multiselect answers, tag lists).
type List []string

func (List) briefValue() {}

// Group is the resolved view of a composite node.
type Group []Value

func (Group) briefValue() {}

// NumberOf converts an integer to a Number.
func NumberOf(n int64) Number {
	return Number(strconv.FormatInt(n, 10))
}

// ParseNumber validates a finite numeric literal.
func ParseNumber(raw string) (Number, error) {
	raw = strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("invalid number %q", raw)
	}
	return Number(raw), nil
}

// Int returns the value of n as an integer, if it is one.
func (n Number) Int() (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	return v, err == nil
}

// IsEmpty is the single definition of "empty" used across the repository.
func IsEmpty(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return true
	case Text:
		return strings.TrimSpace(string(val)) == ""
	case Number:
		return strings.TrimSpace(string(val)) == ""
	case Bool:
		return false
	case List:
		for _, item := range val {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	case Group:
		for _, child := range val {
			if !IsEmpty(child) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Display renders v for human consumption (audit rows, CLI output).
func Display(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return ""
	case Text:
		return string(val)
	case Number:
		return string(val)
	case Bool:
		if val {
			return "Yes"
		}
		return "No"
	case List:
		items := make([]string, 0, len(val))
		for _, item := range val {
			if strings.TrimSpace(item) != "" {
				items = append(items, item)
			}
		}
		return strings.Join(items, ", ")
	case Group:
		parts := make([]string, 0, len(val))
		for _, child := range val {
			if s := Display(child); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

// Equal reports whether two values hold the same shape and content.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Null:
		switch b.(type) {
		case nil, Null:
			return true
		}
		return false
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case Group:
		bv, ok := b.(Group)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Normalize applies Unicode NFC normalization to every string inside v.
// Client-entered text is normalized before it is stored so that visually
// identical answers compare equal.
func Normalize(v Value) Value {
	switch val := v.(type) {
	case Text:
		return Text(norm.NFC.String(string(val)))
	case List:
		out := make(List, len(val))
		for i, item := range val {
			out[i] = norm.NFC.String(item)
		}
		return out
	case Group:
		out := make(Group, len(val))
		for i, child := range val {
			out[i] = Normalize(child)
		}
		return out
	default:
		return v
	}
}

// FromAny converts a decoded JSON/YAML scalar or list into a Value.
// Numbers must arrive as json.Number or Go integers; floats are rejected.
func FromAny(raw any) (Value, error) {
	switch val := raw.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return Text(val), nil
	case json.Number:
		return ParseNumber(val.String())
	case int:
		return NumberOf(int64(val)), nil
	case int64:
		return NumberOf(val), nil
	case bool:
		return Bool(val), nil
	case []string:
		return List(append([]string(nil), val...)), nil
	case []any:
		items := make(List, 0, len(val))
		for i, elem := range val {
			switch e := elem.(type) {
			case string:
				items = append(items, e)
			case json.Number:
				items = append(items, e.String())
			case int:
				items = append(items, strconv.Itoa(e))
			default:
				return nil, fmt.Errorf("list[%d]: unsupported element type %T", i, elem)
			}
		}
		return items, nil
	case float64, float32:
		return nil, fmt.Errorf("floats are not allowed in brief values: %v", val)
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

// toAny converts a stored Value into its JSON representation.
func toAny(v Value) (any, error) {
	switch val := v.(type) {
	case nil, Null:
		return nil, nil
	case Text:
		return string(val), nil
	case Number:
		if _, err := ParseNumber(string(val)); err != nil {
			return nil, err
		}
		return json.Number(strings.TrimSpace(string(val))), nil
	case Bool:
		return bool(val), nil
	case List:
		out := make([]string, len(val))
		copy(out, val)
		return out, nil
	case Group:
		return nil, fmt.Errorf("composite values cannot be stored")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// Answers holds intake responses keyed by project-type question ID.
type Answers map[string]Value

// MarshalJSON writes each answer in its natural JSON shape.
func (a Answers) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	m := make(map[string]any, len(a))
	for k, v := range a {
		raw, err := toAny(v)
		if err != nil {
			return nil, fmt.Errorf("intake answer %q: %w", k, err)
		}
		m[k] = raw
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes answers, keeping numbers as literals via json.Number.
func (a *Answers) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode intake answers: %w", err)
	}
	out := make(Answers, len(raw))
	for k, elem := range raw {
		v, err := FromAny(elem)
		if err != nil {
			return fmt.Errorf("intake answer %q: %w", k, err)
		}
		out[k] = v
	}
	*a = out
	return nil
}

func (a Answers) clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		if list, ok := v.(List); ok {
			v = append(List(nil), list...)
		}
		out[k] = v
	}
	return out
}
