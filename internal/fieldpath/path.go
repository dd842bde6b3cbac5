// Package fieldpath addresses values inside a brief.
//
// A path is a dotted list of segments; numeric segments index into lists
// (requirements.2, successCriteria.0.metric). Paths are the join key between
// a brief's content and its ledger, so every key written to the ledger or the
// note store goes through Parse and Validate first.
package fieldpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidPath is returned for syntactically malformed paths.
	ErrInvalidPath = errors.New("invalid field path")

	// ErrUnknownPath is returned for well-formed paths that address nothing
	// in the brief's shape.
	ErrUnknownPath = errors.New("unknown field path")

	// ErrKind is returned when a value of the wrong shape is assigned.
	ErrKind = errors.New("value kind mismatch")

	// ErrIndexOutOfRange is returned when assigning past the end of a list.
	ErrIndexOutOfRange = errors.New("list index out of range")

	// ErrNotAssignable is returned for composite paths that can be read but
	// not written as a whole.
	ErrNotAssignable = errors.New("path is not assignable")
)

// Segment is one element of a path: either a key or a list index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path is a parsed field path. The zero value is invalid.
type Path struct {
	segs []Segment
}

// Parse parses a dotted path. It checks syntax only; use Validate for shape.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return Path{}, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	parts := strings.Split(raw, ".")
	segs := make([]Segment, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return Path{}, fmt.Errorf("%w: %q has an empty segment at %d", ErrInvalidPath, raw, i)
		}
		if isDigits(part) {
			if len(part) > 1 && part[0] == '0' {
				return Path{}, fmt.Errorf("%w: %q has a non-canonical index %q", ErrInvalidPath, raw, part)
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return Path{}, fmt.Errorf("%w: %q: %v", ErrInvalidPath, raw, err)
			}
			segs = append(segs, Segment{Index: n, IsIndex: true})
			continue
		}
		for _, r := range part {
			if !isKeyRune(r) {
				return Path{}, fmt.Errorf("%w: %q contains %q", ErrInvalidPath, raw, r)
			}
		}
		segs = append(segs, Segment{Key: part})
	}
	return Path{segs: segs}, nil
}

// MustParse is Parse for literals known to be valid. It panics on error.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// New builds a path from segments given as strings or ints.
func New(parts ...any) Path {
	segs := make([]Segment, 0, len(parts))
	for _, part := range parts {
		switch v := part.(type) {
		case int:
			segs = append(segs, Segment{Index: v, IsIndex: true})
		case string:
			segs = append(segs, Segment{Key: v})
		default:
			panic(fmt.Sprintf("fieldpath.New: unsupported segment %T", part))
		}
	}
	return Path{segs: segs}
}

// String renders the canonical dotted form.
func (p Path) String() string {
	parts := make([]string, len(p.segs))
	for i, s := range p.segs {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Segments returns a copy of the path's segments.
func (p Path) Segments() []Segment {
	out := make([]Segment, len(p.segs))
	copy(out, p.segs)
	return out
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segs) }

// IsZero reports whether p is the zero path.
func (p Path) IsZero() bool { return len(p.segs) == 0 }

// Root returns the first segment's key.
func (p Path) Root() string {
	if len(p.segs) == 0 {
		return ""
	}
	return p.segs[0].Key
}

// Equal reports whether two paths have identical segments.
func (p Path) Equal(other Path) bool {
	return p.String() == other.String()
}

func (p Path) key(i int) (string, bool) {
	if i >= len(p.segs) || p.segs[i].IsIndex {
		return "", false
	}
	return p.segs[i].Key, true
}

func (p Path) index(i int) (int, bool) {
	if i >= len(p.segs) || !p.segs[i].IsIndex {
		return 0, false
	}
	return p.segs[i].Index, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isKeyRune(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
