// Package labels turns field paths into human-readable labels.
//
// Resolution order: the static override table, then the intake question
// text from the catalog, then a humanized rendering of the path itself.
package labels

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/briefs/internal/catalog"
	"github.com/roach88/briefs/internal/fieldpath"
)

// overrides is keyed by path pattern, with list indices replaced by "#".
// Each "%d" in a label receives the matching 1-based index.
var overrides = map[string]string{
	"businessContext.companyName":      "Company name",
	"businessContext.industry":         "Industry",
	"businessContext.companySize":      "Company size",
	"businessContext.currentState":     "Current state",
	"businessContext.desiredOutcome":   "Desired outcome",
	"businessContext.problemStatement": "Problem statement",
	"businessContext.stakeholders":     "Key stakeholders",

	"requirements":   "Requirements",
	"requirements.#": "Requirement %d",

	"successCriteria":                     "Success criteria",
	"successCriteria.#":                   "Success criterion %d",
	"successCriteria.#.metric":            "Success criterion %d: metric",
	"successCriteria.#.target":            "Success criterion %d: target",
	"successCriteria.#.weight":            "Success criterion %d: weight",
	"successCriteria.#.measurementMethod": "Success criterion %d: measurement method",

	"constraints.budget.min":                "Minimum budget",
	"constraints.budget.max":                "Maximum budget",
	"constraints.budget.currency":           "Budget currency",
	"constraints.budget.flexibility":        "Budget flexibility",
	"constraints.timeline.urgency":          "Timeline urgency",
	"constraints.timeline.startDate":        "Desired start date",
	"constraints.timeline.deadline":         "Deadline",
	"constraints.sensitivity.level":         "Sensitivity level",
	"constraints.sensitivity.dataTypes":     "Sensitive data types",
	"constraints.sensitivity.dataTypes.#":   "Sensitive data type %d",
	"constraints.sensitivity.notes":         "Sensitivity notes",
	"constraints.technical.existingSystems": "Existing systems",
	"constraints.technical.preferences":     "Technical preferences",

	"riskFactors":   "Risk factors",
	"riskFactors.#": "Risk factor %d",
}

// Labeler resolves labels against a question catalog.
type Labeler struct {
	catalog *catalog.Catalog
}

// New returns a Labeler. A nil catalog uses catalog.Default().
func New(c *catalog.Catalog) *Labeler {
	if c == nil {
		c = catalog.Default()
	}
	return &Labeler{catalog: c}
}

// Label returns the display label of p for a brief of the given project type.
func (l *Labeler) Label(projectType string, p fieldpath.Path) string {
	pattern, indices := patternOf(p)
	if tmpl, ok := overrides[pattern]; ok {
		return fill(tmpl, indices)
	}
	segs := p.Segments()
	if p.Root() == fieldpath.IntakeResponses && len(segs) == 2 {
		if text, ok := l.catalog.QuestionText(projectType, segs[1].Key); ok {
			return text
		}
	}
	return humanize(segs)
}

// LabelString parses raw and labels it; unparsable paths are returned as is.
func (l *Labeler) LabelString(projectType, raw string) string {
	p, err := fieldpath.Parse(raw)
	if err != nil {
		return raw
	}
	return l.Label(projectType, p)
}

func patternOf(p fieldpath.Path) (string, []int) {
	segs := p.Segments()
	parts := make([]string, len(segs))
	var indices []int
	for i, s := range segs {
		if s.IsIndex {
			parts[i] = "#"
			indices = append(indices, s.Index+1)
			continue
		}
		parts[i] = s.Key
	}
	return strings.Join(parts, "."), indices
}

func fill(tmpl string, indices []int) string {
	n := strings.Count(tmpl, "%d")
	if n == 0 {
		return tmpl
	}
	args := make([]any, n)
	for i := range args {
		if i < len(indices) {
			args[i] = indices[i]
		} else {
			args[i] = 0
		}
	}
	return fmt.Sprintf(tmpl, args...)
}

// humanize renders segments as Title Case words: the root section is
// dropped when more specific segments follow, camelCase and snake_case keys
// are split, and indices become 1-based item numbers.
func humanize(segs []fieldpath.Segment) string {
	if len(segs) > 1 {
		segs = segs[1:]
	}
	var words []string
	for _, s := range segs {
		if s.IsIndex {
			words = append(words, fmt.Sprintf("item %d", s.Index+1))
			continue
		}
		words = append(words, splitWords(s.Key)...)
	}
	// cases.Caser is stateful and never shared.
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func splitWords(key string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			flush()
		case unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}
