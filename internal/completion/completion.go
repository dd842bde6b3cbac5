// Package completion derives section completeness and submittability.
package completion

import (
	"fmt"
	"strings"

	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/catalog"
	"github.com/roach88/briefs/internal/fieldpath"
	"github.com/roach88/briefs/internal/labels"
)

// Section is a step of the guided review.
type Section string

const (
	SectionSituation Section = "Situation"
	SectionDetails   Section = "Details"
	SectionSuccess   Section = "Success"
	SectionReview    Section = "Review"
)

// Sections returns the sections in wizard order.
func Sections() []Section {
	return []Section{SectionSituation, SectionDetails, SectionSuccess, SectionReview}
}

// SectionResult is the completeness of one section.
type SectionResult struct {
	Section  Section  `json:"section"`
	Complete bool     `json:"complete"`
	Issues   []string `json:"issues"`
}

// Report is the evaluation of a whole brief.
type Report struct {
	Sections    []SectionResult `json:"sections"`
	Submittable bool            `json:"submittable"`
}

// Section returns the result for s.
func (r Report) Section(s Section) SectionResult {
	for _, sr := range r.Sections {
		if sr.Section == s {
			return sr
		}
	}
	return SectionResult{Section: s}
}

// Issues flattens every incomplete section into display strings. A section
// that is incomplete without a specific issue contributes
// "<section> needs attention".
func (r Report) Issues() []string {
	var out []string
	for _, sr := range r.Sections {
		if sr.Complete {
			continue
		}
		if len(sr.Issues) == 0 {
			out = append(out, fmt.Sprintf("%s needs attention", sr.Section))
			continue
		}
		out = append(out, sr.Issues...)
	}
	return out
}

// Evaluator evaluates briefs against a question catalog.
type Evaluator struct {
	catalog *catalog.Catalog
	labels  *labels.Labeler
}

// New returns an Evaluator. A nil catalog uses catalog.Default().
func New(c *catalog.Catalog) *Evaluator {
	if c == nil {
		c = catalog.Default()
	}
	return &Evaluator{catalog: c, labels: labels.New(c)}
}

// Evaluate computes the report for b. It reads content only.
func (e *Evaluator) Evaluate(b *brief.Brief) Report {
	r := Report{Sections: []SectionResult{
		e.situation(b),
		e.details(b),
		e.success(b),
		e.review(b),
	}}
	r.Submittable = true
	for _, sr := range r.Sections {
		if !sr.Complete {
			r.Submittable = false
		}
	}
	return r
}

func result(s Section, issues []string) SectionResult {
	return SectionResult{Section: s, Complete: len(issues) == 0, Issues: issues}
}

func (e *Evaluator) situation(b *brief.Brief) SectionResult {
	var issues []string
	for _, key := range fieldpath.BusinessContextFields() {
		p := fieldpath.New(fieldpath.BusinessContext, key)
		v, err := fieldpath.Resolve(b, p)
		if err != nil || brief.IsEmpty(v) {
			issues = append(issues, fmt.Sprintf("%s is required", e.labels.Label(b.ProjectType, p)))
		}
	}
	return result(SectionSituation, issues)
}

func (e *Evaluator) details(b *brief.Brief) SectionResult {
	pt, ok := e.catalog.Lookup(b.ProjectType)
	if !ok {
		return SectionResult{Section: SectionDetails}
	}
	if pt.Generic {
		if brief.IsEmpty(b.IntakeResponses[pt.FreeTextQuestion]) {
			return result(SectionDetails, []string{"Describe the project before submitting"})
		}
		return result(SectionDetails, nil)
	}
	var issues []string
	for _, q := range pt.Required() {
		if !Answered(q, b.IntakeResponses) {
			issues = append(issues, fmt.Sprintf("Answer required: %s", q.Text))
		}
	}
	return result(SectionDetails, issues)
}

func (e *Evaluator) success(b *brief.Brief) SectionResult {
	for _, sc := range b.SuccessCriteria {
		if strings.TrimSpace(sc.Metric) != "" && strings.TrimSpace(sc.Target) != "" {
			return result(SectionSuccess, nil)
		}
	}
	return result(SectionSuccess, []string{"Add at least one success criterion with a metric and a target"})
}

func (e *Evaluator) review(b *brief.Brief) SectionResult {
	var issues []string
	if strings.TrimSpace(b.Constraints.Timeline.Urgency) == "" {
		issues = append(issues, "Timeline urgency is required")
	}
	if strings.TrimSpace(b.Constraints.Sensitivity.Level) == "" {
		issues = append(issues, "Sensitivity level is required")
	}
	return result(SectionReview, issues)
}

// Answered applies the type-aware answered rule for q:
//   - multiselect: at least one selection that is neither blank nor the placeholder
//   - select: a non-blank choice; "Other" also needs <id>_other free text
//   - number: must parse as a number
//   - text, textarea: non-blank
func Answered(q catalog.Question, answers brief.Answers) bool {
	v := answers[q.ID]
	if brief.IsEmpty(v) {
		return false
	}
	switch q.Type {
	case catalog.TypeMultiselect:
		var items []string
		switch val := v.(type) {
		case brief.List:
			items = val
		case brief.Text:
			items = []string{string(val)}
		}
		for _, item := range items {
			item = strings.TrimSpace(item)
			if item != "" && item != q.Placeholder {
				return true
			}
		}
		return false
	case catalog.TypeSelect:
		text, ok := v.(brief.Text)
		if !ok {
			return false
		}
		choice := strings.TrimSpace(string(text))
		if choice == "" || (q.Placeholder != "" && choice == q.Placeholder) {
			return false
		}
		if choice == catalog.OtherOption {
			return !brief.IsEmpty(answers[q.ID+catalog.OtherSuffix])
		}
		return true
	case catalog.TypeNumber:
		switch val := v.(type) {
		case brief.Number:
			_, err := brief.ParseNumber(string(val))
			return err == nil
		case brief.Text:
			_, err := brief.ParseNumber(string(val))
			return err == nil
		}
		return false
	default:
		return true
	}
}
