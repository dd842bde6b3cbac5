// Package catalog loads the project-type intake question sets.
//
// Question sets are CUE documents checked against schema.cue. The built-in
// set is embedded; LoadDir reads a directory of .cue files instead, unified
// with the same schema.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSrc []byte

//go:embed types.cue
var builtinSrc []byte

// OtherOption is the select sentinel that requires free text alongside it.
const OtherOption = "Other"

// OtherSuffix is appended to a question ID to address the free text that
// accompanies an "Other" selection (intakeResponses.<id>_other).
const OtherSuffix = "_other"

type QuestionType string

const (
	TypeText        QuestionType = "text"
	TypeTextarea    QuestionType = "textarea"
	TypeSelect      QuestionType = "select"
	TypeMultiselect QuestionType = "multiselect"
	TypeNumber      QuestionType = "number"
)

// Question is one intake question.
type Question struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Type        QuestionType `json:"type"`
	Required    bool         `json:"required"`
	Options     []string     `json:"options"`
	Placeholder string       `json:"placeholder"`
}

// ProjectType is a named question set. A generic type is answered by a
// single free-text question instead of its question list.
type ProjectType struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Generic          bool       `json:"generic"`
	FreeTextQuestion string     `json:"freeTextQuestion,omitempty"`
	Questions        []Question `json:"questions"`
}

// Question returns the question with the given ID.
func (pt ProjectType) Question(id string) (Question, bool) {
	for _, q := range pt.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Required returns the required questions in declaration order.
func (pt ProjectType) Required() []Question {
	var out []Question
	for _, q := range pt.Questions {
		if q.Required {
			out = append(out, q)
		}
	}
	return out
}

// Catalog is an immutable set of project types.
type Catalog struct {
	types map[string]ProjectType
	order []string
}

// Lookup returns the project type with the given ID.
func (c *Catalog) Lookup(id string) (ProjectType, bool) {
	pt, ok := c.types[id]
	return pt, ok
}

// Types returns all project types in declaration order.
func (c *Catalog) Types() []ProjectType {
	out := make([]ProjectType, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.types[id])
	}
	return out
}

// QuestionText returns the text of question qid within project type ptID.
// A question ID carrying OtherSuffix resolves to its parent question.
func (c *Catalog) QuestionText(ptID, qid string) (string, bool) {
	pt, ok := c.types[ptID]
	if !ok {
		return "", false
	}
	if q, ok := pt.Question(qid); ok {
		return q.Text, true
	}
	if base, ok := trimOther(qid); ok {
		if q, ok := pt.Question(base); ok {
			return q.Text + " (other)", true
		}
	}
	return "", false
}

func trimOther(qid string) (string, bool) {
	n := len(qid) - len(OtherSuffix)
	if n > 0 && qid[n:] == OtherSuffix {
		return qid[:n], true
	}
	return "", false
}

// Error is a catalog loading error with CUE position info when available.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog. It panics if the embedded CUE is
// invalid, which the package tests rule out.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(builtinSrc, "types.cue")
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded types: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load compiles src against the schema and extracts the project types.
func Load(src []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return extract(schema.Unify(data))
}

// LoadDir loads every .cue file of the package in dir against the schema.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog directory: %s is not a directory", dir)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &Error{Field: "load", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &Error{Field: "load", Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	data := ctx.BuildInstance(inst)
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return extract(schema.Unify(data))
}

func extract(v cue.Value) (*Catalog, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	typesVal := v.LookupPath(cue.ParsePath("projectTypes"))
	if !typesVal.Exists() {
		return nil, &Error{Field: "projectTypes", Message: "no project types defined", Pos: v.Pos()}
	}
	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	c := &Catalog{types: map[string]ProjectType{}}
	for iter.Next() {
		var pt ProjectType
		if err := iter.Value().Decode(&pt); err != nil {
			return nil, formatCUEError(err)
		}
		if err := check(pt); err != nil {
			return nil, &Error{Field: "projectTypes." + iter.Label(), Message: err.Error(), Pos: iter.Value().Pos()}
		}
		c.types[pt.ID] = pt
		c.order = append(c.order, pt.ID)
	}
	if len(c.order) == 0 {
		return nil, &Error{Field: "projectTypes", Message: "no project types defined", Pos: typesVal.Pos()}
	}
	return c, nil
}

// check enforces the rules the schema cannot express.
func check(pt ProjectType) error {
	seen := map[string]bool{}
	for _, q := range pt.Questions {
		if seen[q.ID] {
			return fmt.Errorf("duplicate question %q", q.ID)
		}
		seen[q.ID] = true
		if (q.Type == TypeSelect || q.Type == TypeMultiselect) && len(q.Options) == 0 {
			return fmt.Errorf("question %q: %s needs options", q.ID, q.Type)
		}
	}
	if pt.Generic {
		if pt.FreeTextQuestion == "" {
			return fmt.Errorf("generic type needs freeTextQuestion")
		}
		if _, ok := pt.Question(pt.FreeTextQuestion); !ok {
			return fmt.Errorf("freeTextQuestion %q is not a question of this type", pt.FreeTextQuestion)
		}
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
