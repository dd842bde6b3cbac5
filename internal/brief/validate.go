package brief

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PathChecker reports whether a ledger or note key addresses a field that
// exists in the brief's shape. fieldpath supplies the implementation.
type PathChecker func(path string) error

type checkerKey struct{}

// briefValidate is the validator instance for brief documents.
// Initialized in init() with custom validators.
var briefValidate *validator.Validate

func init() {
	briefValidate = validator.New()

	if err := briefValidate.RegisterValidation("brief_status", validateStatus); err != nil {
		panic(fmt.Sprintf("register brief_status: %v", err))
	}
	if err := briefValidate.RegisterValidationCtx("field_path", validateFieldPath); err != nil {
		panic(fmt.Sprintf("register field_path: %v", err))
	}
}

func validateStatus(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}

func validateFieldPath(ctx context.Context, fl validator.FieldLevel) bool {
	check, _ := ctx.Value(checkerKey{}).(PathChecker)
	if check == nil {
		return fl.Field().String() != ""
	}
	return check(fl.Field().String()) == nil
}

// ValidationError lists every problem found in a brief document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid brief: " + strings.Join(e.Problems, "; ")
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks identity, status, ledger sources and that every ledger and
// note key is accepted by check. A nil check only rejects empty keys.
func Validate(ctx context.Context, b *Brief, check PathChecker) error {
	if b == nil {
		return &ValidationError{Problems: []string{"brief is nil"}}
	}
	ctx = context.WithValue(ctx, checkerKey{}, check)
	err := briefValidate.StructCtx(ctx, b)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate brief: %w", err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return &ValidationError{Problems: problems}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "brief_status":
		return fmt.Sprintf("%s: unknown status %q", fe.Namespace(), fe.Value())
	case "field_path":
		return fmt.Sprintf("%s: %q is not a field of this brief", fe.Namespace(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s: %q must be one of %s", fe.Namespace(), fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}
}

// Marshal encodes b as the full record document.
func Marshal(b *Brief) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal brief %s: %w", b.ID, err)
	}
	return data, nil
}

// Unmarshal decodes a record document. An absent or null field_sources key
// leaves FieldSources nil (legacy brief).
func Unmarshal(data []byte) (*Brief, error) {
	var b Brief
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshal brief: %w", err)
	}
	return &b, nil
}
