package brief

import "time"

// Brief is the Implementation Brief aggregate root.
//
// Content keys equal the field-path segments that address them. Record
// metadata keys are snake_case, matching the record store's document shape.
type Brief struct {
	ID          string `json:"id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required"`
	ProjectType string `json:"project_type"`

	BusinessContext BusinessContext    `json:"businessContext"`
	Requirements    []string           `json:"requirements"`
	SuccessCriteria []SuccessCriterion `json:"successCriteria"`
	Constraints     Constraints        `json:"constraints"`
	RiskFactors     []string           `json:"riskFactors"`
	IntakeResponses Answers            `json:"intakeResponses"`

	// FieldSources is nil for briefs written before ledger tracking existed.
	FieldSources map[string]FieldSource `json:"field_sources" validate:"omitempty,dive,keys,field_path,endkeys"`
	ClientNotes  map[string]string      `json:"client_notes" validate:"omitempty,dive,keys,field_path,endkeys"`

	Status                  Status     `json:"status" validate:"brief_status"`
	LockedAt                *time.Time `json:"locked_at"`
	LockedBy                *string    `json:"locked_by"`
	ClientReviewStartedAt   *time.Time `json:"client_review_started_at"`
	ClientReviewCompletedAt *time.Time `json:"client_review_completed_at"`
	CurrentVersion          int64      `json:"current_version" validate:"gte=0"`
}

// BusinessContext holds the seven required situation fields.
type BusinessContext struct {
	CompanyName      string `json:"companyName"`
	Industry         string `json:"industry"`
	CompanySize      string `json:"companySize"`
	CurrentState     string `json:"currentState"`
	DesiredOutcome   string `json:"desiredOutcome"`
	ProblemStatement string `json:"problemStatement"`
	Stakeholders     string `json:"stakeholders"`
}

// SuccessCriterion is one measurable outcome.
type SuccessCriterion struct {
	Metric            string `json:"metric"`
	Target            string `json:"target"`
	Weight            *int64 `json:"weight" validate:"omitempty,gte=0,lte=100"`
	MeasurementMethod string `json:"measurementMethod"`
}

type Constraints struct {
	Budget      Budget      `json:"budget"`
	Timeline    Timeline    `json:"timeline"`
	Sensitivity Sensitivity `json:"sensitivity"`
	Technical   Technical   `json:"technical"`
}

type Budget struct {
	Min         *int64 `json:"min" validate:"omitempty,gte=0"`
	Max         *int64 `json:"max" validate:"omitempty,gte=0"`
	Currency    string `json:"currency"`
	Flexibility string `json:"flexibility"`
}

type Timeline struct {
	Urgency   string `json:"urgency"`
	StartDate string `json:"startDate"`
	Deadline  string `json:"deadline"`
}

type Sensitivity struct {
	Level     string   `json:"level"`
	DataTypes []string `json:"dataTypes"`
	Notes     string   `json:"notes"`
}

type Technical struct {
	ExistingSystems []string `json:"existingSystems"`
	Preferences     string   `json:"preferences"`
}

// New returns a fresh Advisor Draft with an empty, present ledger.
func New(id, workspaceID, projectType string) *Brief {
	return &Brief{
		ID:           id,
		WorkspaceID:  workspaceID,
		ProjectType:  projectType,
		FieldSources: map[string]FieldSource{},
		ClientNotes:  map[string]string{},
		Status:       StatusAdvisorDraft,
	}
}

// HasLedger reports whether the brief carries a field-source ledger at all.
func (b *Brief) HasLedger() bool {
	return b.FieldSources != nil
}

// Clone returns a deep copy of b.
func (b *Brief) Clone() *Brief {
	if b == nil {
		return nil
	}
	out := *b
	out.Requirements = cloneStrings(b.Requirements)
	out.RiskFactors = cloneStrings(b.RiskFactors)
	if b.SuccessCriteria != nil {
		out.SuccessCriteria = make([]SuccessCriterion, len(b.SuccessCriteria))
		for i, sc := range b.SuccessCriteria {
			sc.Weight = cloneInt(sc.Weight)
			out.SuccessCriteria[i] = sc
		}
	}
	out.Constraints.Budget.Min = cloneInt(b.Constraints.Budget.Min)
	out.Constraints.Budget.Max = cloneInt(b.Constraints.Budget.Max)
	out.Constraints.Sensitivity.DataTypes = cloneStrings(b.Constraints.Sensitivity.DataTypes)
	out.Constraints.Technical.ExistingSystems = cloneStrings(b.Constraints.Technical.ExistingSystems)
	out.IntakeResponses = b.IntakeResponses.clone()

	if b.FieldSources != nil {
		out.FieldSources = make(map[string]FieldSource, len(b.FieldSources))
		for k, v := range b.FieldSources {
			out.FieldSources[k] = v.clone()
		}
	}
	if b.ClientNotes != nil {
		out.ClientNotes = make(map[string]string, len(b.ClientNotes))
		for k, v := range b.ClientNotes {
			out.ClientNotes[k] = v
		}
	}

	out.LockedAt = cloneTime(b.LockedAt)
	out.ClientReviewStartedAt = cloneTime(b.ClientReviewStartedAt)
	out.ClientReviewCompletedAt = cloneTime(b.ClientReviewCompletedAt)
	if b.LockedBy != nil {
		s := *b.LockedBy
		out.LockedBy = &s
	}
	return &out
}

// AdoptLifecycle copies the authoritative lifecycle fields of src into b,
// leaving content, ledger and notes alone.
func (b *Brief) AdoptLifecycle(src *Brief) {
	c := src.Clone()
	b.Status = c.Status
	b.LockedAt = c.LockedAt
	b.LockedBy = c.LockedBy
	b.ClientReviewStartedAt = c.ClientReviewStartedAt
	b.ClientReviewCompletedAt = c.ClientReviewCompletedAt
	b.CurrentVersion = c.CurrentVersion
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	t := *p
	return &t
}

// Int64 returns a pointer to n, for optional integer fields.
func Int64(n int64) *int64 { return &n }

// Time returns a pointer to t, for optional timestamps.
func Time(t time.Time) *time.Time { return &t }
