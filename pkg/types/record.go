package types

import (
	"fmt"
	"time"
)

// InvestigationType classifies the kind of analysis an investigation performed
type InvestigationType string

const (
	TypeSecurityAudit      InvestigationType = "security-audit"
	TypePerformanceReview  InvestigationType = "performance-review"
	TypeArchitectureReview InvestigationType = "architecture-review"
	TypeCodeQuality        InvestigationType = "code-quality"
	TypeDependencyAudit    InvestigationType = "dependency-audit"
	TypeCustom             InvestigationType = "custom"
)

// Valid reports whether t is a member of the closed type enumeration
func (t InvestigationType) Valid() bool {
	switch t {
	case TypeSecurityAudit, TypePerformanceReview, TypeArchitectureReview,
		TypeCodeQuality, TypeDependencyAudit, TypeCustom:
		return true
	default:
		return false
	}
}

// AllInvestigationTypes returns the closed enumeration in declaration order
func AllInvestigationTypes() []InvestigationType {
	return []InvestigationType{
		TypeSecurityAudit,
		TypePerformanceReview,
		TypeArchitectureReview,
		TypeCodeQuality,
		TypeDependencyAudit,
		TypeCustom,
	}
}

// InvestigationStatus represents the lifecycle state of an investigation
type InvestigationStatus string

const (
	StatusRunning   InvestigationStatus = "running"
	StatusCompleted InvestigationStatus = "completed"
	StatusFailed    InvestigationStatus = "failed"
	StatusPartial   InvestigationStatus = "partial"
)

// Valid reports whether s is a member of the status enumeration
func (s InvestigationStatus) Valid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusFailed, StatusPartial:
		return true
	default:
		return false
	}
}

// AllInvestigationStatuses returns the status enumeration in declaration order
func AllInvestigationStatuses() []InvestigationStatus {
	return []InvestigationStatus{StatusRunning, StatusCompleted, StatusFailed, StatusPartial}
}

// InvestigationRecord is a completed or in-progress analytical run against a
// codebase. The id is immutable once created; CreatedAt and UpdatedAt are
// registry-managed and ignored on input.
type InvestigationRecord struct {
	// Identification
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Type     InvestigationType `json:"type"`
	Codebase string            `json:"codebase"`

	// Timing. Duration is elapsed milliseconds; when EndTime is known and
	// Duration is absent it is derived as EndTime - StartTime.
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Duration  *int64     `json:"duration,omitempty"`

	// Outcome
	Status       InvestigationStatus `json:"status"`
	TokensUsed   int64               `json:"tokensUsed"`
	QualityScore *float64            `json:"qualityScore,omitempty"`
	Findings     *int64              `json:"findings,omitempty"`

	// Associations. Both are sets; order is irrelevant and duplicates are
	// collapsed on write.
	Agents []string `json:"agents,omitempty"`
	Tags   []string `json:"tags,omitempty"`

	// Metadata is an opaque caller-defined bag. The registry stores it
	// verbatim and never indexes or validates its contents.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Registry managed
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the record against the write-time invariants. It assumes
// DeriveDuration has been applied when the caller wants derivation; a
// caller-supplied Duration that disagrees with the timestamps is rejected
// rather than silently recomputed.
func (r *InvestigationRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}

	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}

	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown investigation type %q", ErrValidation, r.Type)
	}

	if r.Codebase == "" {
		return fmt.Errorf("%w: codebase is required", ErrValidation)
	}

	if r.StartTime.IsZero() {
		return fmt.Errorf("%w: startTime is required", ErrValidation)
	}

	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, r.Status)
	}

	if r.EndTime != nil && r.EndTime.Before(r.StartTime) {
		return fmt.Errorf("%w: endTime precedes startTime", ErrValidation)
	}

	if r.Duration != nil && *r.Duration < 0 {
		return fmt.Errorf("%w: duration must be non-negative", ErrValidation)
	}

	if r.Duration != nil && r.EndTime != nil {
		if want := r.EndTime.Sub(r.StartTime).Milliseconds(); *r.Duration != want {
			return fmt.Errorf("%w: duration %dms does not match endTime-startTime (%dms)", ErrValidation, *r.Duration, want)
		}
	}

	if r.TokensUsed < 0 {
		return fmt.Errorf("%w: tokensUsed must be non-negative", ErrValidation)
	}

	if r.QualityScore != nil && (*r.QualityScore < 0 || *r.QualityScore > 100) {
		return fmt.Errorf("%w: qualityScore must be between 0 and 100", ErrValidation)
	}

	if r.Findings != nil && *r.Findings < 0 {
		return fmt.Errorf("%w: findings must be non-negative", ErrValidation)
	}

	return nil
}

// DeriveDuration fills Duration from the timestamps when both are known and
// the caller did not supply a value
func (r *InvestigationRecord) DeriveDuration() {
	if r.Duration == nil && r.EndTime != nil && !r.StartTime.IsZero() {
		d := r.EndTime.Sub(r.StartTime).Milliseconds()
		r.Duration = &d
	}
}

// RecordPatch is a partial update applied by Update. Nil fields are left
// unchanged; set fields replace the stored value. Replacing Tags or Agents
// replaces the whole set.
type RecordPatch struct {
	Name         *string              `json:"name,omitempty"`
	Type         *InvestigationType   `json:"type,omitempty"`
	Codebase     *string              `json:"codebase,omitempty"`
	StartTime    *time.Time           `json:"startTime,omitempty"`
	EndTime      *time.Time           `json:"endTime,omitempty"`
	Duration     *int64               `json:"duration,omitempty"`
	Status       *InvestigationStatus `json:"status,omitempty"`
	TokensUsed   *int64               `json:"tokensUsed,omitempty"`
	QualityScore *float64             `json:"qualityScore,omitempty"`
	Findings     *int64               `json:"findings,omitempty"`
	Agents       *[]string            `json:"agents,omitempty"`
	Tags         *[]string            `json:"tags,omitempty"`
	Metadata     map[string]any       `json:"metadata,omitempty"`
}

// IsEmpty reports whether the patch would change nothing but UpdatedAt
func (p *RecordPatch) IsEmpty() bool {
	return p.Name == nil && p.Type == nil && p.Codebase == nil &&
		p.StartTime == nil && p.EndTime == nil && p.Duration == nil &&
		p.Status == nil && p.TokensUsed == nil && p.QualityScore == nil &&
		p.Findings == nil && p.Agents == nil && p.Tags == nil && p.Metadata == nil
}

// Apply merges the patch into r. When the patch moves a timestamp without
// supplying a matching Duration, the stale stored duration is dropped so the
// caller can re-derive it against the new timestamps.
func (p *RecordPatch) Apply(r *InvestigationRecord) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Codebase != nil {
		r.Codebase = *p.Codebase
	}
	if p.StartTime != nil {
		r.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		r.EndTime = p.EndTime
	}
	if p.Duration != nil {
		r.Duration = p.Duration
	} else if p.StartTime != nil || p.EndTime != nil {
		r.Duration = nil
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.TokensUsed != nil {
		r.TokensUsed = *p.TokensUsed
	}
	if p.QualityScore != nil {
		r.QualityScore = p.QualityScore
	}
	if p.Findings != nil {
		r.Findings = p.Findings
	}
	if p.Agents != nil {
		r.Agents = *p.Agents
	}
	if p.Tags != nil {
		r.Tags = *p.Tags
	}
	if p.Metadata != nil {
		r.Metadata = p.Metadata
	}
}
