package models

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

// Kind distinguishes a contest of an automated decision (Art. 22) from an
// objection to a processing (Art. 21).
type Kind string

const (
	KindDispute    Kind = "dispute"
	KindOpposition Kind = "opposition"
)

func (k Kind) IsValid() bool {
	return k == KindDispute || k == KindOpposition
}

type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusResolved    Status = "resolved"
	StatusRejected    Status = "rejected"
)

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusRejected
}

var transitions = map[Status][]Status{
	StatusPending:     {StatusUnderReview, StatusResolved, StatusRejected},
	StatusUnderReview: {StatusResolved, StatusRejected},
}

const (
	ReviewSLA           = 30 * 24 * time.Hour
	MaxReasonLength     = 5000
	MaxResponseLength   = 5000
	MaxSubjectRefLength = 200
)

// Case is a dispute or an opposition filed by a data subject. Reason and
// AdminResponse are personal data and never leave the store through logs or
// audit events.
type Case struct {
	ID            domain.CaseID   `json:"id"`
	TenantID      domain.TenantID `json:"tenant_id"`
	UserID        domain.UserID   `json:"user_id"`
	Kind          Kind            `json:"kind"`
	Reason        string          `json:"reason"`
	SubjectRef    string          `json:"subject_ref,omitempty"`
	HasAttachment bool            `json:"has_attachment"`
	Status        Status          `json:"status"`
	AdminResponse string          `json:"admin_response,omitempty"`
	ReviewedBy    *domain.UserID  `json:"reviewed_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ReviewedAt    *time.Time      `json:"reviewed_at,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	DueAt         time.Time       `json:"due_at"`
}

// NewCase opens a pending case due ReviewSLA after now. SubjectRef names what
// is contested: an AI job for a dispute, a processing purpose for an
// opposition.
func NewCase(id domain.CaseID, tenantID domain.TenantID, userID domain.UserID, kind Kind, reason, subjectRef string, hasAttachment bool, now time.Time) (*Case, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid case kind")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	if utf8.RuneCountInString(subjectRef) > MaxSubjectRefLength {
		return nil, dErrors.New(dErrors.CodeValidation, "subject reference is too long")
	}
	return &Case{
		ID:            id,
		TenantID:      tenantID,
		UserID:        userID,
		Kind:          kind,
		Reason:        reason,
		SubjectRef:    subjectRef,
		HasAttachment: hasAttachment,
		Status:        StatusPending,
		CreatedAt:     now,
		DueAt:         now.Add(ReviewSLA),
	}, nil
}

// Review is a reviewer's decision on a case.
type Review struct {
	Status        Status
	AdminResponse string
	ReviewedBy    domain.UserID
}

// CanReview enforces the transition table. A terminal target needs a
// reasoned response; a terminal case never reopens.
func (c *Case) CanReview(r Review) error {
	if c.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeConflict, "case is already closed")
	}
	if !slices.Contains(transitions[c.Status], r.Status) {
		return dErrors.New(dErrors.CodeConflict, "invalid case status transition")
	}
	if r.ReviewedBy.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "reviewer is required")
	}
	response := strings.TrimSpace(r.AdminResponse)
	if r.Status.IsTerminal() && response == "" {
		return dErrors.New(dErrors.CodeValidation, "a response is required to close a case")
	}
	if utf8.RuneCountInString(response) > MaxResponseLength {
		return dErrors.New(dErrors.CodeValidation, "response is too long")
	}
	return nil
}

func (c *Case) ApplyReview(r Review, now time.Time) {
	c.Status = r.Status
	if resp := strings.TrimSpace(r.AdminResponse); resp != "" {
		c.AdminResponse = resp
	}
	reviewer := r.ReviewedBy
	c.ReviewedBy = &reviewer
	c.ReviewedAt = &now
	if r.Status.IsTerminal() {
		c.ResolvedAt = &now
	}
}

// IsOverdue is true for an open case past its due date.
func (c *Case) IsOverdue(now time.Time) bool {
	return !c.Status.IsTerminal() && now.After(c.DueAt)
}
