package models

import (
	"regexp"
	"slices"
	"time"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

// Status is the lifecycle state of an AI job. Transitions only move forward.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusFailed},
	StatusRunning: {StatusCompleted, StatusFailed},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var modelRefPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/-]{0,127}$`)

// Job is the metadata of one AI invocation. It never holds prompt or output
// content.
type Job struct {
	ID          domain.AiJobID        `json:"id"`
	TenantID    domain.TenantID       `json:"tenant_id"`
	UserID      domain.UserID         `json:"user_id"`
	Purpose     domain.ConsentPurpose `json:"purpose"`
	ModelRef    string                `json:"model_ref"`
	Status      Status                `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	StartedAt   *time.Time            `json:"started_at,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	DeletedAt   *time.Time            `json:"-"`
}

func NewJob(id domain.AiJobID, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose, modelRef string, now time.Time) (*Job, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if !purpose.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid purpose")
	}
	if !modelRefPattern.MatchString(modelRef) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid model reference")
	}
	return &Job{
		ID:        id,
		TenantID:  tenantID,
		UserID:    userID,
		Purpose:   purpose,
		ModelRef:  modelRef,
		Status:    StatusPending,
		CreatedAt: now,
	}, nil
}

// CanTransition validates a status change. Use with ApplyTransition.
func (j *Job) CanTransition(to Status) error {
	if !to.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid job status")
	}
	if slices.Contains(transitions[j.Status], to) {
		return nil
	}
	return dErrors.New(dErrors.CodeConflict, "job status can only move forward")
}

func (j *Job) ApplyTransition(to Status, now time.Time) {
	j.Status = to
	switch {
	case to == StatusRunning:
		j.StartedAt = &now
	case to.IsTerminal():
		j.CompletedAt = &now
	}
}
