package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

// MaxNotesLength bounds the free-text notes on a suspension record, in characters.
const MaxNotesLength = 1000

// Reason is the Art. 18 ground for limiting processing.
type Reason string

const (
	ReasonUserRequest        Reason = "user_request"
	ReasonAccuracyContested  Reason = "accuracy_contested"
	ReasonUnlawfulProcessing Reason = "unlawful_processing"
	ReasonLegalClaim         Reason = "legal_claim"
	ReasonObjectionPending   Reason = "objection_pending"
)

func (r Reason) IsValid() bool {
	switch r {
	case ReasonUserRequest, ReasonAccuracyContested, ReasonUnlawfulProcessing, ReasonLegalClaim, ReasonObjectionPending:
		return true
	}
	return false
}

// Record is one entry in a subject's suspension history. Each toggle appends
// a record; the user row carries the current flag.
type Record struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    domain.TenantID `json:"tenant_id"`
	UserID      domain.UserID   `json:"user_id"`
	Suspended   bool            `json:"suspended"`
	Reason      Reason          `json:"reason"`
	RequestedBy domain.UserID   `json:"requested_by"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ValidateNotes trims notes and enforces the length bound.
func ValidateNotes(notes string) (string, error) {
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return "", dErrors.New(dErrors.CodeValidation, "notes must be 1000 characters or less")
	}
	return notes, nil
}

// DenialReason says why the suspension gate refused processing.
type DenialReason string

const (
	DenialUserNotFound DenialReason = "user_not_found"
	DenialSuspended    DenialReason = "suspended"
)

// DataSuspensionError is returned by the gate when processing is limited.
type DataSuspensionError struct {
	Reason DenialReason
}

func (e *DataSuspensionError) Error() string {
	return "processing suspended: " + string(e.Reason)
}

func (e *DataSuspensionError) ErrorCode() dErrors.Code { return dErrors.CodeProcessingSuspended }
