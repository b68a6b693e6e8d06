package domain

import (
	"github.com/google/uuid"

	dErrors "rgpdgate/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so the compiler rejects passing a
// UserID where a TenantID is expected. Construct from external input with the
// matching Parse function; never cast raw strings.
type (
	TenantID   uuid.UUID
	UserID     uuid.UUID
	ConsentID  uuid.UUID
	AiJobID    uuid.UUID
	RequestID  uuid.UUID
	ExportID   uuid.UUID
	CaseID     uuid.UUID
	IncidentID uuid.UUID
	DocumentID uuid.UUID
	EventID    uuid.UUID
)

// maxIDLength bounds the raw input before it reaches uuid.Parse.
const maxIDLength = 64

func parseID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	return u, nil
}

func ParseTenantID(s string) (TenantID, error) {
	u, err := parseID(s, "tenant id")
	return TenantID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseID(s, "user id")
	return UserID(u), err
}

func ParseConsentID(s string) (ConsentID, error) {
	u, err := parseID(s, "consent id")
	return ConsentID(u), err
}

func ParseAiJobID(s string) (AiJobID, error) {
	u, err := parseID(s, "job id")
	return AiJobID(u), err
}

func ParseRequestID(s string) (RequestID, error) {
	u, err := parseID(s, "request id")
	return RequestID(u), err
}

func ParseExportID(s string) (ExportID, error) {
	u, err := parseID(s, "export id")
	return ExportID(u), err
}

func ParseCaseID(s string) (CaseID, error) {
	u, err := parseID(s, "case id")
	return CaseID(u), err
}

func ParseIncidentID(s string) (IncidentID, error) {
	u, err := parseID(s, "incident id")
	return IncidentID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseID(s, "document id")
	return DocumentID(u), err
}

func (id TenantID) String() string   { return uuid.UUID(id).String() }
func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id ConsentID) String() string  { return uuid.UUID(id).String() }
func (id AiJobID) String() string    { return uuid.UUID(id).String() }
func (id RequestID) String() string  { return uuid.UUID(id).String() }
func (id ExportID) String() string   { return uuid.UUID(id).String() }
func (id CaseID) String() string     { return uuid.UUID(id).String() }
func (id IncidentID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id AiJobID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ExportID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id CaseID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id IncidentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps JSON payloads (export bundles, API responses) in the
// canonical UUID string form.

func (id TenantID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ConsentID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id AiJobID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id RequestID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id ExportID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id CaseID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id IncidentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id DocumentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id EventID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *TenantID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UserID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ConsentID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AiJobID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RequestID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ExportID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CaseID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *IncidentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DocumentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EventID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
