// Package models holds the security incident record and the CNIL notification
// predicates derived from it. Deadlines are recomputed from DetectedAt on every
// read; nothing time-dependent is stored.
package models

import (
	"cmp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	labels "rgpdgate/pkg/platform/strings"
)

// CnilWindow is the Art. 33 notification window, counted from detection.
const (
	CnilWindow         = 72 * time.Hour
	ApproachingWindow  = 24 * time.Hour
	MaxTitleLength     = 200
	MaxDescriptionLen  = 5000
	MaxDataCategories  = 20
	MaxDataCategoryLen = 50
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type RiskLevel string

const (
	RiskNone     RiskLevel = "NONE"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskNone, RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

type Type string

const (
	TypeUnauthorizedAccess Type = "UNAUTHORIZED_ACCESS"
	TypeCrossTenantAccess  Type = "CROSS_TENANT_ACCESS"
	TypeDataLeak           Type = "DATA_LEAK"
	TypeDataLoss           Type = "DATA_LOSS"
	TypePIIInLogs          Type = "PII_IN_LOGS"
	TypeMalware            Type = "MALWARE"
	TypeVulnerability      Type = "VULNERABILITY_EXPLOITED"
	TypeServiceOutage      Type = "SERVICE_UNAVAILABLE"
	TypeOther              Type = "OTHER"
)

var validTypes = []Type{
	TypeUnauthorizedAccess, TypeCrossTenantAccess, TypeDataLeak, TypeDataLoss,
	TypePIIInLogs, TypeMalware, TypeVulnerability, TypeServiceOutage, TypeOther,
}

func (t Type) IsValid() bool { return slices.Contains(validTypes, t) }

// Incident is append-only: follow-up steps set write-once timestamps and
// resolution never removes the record. A nil TenantID marks a platform-wide
// incident.
type Incident struct {
	ID              domain.IncidentID `json:"id"`
	TenantID        domain.TenantID   `json:"tenant_id"`
	Severity        Severity          `json:"severity"`
	Type            Type              `json:"type"`
	RiskLevel       RiskLevel         `json:"risk_level"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	DataCategories  []string          `json:"data_categories"`
	UsersAffected   int               `json:"users_affected"`
	RecordsAffected int               `json:"records_affected"`
	DetectedAt      time.Time         `json:"detected_at"`
	DetectedBy      *domain.UserID    `json:"detected_by,omitempty"`
	CnilNotifiedAt  *time.Time        `json:"cnil_notified_at,omitempty"`
	UsersNotifiedAt *time.Time        `json:"users_notified_at,omitempty"`
	ResolvedAt      *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Input is what a caller supplies to register an incident.
type Input struct {
	TenantID        domain.TenantID
	Severity        Severity
	Type            Type
	RiskLevel       RiskLevel
	Title           string
	Description     string
	DataCategories  []string
	UsersAffected   int
	RecordsAffected int
	DetectedAt      time.Time
	DetectedBy      *domain.UserID
}

func (in Input) Validate(now time.Time) error {
	switch {
	case !in.Severity.IsValid():
		return dErrors.New(dErrors.CodeValidation, "invalid severity")
	case !in.Type.IsValid():
		return dErrors.New(dErrors.CodeValidation, "invalid incident type")
	case !in.RiskLevel.IsValid():
		return dErrors.New(dErrors.CodeValidation, "invalid risk level")
	case strings.TrimSpace(in.Title) == "":
		return dErrors.New(dErrors.CodeValidation, "title is required")
	case utf8.RuneCountInString(in.Title) > MaxTitleLength:
		return dErrors.New(dErrors.CodeValidation, "title too long")
	case utf8.RuneCountInString(in.Description) > MaxDescriptionLen:
		return dErrors.New(dErrors.CodeValidation, "description too long")
	case in.UsersAffected < 0 || in.RecordsAffected < 0:
		return dErrors.New(dErrors.CodeValidation, "affected counts must not be negative")
	case in.DetectedAt.IsZero():
		return dErrors.New(dErrors.CodeValidation, "detected_at is required")
	case in.DetectedAt.After(now):
		return dErrors.New(dErrors.CodeValidation, "detected_at is in the future")
	case len(in.DataCategories) > MaxDataCategories:
		return dErrors.New(dErrors.CodeValidation, "too many data categories")
	}
	for _, c := range in.DataCategories {
		if c == "" || utf8.RuneCountInString(c) > MaxDataCategoryLen {
			return dErrors.New(dErrors.CodeValidation, "invalid data category")
		}
	}
	return nil
}

func NewIncident(id domain.IncidentID, in Input, now time.Time) (*Incident, error) {
	if err := in.Validate(now); err != nil {
		return nil, err
	}
	return &Incident{
		ID:              id,
		TenantID:        in.TenantID,
		Severity:        in.Severity,
		Type:            in.Type,
		RiskLevel:       in.RiskLevel,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		DataCategories:  labels.NormalizeLabels(in.DataCategories),
		UsersAffected:   in.UsersAffected,
		RecordsAffected: in.RecordsAffected,
		DetectedAt:      in.DetectedAt.UTC(),
		DetectedBy:      in.DetectedBy,
		CreatedAt:       now,
	}, nil
}

func (i *Incident) PlatformWide() bool { return i.TenantID.IsNil() }

// CnilDeadline is DetectedAt plus 72 hours.
func (i *Incident) CnilDeadline() time.Time {
	return i.DetectedAt.Add(CnilWindow)
}

// IsCnilNotificationRequired holds for HIGH and CRITICAL risk.
func (i *Incident) IsCnilNotificationRequired() bool {
	return i.RiskLevel == RiskHigh || i.RiskLevel == RiskCritical
}

// IsUsersNotificationRequired holds for CRITICAL risk, or HIGH risk with more
// than threshold users affected.
func (i *Incident) IsUsersNotificationRequired(threshold int) bool {
	switch i.RiskLevel {
	case RiskCritical:
		return true
	case RiskHigh:
		return i.UsersAffected > threshold
	}
	return false
}

func (i *Incident) cnilPending() bool {
	return i.IsCnilNotificationRequired() && i.CnilNotifiedAt == nil
}

// IsCnilDeadlineOverdue reports now strictly past the deadline with no
// notification recorded.
func (i *Incident) IsCnilDeadlineOverdue(now time.Time) bool {
	return i.cnilPending() && now.After(i.CnilDeadline())
}

// IsCnilDeadlineApproaching reports less than 24h left before the deadline.
// An overdue incident is not approaching.
func (i *Incident) IsCnilDeadlineApproaching(now time.Time) bool {
	if !i.cnilPending() {
		return false
	}
	remaining := i.CnilDeadline().Sub(now)
	return remaining >= 0 && remaining < ApproachingWindow
}

// Assessment is the derived notification view of an incident at one instant.
type Assessment struct {
	CnilRequired        bool      `json:"cnil_required"`
	UsersRequired       bool      `json:"users_required"`
	CnilDeadline        time.Time `json:"cnil_deadline"`
	CnilDeadlineNear    bool      `json:"cnil_deadline_approaching"`
	CnilDeadlineOverdue bool      `json:"cnil_deadline_overdue"`
}

func (i *Incident) Assess(now time.Time, usersThreshold int) Assessment {
	return Assessment{
		CnilRequired:        i.IsCnilNotificationRequired(),
		UsersRequired:       i.IsUsersNotificationRequired(usersThreshold),
		CnilDeadline:        i.CnilDeadline(),
		CnilDeadlineNear:    i.IsCnilDeadlineApproaching(now),
		CnilDeadlineOverdue: i.IsCnilDeadlineOverdue(now),
	}
}

func (i *Incident) CanMarkCnilNotified() error {
	if i.CnilNotifiedAt != nil {
		return dErrors.New(dErrors.CodeConflict, "cnil notification already recorded")
	}
	return nil
}

func (i *Incident) ApplyCnilNotified(now time.Time) { i.CnilNotifiedAt = &now }

func (i *Incident) CanMarkUsersNotified() error {
	if i.UsersNotifiedAt != nil {
		return dErrors.New(dErrors.CodeConflict, "users notification already recorded")
	}
	return nil
}

func (i *Incident) ApplyUsersNotified(now time.Time) { i.UsersNotifiedAt = &now }

func (i *Incident) CanResolve() error {
	if i.ResolvedAt != nil {
		return dErrors.New(dErrors.CodeConflict, "incident already resolved")
	}
	return nil
}

func (i *Incident) ApplyResolve(now time.Time) { i.ResolvedAt = &now }

// PendingNotifications keeps incidents still owing a CNIL notification and
// orders them: overdue first, then approaching, then by ascending deadline.
// Each key is compared in turn; ties keep input order.
func PendingNotifications(incidents []*Incident, now time.Time) []*Incident {
	out := make([]*Incident, 0, len(incidents))
	for _, i := range incidents {
		if i.cnilPending() {
			out = append(out, i)
		}
	}
	slices.SortStableFunc(out, func(a, b *Incident) int {
		if c := compareFlag(a.IsCnilDeadlineOverdue(now), b.IsCnilDeadlineOverdue(now)); c != 0 {
			return c
		}
		if c := compareFlag(a.IsCnilDeadlineApproaching(now), b.IsCnilDeadlineApproaching(now)); c != 0 {
			return c
		}
		return a.CnilDeadline().Compare(b.CnilDeadline())
	})
	return out
}

// compareFlag sorts true before false.
func compareFlag(a, b bool) int {
	return cmp.Compare(boolRank(b), boolRank(a))
}

func boolRank(v bool) int {
	if v {
		return 1
	}
	return 0
}
