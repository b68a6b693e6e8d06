package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	aijobmodels "rgpdgate/internal/aijob/models"
	consentmodels "rgpdgate/internal/consent/models"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
)

// Legal constants for the data-subject right lifecycles.
const (
	ExportTTL            = 7 * 24 * time.Hour
	MaxDownloads         = 3
	PurgeDelay           = 30 * 24 * time.Hour
	MaxExportAuditEvents = 1000
	downloadTokenBytes   = 32
)

// ExportMetadata is the technical record of an export. The download token is
// stored as a SHA-256 hash; the plaintext token is returned once.
type ExportMetadata struct {
	ID                domain.ExportID `json:"id"`
	TenantID          domain.TenantID `json:"tenant_id"`
	UserID            domain.UserID   `json:"user_id"`
	DownloadTokenHash string          `json:"-"`
	ExpiresAt         time.Time       `json:"expires_at"`
	DownloadCount     int             `json:"download_count"`
	CreatedAt         time.Time       `json:"created_at"`
}

func NewExportMetadata(id domain.ExportID, tenantID domain.TenantID, userID domain.UserID, token string, now time.Time) *ExportMetadata {
	return &ExportMetadata{
		ID:                id,
		TenantID:          tenantID,
		UserID:            userID,
		DownloadTokenHash: HashToken(token),
		ExpiresAt:         now.Add(ExportTTL),
		CreatedAt:         now,
	}
}

// IsExpired is true strictly after ExpiresAt.
func (m *ExportMetadata) IsExpired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

// CanDownload applies the download rules in order: ownership, expiry, then
// the download bound. Ownership failures are indistinguishable from an
// unknown token.
func (m *ExportMetadata) CanDownload(tenantID domain.TenantID, userID domain.UserID, now time.Time) error {
	if m.TenantID != tenantID || m.UserID != userID {
		return ErrAccessDenied()
	}
	if m.IsExpired(now) {
		return dErrors.New(dErrors.CodeExpired, "export has expired")
	}
	if m.DownloadCount >= MaxDownloads {
		return dErrors.New(dErrors.CodeLimitExceeded, "download limit reached")
	}
	return nil
}

func (m *ExportMetadata) ApplyDownload() {
	m.DownloadCount++
}

// ErrAccessDenied is the single answer for unknown tokens, foreign tokens and
// unreadable bundles.
func ErrAccessDenied() error {
	return dErrors.New(dErrors.CodeAccessDenied, "export not available")
}

// Bundle is the plaintext export content before encryption.
type Bundle struct {
	ExportID    domain.ExportID         `json:"export_id"`
	TenantID    domain.TenantID         `json:"tenant_id"`
	UserID      domain.UserID           `json:"user_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Consents    []*consentmodels.Record `json:"consents"`
	AiJobs      []*aijobmodels.Job      `json:"ai_jobs"`
	AuditEvents []audit.Event           `json:"audit_events"`
}

// ExportResult is handed to the requester once. Password and DownloadToken
// are not stored in plaintext anywhere.
type ExportResult struct {
	ExportID      domain.ExportID `json:"export_id"`
	DownloadToken string          `json:"download_token"`
	Password      string          `json:"password"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// NewDownloadToken returns a random URL-safe token.
func NewDownloadToken() (string, error) {
	b := make([]byte, downloadTokenBytes)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("generate download token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
