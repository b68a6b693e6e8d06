// Package models holds versioned legal documents (terms, privacy policy) and
// the acceptance records users leave against a specific version.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

type DocumentType string

const (
	TypeTermsOfService DocumentType = "terms_of_service"
	TypePrivacyPolicy  DocumentType = "privacy_policy"
	TypeCookiePolicy   DocumentType = "cookie_policy"
	TypeDPA            DocumentType = "data_processing_agreement"
)

func (t DocumentType) IsValid() bool {
	switch t {
	case TypeTermsOfService, TypePrivacyPolicy, TypeCookiePolicy, TypeDPA:
		return true
	}
	return false
}

// Document is one published version. The text lives with the publisher; only
// its SHA-256 is kept so an acceptance can be tied to exact wording.
type Document struct {
	ID          domain.DocumentID `json:"id"`
	Type        DocumentType      `json:"type"`
	Version     string            `json:"version"`
	ContentHash string            `json:"content_hash"`
	PublishedAt time.Time         `json:"published_at"`
}

// ParseVersion accepts "1.2.3" or "v1.2.3" and returns the canonical form
// without the leading v. Shorthand such as "1.2" expands to "1.2.0".
func ParseVersion(s string) (string, error) {
	v := strings.TrimSpace(s)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", dErrors.New(dErrors.CodeValidation, "invalid semantic version")
	}
	return strings.TrimPrefix(semver.Canonical(v), "v"), nil
}

// CompareVersions orders two canonical versions like semver.Compare.
func CompareVersions(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}

func NewDocument(id domain.DocumentID, docType DocumentType, version, text string, now time.Time) (*Document, error) {
	if !docType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid legal document type")
	}
	v, err := ParseVersion(version)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "legal document text is required")
	}
	sum := sha256.Sum256([]byte(text))
	return &Document{
		ID:          id,
		Type:        docType,
		Version:     v,
		ContentHash: hex.EncodeToString(sum[:]),
		PublishedAt: now,
	}, nil
}

// Supersedes reports whether d may be published after current.
func (d *Document) Supersedes(current *Document) error {
	if current == nil {
		return nil
	}
	if CompareVersions(d.Version, current.Version) <= 0 {
		return dErrors.New(dErrors.CodeConflict, "version must be greater than the current version")
	}
	return nil
}

type Acceptance struct {
	ID         uuid.UUID         `json:"id"`
	TenantID   domain.TenantID   `json:"tenant_id"`
	UserID     domain.UserID     `json:"user_id"`
	DocumentID domain.DocumentID `json:"document_id"`
	AcceptedAt time.Time         `json:"accepted_at"`
}
