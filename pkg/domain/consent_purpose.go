package domain

import dErrors "rgpdgate/pkg/domain-errors"

// ConsentPurpose identifies why personal data is processed.
// Invariant: the value must be one of the supported consent purposes.
//
// Usage: construct via ParseConsentPurpose at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ConsentPurpose string

// Supported consent purposes.
const (
	ConsentPurposeAIProcessing ConsentPurpose = "ai_processing"
	ConsentPurposeAnalytics    ConsentPurpose = "analytics"
	ConsentPurposeMarketing    ConsentPurpose = "marketing"
	ConsentPurposeDataSharing  ConsentPurpose = "third_party_sharing"
)

var validConsentPurposes = map[ConsentPurpose]bool{
	ConsentPurposeAIProcessing: true,
	ConsentPurposeAnalytics:    true,
	ConsentPurposeMarketing:    true,
	ConsentPurposeDataSharing:  true,
}

// ParseConsentPurpose constructs a ConsentPurpose from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseConsentPurpose(s string) (ConsentPurpose, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "purpose cannot be empty")
	}
	p := ConsentPurpose(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid purpose")
	}
	return p, nil
}

// IsValid checks if the consent purpose is one of the supported enum values.
func (p ConsentPurpose) IsValid() bool {
	return validConsentPurposes[p]
}

func (p ConsentPurpose) String() string {
	return string(p)
}
