// Package eventguard rejects structured log and audit payloads that could
// carry personal data or secrets out of the process.
//
// The default Heuristic guard is a pragmatic detector (key tokens, value
// patterns, scalar-only values). It is a guard, not a classifier: callers
// depend on the Guard interface so a structured PII classifier can replace it.
package eventguard

import (
	"encoding"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	dErrors "rgpdgate/pkg/domain-errors"
)

// Guard validates an event name and its flat field map.
type Guard interface {
	AssertSafe(eventName string, fields map[string]any) error
}

// Rule names the check a payload failed.
type Rule string

const (
	RuleEventName    Rule = "event_name"
	RuleForbiddenKey Rule = "forbidden_key"
	RuleEmailValue   Rule = "address_pattern"
	RuleJWTValue     Rule = "jwt_pattern"
	RuleAPIKeyValue  Rule = "api_key_pattern"
	RuleTokenValue   Rule = "forbidden_substring"
	RuleNonScalar    Rule = "non_scalar"
)

// Rule values are themselves safe to log.

// Violation is returned when a payload is rejected. It names the field but
// never echoes the offending value.
type Violation struct {
	Rule  Rule
	Field string
}

func (v *Violation) Error() string {
	if v.Field == "" {
		return fmt.Sprintf("log guard violation: %s", v.Rule)
	}
	return fmt.Sprintf("log guard violation: %s on field %q", v.Rule, v.Field)
}

func (v *Violation) ErrorCode() dErrors.Code { return dErrors.CodeLogGuardViolation }

var (
	eventNamePattern = regexp.MustCompile(`(?i)^[a-z0-9][a-z0-9._-]{0,120}$`)
	emailPattern     = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)
	jwtPattern       = regexp.MustCompile(`eyJ[A-Za-z0-9_-]{4,}\.[A-Za-z0-9_-]{4,}\.[A-Za-z0-9_-]*`)
	apiKeyPattern    = regexp.MustCompile(`(?i)\b(?:sk|pk|rk)[-_](?:live[-_]|test[-_])?[a-z0-9]{16,}|\bAKIA[0-9A-Z]{16}\b|\b(?:api|key)[-_][a-z0-9]{24,}`)
)

// ForbiddenTokens are matched case-insensitively against keys and string values.
var ForbiddenTokens = []string{
	"email", "password", "prompt", "content", "payload", "body",
	"input", "output", "message", "text", "document", "token", "secret",
}

// forbiddenExactKeys are rejected only as whole keys.
var forbiddenExactKeys = []string{"data"}

// Heuristic is the default Guard.
type Heuristic struct {
	listKeys map[string]bool
}

// Option configures a Heuristic guard.
type Option func(*Heuristic)

// WithListKeys allow-lists keys whose value may be a list of category labels.
// Each label is still checked as a string value.
func WithListKeys(keys ...string) Option {
	return func(h *Heuristic) {
		for _, k := range keys {
			h.listKeys[strings.ToLower(k)] = true
		}
	}
}

// New returns a Heuristic guard. "pii_types" is always list-allowed.
func New(opts ...Option) *Heuristic {
	h := &Heuristic{listKeys: map[string]bool{"pii_types": true}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AssertSafe implements Guard. Fields are checked in key order so the
// reported violation is deterministic.
func (h *Heuristic) AssertSafe(eventName string, fields map[string]any) error {
	if !eventNamePattern.MatchString(eventName) {
		return &Violation{Rule: RuleEventName}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if rule, bad := checkKey(key); bad {
			return &Violation{Rule: rule, Field: key}
		}
		if rule, bad := h.checkValue(key, fields[key]); bad {
			return &Violation{Rule: rule, Field: key}
		}
	}
	return nil
}

func checkKey(key string) (Rule, bool) {
	lower := strings.ToLower(key)
	if slices.Contains(forbiddenExactKeys, lower) {
		return RuleForbiddenKey, true
	}
	for _, tok := range ForbiddenTokens {
		if strings.Contains(lower, tok) {
			return RuleForbiddenKey, true
		}
	}
	return "", false
}

func (h *Heuristic) checkValue(key string, value any) (Rule, bool) {
	if value == nil {
		return "", false
	}
	if tm, ok := value.(encoding.TextMarshaler); ok {
		b, err := tm.MarshalText()
		if err != nil {
			return RuleNonScalar, true
		}
		return CheckString(string(b))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return CheckString(rv.String())
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "", false
	case reflect.Slice, reflect.Array:
		if !h.listKeys[strings.ToLower(key)] {
			return RuleNonScalar, true
		}
		for i := range rv.Len() {
			elem := rv.Index(i)
			if elem.Kind() == reflect.Interface {
				elem = elem.Elem()
			}
			if elem.Kind() != reflect.String {
				return RuleNonScalar, true
			}
			if rule, bad := CheckString(elem.String()); bad {
				return rule, true
			}
		}
		return "", false
	default:
		return RuleNonScalar, true
	}
}

// CheckString applies the value rules to a single string.
func CheckString(s string) (Rule, bool) {
	if strings.Contains(s, "@") || emailPattern.MatchString(s) {
		return RuleEmailValue, true
	}
	if jwtPattern.MatchString(s) {
		return RuleJWTValue, true
	}
	if apiKeyPattern.MatchString(s) {
		return RuleAPIKeyValue, true
	}
	lower := strings.ToLower(s)
	for _, tok := range ForbiddenTokens {
		if strings.Contains(lower, tok) {
			return RuleTokenValue, true
		}
	}
	return "", false
}
