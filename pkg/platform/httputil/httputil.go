// Package httputil holds JSON response helpers shared by HTTP handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "rgpdgate/pkg/domain-errors"
)

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error to a status and a client-safe body. Internal
// failures, isolation violations and guard violations never carry a
// description, so tenant ids and internal text cannot reach the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, public, describe := mapCode(code)

	body := errorBody{Error: public}
	if describe {
		body.ErrorDescription = dErrors.Message(err)
	}
	WriteJSON(w, status, body)
}

func mapCode(code dErrors.Code) (status int, public string, describe bool) {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest, string(code), true
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized, string(code), false
	case dErrors.CodeForbidden, dErrors.CodeConsentRequired, dErrors.CodeProcessingSuspended:
		return http.StatusForbidden, string(code), true
	case dErrors.CodeAccessDenied, dErrors.CodeTenantIsolation:
		return http.StatusForbidden, string(dErrors.CodeAccessDenied), false
	case dErrors.CodeNotFound:
		return http.StatusNotFound, string(code), true
	case dErrors.CodeConflict:
		return http.StatusConflict, string(code), true
	case dErrors.CodeExpired:
		return http.StatusGone, string(code), true
	case dErrors.CodeLimitExceeded:
		return http.StatusTooManyRequests, string(code), true
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout, string(code), false
	default:
		return http.StatusInternalServerError, string(dErrors.CodeInternal), false
	}
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
