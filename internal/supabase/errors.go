package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is a failed PostgREST, GoTrue or Storage call.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Hint       string `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.StatusCode, e.Message)
}

// PostgREST / Postgres error codes.
const (
	codeNoRows        = "PGRST116"
	codeUniqueViolate = "23505"
	codeFKViolate     = "23503"
)

func parseError(status int, body []byte) *Error {
	var raw struct {
		Code             json.RawMessage `json:"code"`
		ErrorCode        string          `json:"error_code"`
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Hint             string          `json:"hint"`
	}
	e := &Error{StatusCode: status}
	if err := json.Unmarshal(body, &raw); err != nil {
		e.Message = http.StatusText(status)
		return e
	}

	// PostgREST sends code as a string, GoTrue as a number.
	var code string
	if err := json.Unmarshal(raw.Code, &code); err == nil {
		e.Code = code
	}
	if raw.ErrorCode != "" {
		e.Code = raw.ErrorCode
	} else if e.Code == "" && raw.Error != "" {
		e.Code = raw.Error
	}

	for _, m := range []string{raw.Message, raw.Msg, raw.ErrorDescription, raw.Error} {
		if m != "" {
			e.Message = m
			break
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	e.Hint = raw.Hint
	return e
}

// IsNotFound reports whether err means "no such row/object".
func IsNotFound(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == codeNoRows || e.StatusCode == http.StatusNotFound
}

// IsConflict reports a unique-constraint violation.
func IsConflict(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == codeUniqueViolate || (e.StatusCode == http.StatusConflict && e.Code != codeFKViolate)
}

// IsForeignKey reports a foreign-key violation (referenced row missing).
func IsForeignKey(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == codeFKViolate
}

// IsAuthError reports a rejected session, token or credential.
func IsAuthError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	switch e.Code {
	case "invalid_grant", "bad_jwt", "session_not_found", "session_expired",
		"refresh_token_not_found", "refresh_token_already_used",
		"mfa_verification_failed", "mfa_challenge_expired", "mfa_factor_not_found",
		"flow_state_not_found", "flow_state_expired":
		return true
	}
	return false
}
