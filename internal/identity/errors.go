package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// CodeNetwork marks failures that never reached the identity service.
const CodeNetwork = "network_error"

const (
	GenericMessage = "An unexpected error occurred. Please try again."
	NetworkMessage = "Network error. Please check your connection and try again."
)

// Error is a failure reported by, or on the way to, the identity service.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("identity %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("identity %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var messages = map[string]string{
	"invalid_credentials":        "Invalid email or password.",
	"invalid_grant":              "Invalid email or password.",
	"email_not_confirmed":        "Please confirm your email address before signing in.",
	"user_already_exists":        "An account with this email already exists. Please sign in instead.",
	"email_exists":               "An account with this email already exists. Please sign in instead.",
	"weak_password":              "Password is too weak. Use at least 6 characters with letters and numbers.",
	"email_address_invalid":      "Please enter a valid email address.",
	"validation_failed":          "Please enter a valid email address.",
	"user_not_found":             "No account found with this email.",
	"user_banned":                "This account has been disabled. Please contact support.",
	"over_email_send_rate_limit": "Too many emails sent. Please wait a few minutes before trying again.",
	"over_request_rate_limit":    "Too many attempts. Please wait a few minutes before trying again.",
	"otp_expired":                "This code has expired or is invalid. Please request a new one.",
	"otp_disabled":               "Email sign-in is currently unavailable.",
	"signup_disabled":            "New sign-ups are currently disabled.",
	"same_password":              "New password must be different from your current password.",
	"session_not_found":          "Your session has expired. Please sign in again.",
	"session_expired":            "Your session has expired. Please sign in again.",
	"bad_jwt":                    "Your session has expired. Please sign in again.",
	"reauthentication_needed":    "Please sign in again to continue.",
	CodeNetwork:                  NetworkMessage,
}

// Message returns the user-facing text for err. Unknown failures get GenericMessage.
func Message(err error) string {
	var ierr *Error
	if !errors.As(err, &ierr) {
		return GenericMessage
	}
	if msg, ok := messages[ierr.Code]; ok {
		return msg
	}
	if ierr.Status == http.StatusTooManyRequests {
		return messages["over_request_rate_limit"]
	}
	return GenericMessage
}

// StatusOf maps err to the HTTP status the host API reports.
func StatusOf(err error) int {
	var ierr *Error
	if !errors.As(err, &ierr) {
		return http.StatusInternalServerError
	}
	switch {
	case ierr.Code == CodeNetwork:
		return http.StatusBadGateway
	case ierr.Status >= 400 && ierr.Status < 500:
		return ierr.Status
	default:
		return http.StatusBadGateway
	}
}

// IsCode reports whether err is an identity error with the given code.
func IsCode(err error, code string) bool {
	var ierr *Error
	return errors.As(err, &ierr) && ierr.Code == code
}

type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func parseError(status int, data []byte) *Error {
	e := &Error{Status: status, Message: http.StatusText(status)}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return e
	}

	switch {
	case body.ErrorCode != "":
		e.Code = body.ErrorCode
	case body.Error != "":
		e.Code = body.Error
	}
	// older deployments put the code in "code" as a string
	if s, ok := body.Code.(string); ok && e.Code == "" {
		e.Code = s
	}

	for _, m := range []string{body.Msg, body.ErrorDescription, body.Message} {
		if m != "" {
			e.Message = m
			break
		}
	}
	return e
}
