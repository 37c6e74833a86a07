package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// Error pairs an HTTP status and a stable error code with the underlying cause.
type Error struct {
	Status  int
	Code    string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// WriteError renders err. Errors that are not an *Error become a 500 without leaking the cause.
func WriteError(w http.ResponseWriter, err error) {
	var he *Error
	if errors.As(err, &he) {
		JSONError(w, he.Status, he.Code, he.Details)
		return
	}
	JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}
