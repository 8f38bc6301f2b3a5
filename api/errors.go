package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/slushie/slushie-node/log"
)

// Error is the custom API error type. It satisfies the error interface and
// knows how to write itself as a JSON response with the appropriate HTTP
// status code.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// Error returns a human-readable description of the error.
func (e Error) Error() string {
	return e.Err.Error()
}

// WithErr returns a copy of the Error with the underlying error wrapped with
// additional detail.
func (e Error) WithErr(err error) Error {
	e.Err = fmt.Errorf("%v: %w", e.Err, err)
	return e
}

// MarshalJSON implements the json.Marshaler interface, returning a body of
// the form {"error":"message","code":40001}.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}{
		Err:  e.Err.Error(),
		Code: e.Code,
	})
}

// Write replies to the request with the error message and HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	body, err := json.Marshal(e)
	if err != nil {
		log.Warnw("failed to marshal error response", "error", err)
		http.Error(w, e.Err.Error(), e.HTTPstatus)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(body); err != nil {
		log.Warnw("failed to write error response", "error", err)
	}
}
