package transport

import (
	"errors"
	"fmt"
)

// Error is returned for every failed request: either the request never
// completed (Err is set) or the server answered with a non-2xx status.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err carries an HTTP response with the given status code.
func IsStatus(err error, code int) bool {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Err == nil && terr.StatusCode == code
	}
	return false
}
