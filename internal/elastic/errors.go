package elastic

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("elasticsearch returned %s", e.Status)
	}
	return fmt.Sprintf("elasticsearch returned %s: %s", e.Status, e.Body)
}

// IsNotFound reports whether err carries a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
