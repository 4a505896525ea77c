package kunren

import (
	"errors"
	"fmt"
)

// Error represents an error from the kunren API with the HTTP status code
// and the server's error message.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("kunren: %d: %s", e.StatusCode, e.Message)
}

// IsBadRequest returns true if the error is a 400.
func IsBadRequest(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == 400
	}
	return false
}

// IsModelUnavailable returns true if the error is a 502, meaning the server
// could not reach its model backend.
func IsModelUnavailable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == 502
	}
	return false
}
