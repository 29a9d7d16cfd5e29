package bill

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned for receipt files that are not jpg, jpeg or png
	ErrInvalidFormat = errors.New("invalid receipt format")

	// ErrNotFound is returned when a bill or receipt does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidBill is returned when a bill is missing required fields
	ErrInvalidBill = errors.New("invalid bill")
)

// RemoteError is a failure reported by the data-access layer with an HTTP-style status.
// Err, when set, is the local error the status stands for.
type RemoteError struct {
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("Erreur %d", e.StatusCode)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Error codes exchanged over the JSON API
const (
	CodeInvalidFormat = "invalid_format"
	CodeInvalidBill   = "invalid_bill"
	CodeNotFound      = "not_found"
)

// ErrorCode returns the API code for err, or "" for unclassified errors
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFormat):
		return CodeInvalidFormat
	case errors.Is(err, ErrInvalidBill):
		return CodeInvalidBill
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return ""
	}
}

// ErrorForCode is the inverse of ErrorCode
func ErrorForCode(code string) error {
	switch code {
	case CodeInvalidFormat:
		return ErrInvalidFormat
	case CodeInvalidBill:
		return ErrInvalidBill
	case CodeNotFound:
		return ErrNotFound
	default:
		return nil
	}
}
