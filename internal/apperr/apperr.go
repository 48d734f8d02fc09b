// Package apperr holds the error kinds shared by the ledger, trade book,
// settlement and request workflow. Callers match with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidBounds     = errors.New("invalid bounds")
	ErrInvalidState      = errors.New("invalid state")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
)

var kinds = []struct {
	err    error
	name   string
	status int
}{
	{ErrInvalidAmount, "invalid_amount", http.StatusBadRequest},
	{ErrInsufficientFunds, "insufficient_funds", http.StatusConflict},
	{ErrInvalidBounds, "invalid_bounds", http.StatusBadRequest},
	{ErrInvalidState, "invalid_state", http.StatusConflict},
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrInvalidInput, "invalid_input", http.StatusBadRequest},
}

// Kind returns the wire name of the domain error wrapped by err, or
// "internal" when err carries none of the known kinds.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// IsDomain reports whether err is an expected domain violation rather than
// an infrastructure failure.
func IsDomain(err error) bool {
	return Kind(err) != "internal"
}
