package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"edge-tradesim/internal/apperr"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// ReadJSON decodes a single JSON object from the request body and runs
// struct validation on it. Validation failures wrap apperr.ErrInvalidInput.
func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", apperr.ErrInvalidInput)
		}
		// field decoders such as money.Money report their own kind
		if apperr.IsDomain(err) {
			return err
		}
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[httputil] encode response: %v", err)
	}
}

// WriteError maps domain errors to their status and kind. Anything else is
// logged and reported as a bare 500.
func WriteError(w http.ResponseWriter, err error) {
	if !apperr.IsDomain(err) {
		log.Printf("[httputil] internal error: %v", err)
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error", Kind: "internal"})
		return
	}
	WriteJSON(w, apperr.HTTPStatus(err), ErrorResponse{Error: err.Error(), Kind: apperr.Kind(err)})
}
