package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"crisisConnect/pkg/e"
)

// MaxBodyBytes caps request bodies accepted by DecodeJSON.
const MaxBodyBytes = 1 << 20

// DecodeJSON reads exactly one JSON object into target. Unknown fields and
// trailing data are rejected as invalid input.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return e.NewValidationError("body", "is required")
		}
		return e.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return e.NewValidationError("body", "must contain a single JSON object")
	}
	return nil
}
