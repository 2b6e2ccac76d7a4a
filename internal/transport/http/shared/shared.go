// Package shared holds the JSON envelope helpers used by every handler.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "tokensafe/pkg/domain-errors"
)

// WriteJSON encodes a response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into the JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := dErrors.CodeInternal
	message := "internal error"

	var de *dErrors.Error
	if errors.As(err, &de) {
		status = dErrors.ToHTTPStatus(de.Code)
		code = de.Code
		message = de.Message
	}
	WriteJSON(w, status, map[string]string{
		"error":   string(code),
		"message": message,
	})
}
