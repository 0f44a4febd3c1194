package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "github.com/maciegg5/regon-search/pkg/domain-errors"
)

// WriteJSON writes v as JSON with the given status. Non-ASCII text and HTML
// characters are written as-is.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v) // the status is already sent
}

// StatusFor maps a domain code onto the lookup API's status set: 404 for a
// miss, 400 for bad input, 500 for everything else including upstream outages.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes {"error": "<code>"}. Errors without a domain code are internal.
func WriteError(w http.ResponseWriter, err error) {
	code, ok := dErrors.CodeOf(err)
	if !ok {
		code = dErrors.CodeInternal
	}
	WriteJSON(w, StatusFor(code), map[string]string{"error": string(code)})
}
