package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "github.com/maciegg5/regon-search/pkg/domain-errors"
)

// Validatable is implemented by request types that check themselves after decoding.
type Validatable interface {
	Validate() error
}

// Decode decodes a JSON request body and validates it without writing a response.
// Decoding failures are CodeBadRequest; a plain error from Validate() becomes
// CodeValidation, while domain errors keep their code.
func Decode[T any](r *http.Request) (*T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if err := validate(&req); err != nil {
		if _, ok := dErrors.CodeOf(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	}
	return &req, nil
}

func validate(req any) error {
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}
