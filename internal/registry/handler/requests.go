package handler

import (
	"github.com/maciegg5/regon-search/pkg/domain"
	dErrors "github.com/maciegg5/regon-search/pkg/domain-errors"
)

// LookupRequest is the body of POST /api/regon.
type LookupRequest struct {
	NIP string `json:"nip"`

	parsed domain.NIP
}

// Validate normalizes and checks the NIP.
func (r *LookupRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	nip, err := domain.ParseNIP(r.NIP)
	if err != nil {
		return err
	}
	r.parsed = nip
	return nil
}

// ParsedNIP returns the NIP accepted by Validate.
func (r *LookupRequest) ParsedNIP() domain.NIP {
	return r.parsed
}
