// Package providers holds what every registry integration shares: the failure
// taxonomy the lookup service translates into domain errors.
package providers

import (
	"errors"
	"strings"
)

// ErrorCategory classifies a registry failure without exposing HTTP or SOAP details.
type ErrorCategory string

const (
	ErrorTimeout          ErrorCategory = "timeout"           // no answer within the upstream timeout
	ErrorProviderOutage   ErrorCategory = "provider_outage"   // connection failure or 5xx
	ErrorAuthentication   ErrorCategory = "authentication"    // key rejected, no session issued
	ErrorBadData          ErrorCategory = "bad_data"          // unreadable body or 4xx
	ErrorContractMismatch ErrorCategory = "contract_mismatch" // SOAP fault, unexpected shape
	ErrorInternal         ErrorCategory = "internal"
)

// ErrNoSession is returned when a session-bound call is attempted without a sid.
var ErrNoSession = errors.New("registry session is not established")

type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Err        error
}

func NewProviderError(category ErrorCategory, providerID, message string, err error) *ProviderError {
	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Err:        err,
	}
}

// Error reads "<provider>: <message>[: <cause>]".
func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.ProviderID)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying later could succeed.
func (e *ProviderError) Temporary() bool {
	return e.Category == ErrorTimeout || e.Category == ErrorProviderOutage
}

// GetCategory returns the category of the first ProviderError in err's chain,
// or ErrorInternal.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// IsTemporary reports whether err is a timeout or an outage.
func IsTemporary(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Temporary()
}
