// Package domain provides type-safe identifiers used by the registry lookup.
package domain

import (
	dErrors "github.com/maciegg5/regon-search/pkg/domain-errors"
	s "github.com/maciegg5/regon-search/pkg/string"
	"github.com/maciegg5/regon-search/pkg/validation"
)

// Distinct identifier types so a REGON can never be passed where a NIP is expected.
type (
	// NIP is a Polish taxpayer identification number: 10 ASCII digits.
	NIP string
	// REGON is the statistical registry number (9 or 14 digits) assigned by GUS.
	REGON string
	// SessionID is the opaque session token ("sid") returned by the registry login.
	SessionID string
)

// nipWeights are the official checksum weights for the first nine NIP digits.
var nipWeights = [9]int{6, 5, 7, 2, 3, 4, 5, 6, 7}

// ParseNIP strips hyphens and whitespace and requires exactly 10 digits.
// Use at trust boundaries (handlers, API inputs).
func ParseNIP(raw string) (NIP, error) {
	normalized := s.StripSeparators(raw)
	if err := validation.Var(normalized, "required,len=10,digits"); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "nip "+err.Error())
	}
	return NIP(normalized), nil
}

// ChecksumValid reports whether the last digit matches the weighted mod-11 checksum.
// Lookups do not reject on a bad checksum; the registry is the authority.
func (n NIP) ChecksumValid() bool {
	if len(n) != 10 {
		return false
	}
	sum := 0
	for i, w := range nipWeights {
		sum += int(n[i]-'0') * w
	}
	check := sum % 11
	return check != 10 && check == int(n[9]-'0')
}

// Redacted returns the NIP masked down to its last four digits, safe for logs.
func (n NIP) Redacted() string {
	if len(n) <= 4 {
		return "****"
	}
	return "******" + string(n[len(n)-4:])
}

func (n NIP) String() string        { return string(n) }
func (r REGON) String() string      { return string(r) }
func (id SessionID) String() string { return string(id) }

func (n NIP) IsNil() bool        { return n == "" }
func (r REGON) IsNil() bool      { return r == "" }
func (id SessionID) IsNil() bool { return id == "" }
