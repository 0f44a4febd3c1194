// Package tracer keeps OpenTelemetry out of the lookup code. Spans carry a
// hash of the NIP, never the NIP itself.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Span is an in-flight unit of work. End must be called exactly once.
type Span interface {
	// End closes the span; a non-nil err marks it failed.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer starts spans. Implementations are safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int stores value as int64, the width OpenTelemetry uses.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: int64(value)}
}

// NewNoop returns a Tracer whose spans record nothing.
func NewNoop() Tracer {
	return nop{}
}

type nop struct{}

func (nop) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, nop{}
}

func (nop) End(error)                     {}
func (nop) SetAttributes(...Attribute)    {}
func (nop) AddEvent(string, ...Attribute) {}

// HashNIP returns a truncated SHA-256 of the NIP so traces correlate without
// carrying the identifier itself.
func HashNIP(nip string) string {
	if nip == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(nip))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the registry lookup.
const (
	SpanLookup   = "registry.lookup"
	SpanSOAPCall = "registry.soap.call"
)

// Attribute keys used by the registry lookup.
const (
	AttrProvider       = "registry.provider"
	AttrNIPHash        = "nip_hash"
	AttrNIPChecksumOK  = "nip.checksum_valid"
	AttrOperation      = "soap.operation"
	AttrHTTPStatus     = "http.status_code"
	AttrEntityType     = "entity.type"
	AttrReportName     = "report.name"
	AttrPKDCount       = "pkd.count"
	AttrFieldCount     = "fields.count"
	AttrEntityFound    = "entity.found"
	AttrRegistryNotice = "registry.notice_code"
	AttrErrorCategory  = "registry.error_category"
)

// Event names used by the registry lookup.
const (
	EventLoggedIn  = "session.opened"
	EventLoggedOut = "session.closed"
)
