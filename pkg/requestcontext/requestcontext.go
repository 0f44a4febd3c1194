// Package requestcontext carries request-scoped values set by middleware.
package requestcontext

import "context"

type (
	contextKeyRequestID struct{}
	contextKeyClient    struct{}
)

// ClientMetadata describes the caller of a request.
type ClientMetadata struct {
	IP        string
	UserAgent string
	Client    string // short label such as "Chrome on Linux"
}

// WithRequestID stores the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, requestID)
}

// RequestID returns the request ID, or "" when none was set.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID{}).(string); ok {
		return id
	}
	return ""
}

// WithClientMetadata stores caller metadata.
func WithClientMetadata(ctx context.Context, md ClientMetadata) context.Context {
	return context.WithValue(ctx, contextKeyClient{}, md)
}

func clientMetadata(ctx context.Context) ClientMetadata {
	md, _ := ctx.Value(contextKeyClient{}).(ClientMetadata)
	return md
}

// ClientIP returns the caller IP, or "".
func ClientIP(ctx context.Context) string { return clientMetadata(ctx).IP }

// UserAgent returns the raw User-Agent header, or "".
func UserAgent(ctx context.Context) string { return clientMetadata(ctx).UserAgent }

// Client returns the parsed client label, or "".
func Client(ctx context.Context) string { return clientMetadata(ctx).Client }
