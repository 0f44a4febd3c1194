package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maciegg5/regon-search/internal/platform/health"
	"github.com/maciegg5/regon-search/internal/registry/handler"
	"github.com/maciegg5/regon-search/pkg/platform/middleware/metadata"
	request "github.com/maciegg5/regon-search/pkg/platform/middleware/request"
)

// RouterDeps holds everything the router mounts. Nil optional fields are skipped.
type RouterDeps struct {
	Logger       *slog.Logger
	Lookup       *handler.Handler
	Health       *health.Handler      // optional
	Metadata     *metadata.Middleware // optional, defaults to no trusted proxies
	Latency      *request.Metrics     // optional
	Metrics      http.Handler         // optional, mounted at /metrics
	MaxBodyBytes int64
}

// NewRouter wires the lookup function, probes and metrics behind the
// middleware stack.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	md := deps.Metadata
	if md == nil {
		md = metadata.NewMiddleware(nil)
	}

	r.Use(request.Recovery(deps.Logger))
	r.Use(request.RequestID)
	r.Use(md.Handler)
	r.Use(request.Logger(deps.Logger))
	if deps.Latency != nil {
		r.Use(request.LatencyMiddleware(deps.Latency))
	}

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		if deps.MaxBodyBytes > 0 {
			r.Use(request.BodyLimit(deps.MaxBodyBytes))
		}
		deps.Lookup.Register(r)
	})

	return r
}
