// Package handler exposes the registry lookup over HTTP.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maciegg5/regon-search/internal/registry/metrics"
	"github.com/maciegg5/regon-search/internal/registry/models"
	"github.com/maciegg5/regon-search/pkg/domain"
	dErrors "github.com/maciegg5/regon-search/pkg/domain-errors"
	"github.com/maciegg5/regon-search/pkg/platform/httputil"
	request "github.com/maciegg5/regon-search/pkg/platform/middleware/request"
)

// Route is the function route served by the Azure Functions host.
const Route = "/api/regon"

// Service looks entities up by NIP.
type Service interface {
	Lookup(ctx context.Context, nip domain.NIP) (*models.EntityReport, error)
}

type Handler struct {
	service      Service
	logger       *slog.Logger
	metrics      *metrics.Metrics
	exposeErrors bool
}

// Option configures the Handler.
type Option func(*Handler)

// WithMetrics records invalid lookups, which never reach the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithExposeErrors controls whether 500 responses carry the failure cause.
func WithExposeErrors(expose bool) Option {
	return func(h *Handler) {
		h.exposeErrors = expose
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger, exposeErrors: true}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.With(request.RecoveryWith(h.logger, h.writePanic)).Post(Route, h.HandleLookup)
}

// HandleLookup resolves {"nip": "..."} to {"podstawowe": {...}, "pkd": [...]}.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(r)

	req, err := httputil.Decode[LookupRequest](r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid lookup request", "error", err, "request_id", requestID)
		h.metrics.RecordLookup(metrics.LookupInvalid)
		httputil.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: MsgInvalidNIP})
		return
	}

	report, err := h.service.Lookup(ctx, req.ParsedNIP())
	if err != nil {
		h.writeLookupError(ctx, w, err, req.ParsedNIP(), requestID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) writeLookupError(ctx context.Context, w http.ResponseWriter, err error, nip domain.NIP, requestID string) {
	code, _ := dErrors.CodeOf(err)

	switch status := httputil.StatusFor(code); status {
	case http.StatusNotFound:
		h.logger.InfoContext(ctx, "entity not found", "nip", nip.Redacted(), "request_id", requestID)
		httputil.WriteJSON(w, status, ErrorResponse{Error: MsgNotFound})
	case http.StatusBadRequest:
		httputil.WriteJSON(w, status, ErrorResponse{Error: MsgInvalidNIP})
	default:
		h.logger.ErrorContext(ctx, "registry lookup failed",
			"error", err,
			"code", code,
			"nip", nip.Redacted(),
			"request_id", requestID,
		)
		msg := MsgServerError
		if h.exposeErrors {
			msg += ": " + err.Error()
		}
		httputil.WriteJSON(w, status, ErrorResponse{Error: msg})
	}
}

// writePanic answers a panic on the lookup route with the usual 500 body.
func (h *Handler) writePanic(w http.ResponseWriter, _ *http.Request, rec any) {
	msg := MsgServerError
	if h.exposeErrors {
		msg += ": " + fmt.Sprint(rec)
	}
	httputil.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msg})
}
