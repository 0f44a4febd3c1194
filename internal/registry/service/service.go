// Package service runs the registry lookup: login, search, optional full
// report, flatten, logout.
package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/maciegg5/regon-search/internal/registry/flatten"
	"github.com/maciegg5/regon-search/internal/registry/metrics"
	"github.com/maciegg5/regon-search/internal/registry/models"
	"github.com/maciegg5/regon-search/internal/registry/providers"
	"github.com/maciegg5/regon-search/internal/registry/tracer"
	"github.com/maciegg5/regon-search/pkg/domain"
	dErrors "github.com/maciegg5/regon-search/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mock_registry.go -package=mocks

// Registry is the session-based BIR registry the lookup runs against.
type Registry interface {
	Login(ctx context.Context) (domain.SessionID, error)
	Search(ctx context.Context, sid domain.SessionID, nip domain.NIP) (string, error)
	FullReport(ctx context.Context, sid domain.SessionID, regon domain.REGON, report models.ReportName) (string, error)
	GetValue(ctx context.Context, sid domain.SessionID, name string) (string, error)
	Logout(ctx context.Context, sid domain.SessionID) (bool, error)
}

const defaultLogoutTimeout = 5 * time.Second

// Service looks entities up by NIP.
type Service struct {
	registry      Registry
	metrics       *metrics.Metrics
	tracer        tracer.Tracer
	logger        *slog.Logger
	logoutTimeout time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used for lookup spans.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLogoutTimeout bounds the best-effort logout issued after each lookup.
func WithLogoutTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.logoutTimeout = d
	}
}

// New creates a lookup service.
func New(registry Registry, opts ...Option) *Service {
	s := &Service{
		registry:      registry,
		tracer:        tracer.NewNoop(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		logoutTimeout: defaultLogoutTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup finds the entity registered under nip.
//
// Returns CodeNotFound when the search yields nothing. Any other failure
// is CodeUnavailable (timeouts, outages) or CodeInternal, with the cause
// in the message. A missing or unreadable full report is not a failure: the
// report then carries no PKD entries.
func (s *Service) Lookup(ctx context.Context, nip domain.NIP) (report *models.EntityReport, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanLookup,
		tracer.String(tracer.AttrNIPHash, tracer.HashNIP(nip.String())),
		tracer.Bool(tracer.AttrNIPChecksumOK, nip.ChecksumValid()),
	)
	defer func() {
		span.End(err)
	}()

	if !nip.ChecksumValid() {
		s.logger.InfoContext(ctx, "nip checksum mismatch, querying registry anyway", "nip", nip.Redacted())
	}

	sid, err := s.registry.Login(ctx)
	if err != nil {
		return nil, s.stepFailed(span, err, "login")
	}
	span.AddEvent(tracer.EventLoggedIn)
	defer s.logout(ctx, span, sid)

	raw, err := s.registry.Search(ctx, sid, nip)
	if err != nil {
		return nil, s.stepFailed(span, err, "search")
	}
	if strings.TrimSpace(raw) == "" {
		span.SetAttributes(tracer.Bool(tracer.AttrEntityFound, false))
		s.logNotice(ctx, span, sid, nip)
		s.metrics.RecordLookup(metrics.LookupNotFound)
		return nil, dErrors.New(dErrors.CodeNotFound, "entity not found")
	}

	report = models.NewEntityReport(flatten.Fields(raw))
	regon := domain.REGON(report.Podstawowe[models.FieldRegon])
	entityType := report.Podstawowe[models.FieldType]
	span.SetAttributes(
		tracer.Bool(tracer.AttrEntityFound, true),
		tracer.String(tracer.AttrEntityType, entityType),
		tracer.Int(tracer.AttrFieldCount, len(report.Podstawowe)),
	)

	if !regon.IsNil() {
		name := models.ReportFor(entityType)
		span.SetAttributes(tracer.String(tracer.AttrReportName, name.String()))
		s.metrics.RecordReport(name.String())

		full, err := s.registry.FullReport(ctx, sid, regon, name)
		if err != nil {
			return nil, s.stepFailed(span, err, "full report")
		}
		if full != "" {
			report.PKD = flatten.PKDList(full)
		}
	}

	span.SetAttributes(tracer.Int(tracer.AttrPKDCount, len(report.PKD)))
	s.metrics.ObservePKDEntries(len(report.PKD))
	s.metrics.RecordLookup(metrics.LookupFound)
	s.logger.InfoContext(ctx, "registry lookup completed",
		"nip", nip.Redacted(),
		"entity_type", entityType,
		"fields", len(report.Podstawowe),
		"pkd", len(report.PKD),
	)
	return report, nil
}

// logNotice records the registry's explanation for an empty search.
// KomunikatKod 4 means no entity matched; any other code also gets its text.
func (s *Service) logNotice(ctx context.Context, span tracer.Span, sid domain.SessionID, nip domain.NIP) {
	code, err := s.registry.GetValue(ctx, sid, models.ParamMessageCode)
	if err != nil {
		s.logger.DebugContext(ctx, "could not read registry notice", "error", err)
		return
	}
	span.SetAttributes(tracer.String(tracer.AttrRegistryNotice, code))

	attrs := []any{"nip", nip.Redacted(), "notice_code", code}
	if code != "" && code != models.NoticeNoEntity {
		text, err := s.registry.GetValue(ctx, sid, models.ParamMessageText)
		if err != nil {
			s.logger.DebugContext(ctx, "could not read registry notice text", "error", err)
		} else if text != "" {
			attrs = append(attrs, "notice_text", text)
		}
	}
	s.logger.InfoContext(ctx, "registry search returned no entity", attrs...)
}

// logout closes the session. Failures are logged only.
func (s *Service) logout(ctx context.Context, span tracer.Span, sid domain.SessionID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logoutTimeout)
	defer cancel()

	ok, err := s.registry.Logout(ctx, sid)
	if err != nil {
		s.logger.WarnContext(ctx, "registry logout failed", "error", err)
		return
	}
	if !ok {
		s.logger.WarnContext(ctx, "registry rejected logout")
		return
	}
	span.AddEvent(tracer.EventLoggedOut)
}

// stepFailed counts and traces a failed registry step and returns its domain error.
func (s *Service) stepFailed(span tracer.Span, err error, step string) error {
	s.metrics.RecordLookup(metrics.LookupError)
	span.SetAttributes(tracer.String(tracer.AttrErrorCategory, string(providers.GetCategory(err))))
	return upstreamError(err, step+" failed")
}

// upstreamError translates a registry failure into a domain error that keeps
// the cause in its message.
func upstreamError(err error, msg string) error {
	code := dErrors.CodeInternal
	if providers.IsTemporary(err) {
		code = dErrors.CodeUnavailable
	}
	return dErrors.Wrap(err, code, msg+": "+err.Error())
}
