package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/maciegg5/regon-search/internal/registry/metrics"
	"github.com/maciegg5/regon-search/internal/registry/providers"
	"github.com/maciegg5/regon-search/internal/registry/tracer"
	"github.com/maciegg5/regon-search/pkg/platform/circuit"
)

//go:generate mockgen -source=soap.go -destination=mocks/mock_http_doer.go -package=mocks

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SOAPContentType is the SOAP 1.2 request media type.
const SOAPContentType = "application/soap+xml; charset=utf-8"

// maxResponseBytes caps how much of a registry response is read into memory.
const maxResponseBytes = 16 << 20

// Call describes one SOAP operation.
type Call struct {
	Operation string // short name for logs and metrics, e.g. "Zaloguj"
	Action    string // full SOAPAction / WS-Addressing action URI
	Body      string // body fragment; interpolated values must already be escaped
	SessionID string // sent as the "sid" header when non-empty
}

// Reply is the raw outcome of a SOAP call that reached the registry.
type Reply struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports whether the registry answered with HTTP 200.
func (r *Reply) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Result extracts the SOAP envelope from the (possibly MTOM) body and returns
// the text of the named result element.
func (r *Reply) Result(element string) (string, error) {
	envelope, err := ExtractEnvelope(r.ContentType, r.Body)
	if err != nil {
		return "", err
	}
	return ResultText(envelope, element)
}

// SOAPAdapter posts SOAP envelopes to a single registry endpoint.
type SOAPAdapter struct {
	id       string
	endpoint string
	client   HTTPDoer
	breaker  *circuit.Breaker
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	logger   *slog.Logger
}

// SOAPAdapterConfig configures a SOAP adapter
type SOAPAdapterConfig struct {
	ID         string
	Endpoint   string
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Breaker    *circuit.Breaker // optional; tracks consecutive upstream outages
	Metrics    *metrics.Metrics
	Tracer     tracer.Tracer
	Logger     *slog.Logger
}

// NewSOAPAdapter creates a new SOAP protocol adapter
func NewSOAPAdapter(cfg SOAPAdapterConfig) *SOAPAdapter {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Tracer == nil {
		cfg.Tracer = tracer.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &SOAPAdapter{
		id:       cfg.ID,
		endpoint: cfg.Endpoint,
		client:   selectHTTPClient(cfg),
		breaker:  cfg.Breaker,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
		logger:   cfg.Logger,
	}
}

func selectHTTPClient(cfg SOAPAdapterConfig) HTTPDoer {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	// Each invocation performs a handful of sequential calls and then ends;
	// keep-alive connections would outlive it.
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &http.Transport{Proxy: http.ProxyFromEnvironment, DisableKeepAlives: true},
	}
}

// ID returns the provider identifier
func (a *SOAPAdapter) ID() string {
	return a.id
}

// Degraded reports whether recent calls failed often enough to trip the breaker.
func (a *SOAPAdapter) Degraded() bool {
	return a.breaker.IsOpen()
}

// Call posts the envelope for call and returns the registry's reply.
// Non-200 statuses are not errors here; callers decide what they mean.
func (a *SOAPAdapter) Call(ctx context.Context, call Call) (reply *Reply, err error) {
	ctx, span := a.tracer.Start(ctx, tracer.SpanSOAPCall,
		tracer.String(tracer.AttrOperation, call.Operation),
	)
	start := time.Now()
	outcome := metrics.OutcomeSuccess
	status := 0
	defer func() {
		elapsed := time.Since(start)
		a.metrics.RecordSOAPCall(call.Operation, outcome, elapsed.Seconds())
		a.recordHealth(ctx, outcome, status)
		a.logger.DebugContext(ctx, "soap call finished",
			"operation", call.Operation,
			"outcome", outcome,
			"duration_ms", elapsed.Milliseconds(),
		)
		span.End(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint,
		bytes.NewReader(Envelope(a.endpoint, call.Action, call.Body)))
	if err != nil {
		outcome = metrics.OutcomeTransportError
		return nil, providers.NewProviderError(
			providers.ErrorInternal,
			a.id,
			"failed to create request",
			err,
		)
	}

	req.Header.Set("Content-Type", SOAPContentType)
	req.Header.Set("SOAPAction", call.Action)
	if call.SessionID != "" {
		req.Header.Set("sid", call.SessionID)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			outcome = metrics.OutcomeTimeout
			return nil, providers.NewProviderError(
				providers.ErrorTimeout,
				a.id,
				call.Operation+": request timeout",
				err,
			)
		}
		outcome = metrics.OutcomeTransportError
		return nil, providers.NewProviderError(
			providers.ErrorProviderOutage,
			a.id,
			call.Operation+": failed to execute request",
			err,
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		outcome = metrics.OutcomeTransportError
		return nil, providers.NewProviderError(
			providers.ErrorBadData,
			a.id,
			call.Operation+": failed to read response",
			err,
		)
	}

	status = resp.StatusCode
	span.SetAttributes(tracer.Int(tracer.AttrHTTPStatus, resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		outcome = metrics.OutcomeHTTPError
	}

	return &Reply{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// recordHealth feeds the breaker. Timeouts, transport failures and 5xx
// replies count against the registry; anything else counts for it.
func (a *SOAPAdapter) recordHealth(ctx context.Context, outcome string, status int) {
	if a.breaker == nil {
		return
	}
	failed := outcome == metrics.OutcomeTimeout || outcome == metrics.OutcomeTransportError || status >= 500
	if changed, state := a.breaker.Record(!failed); changed {
		a.logger.WarnContext(ctx, "registry circuit state changed",
			"provider", a.id,
			"breaker", a.breaker.Name(),
			"state", state.String(),
		)
	}
}

// StatusError builds the error reported when an operation requires HTTP 200.
func StatusError(providerID, operation string, status int) *providers.ProviderError {
	category := providers.ErrorProviderOutage
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		category = providers.ErrorAuthentication
	case status == http.StatusNotFound:
		category = providers.ErrorContractMismatch
	case status >= 400 && status < 500:
		category = providers.ErrorBadData
	}
	return providers.NewProviderError(category, providerID, fmt.Sprintf("%s: HTTP error %d", operation, status), nil)
}
