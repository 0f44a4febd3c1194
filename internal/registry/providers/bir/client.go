// Package bir implements the GUS BIR public registry client (UslugaBIRzewnPubl).
package bir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/maciegg5/regon-search/internal/registry/models"
	"github.com/maciegg5/regon-search/internal/registry/providers"
	"github.com/maciegg5/regon-search/internal/registry/providers/adapters"
	"github.com/maciegg5/regon-search/internal/registry/service"
	"github.com/maciegg5/regon-search/pkg/domain"
)

// ProviderID identifies the BIR registry in errors, logs and metrics.
const ProviderID = "gus-bir"

// Defaults used when configuration leaves them unset.
const (
	DefaultEndpoint = "https://wyszukiwarkaregon.stat.gov.pl/wsBIR/UslugaBIRzewnPubl.svc"
	DefaultAPIKey   = "c38c77059648411cb578"
)

// Operation names as they appear in SOAP actions and result elements.
const (
	OpLogin      = "Zaloguj"
	OpSearch     = "DaneSzukajPodmioty"
	OpFullReport = "DanePobierzPelnyRaport"
	OpLogout     = "Wyloguj"
	OpGetValue   = "GetValue"
)

const (
	actionPrefix   = "http://CIS/BIR/PUBL/2014/07/IUslugaBIRzewnPubl/"
	actionGetValue = "http://CIS/BIR/2014/07/IUslugaBIR/GetValue"
)

// Action returns the SOAPAction URI for a public registry operation.
func Action(operation string) string {
	if operation == OpGetValue {
		return actionGetValue
	}
	return actionPrefix + operation
}

// StatusUslugi values.
const (
	ServiceAvailable   = "1"
	ServiceUnavailable = "2"
	ServiceMaintenance = "3"
)

// ErrServiceDown is returned by Health when the registry reports it is not serving.
var ErrServiceDown = errors.New("registry reports service not available")

// ErrDegraded is returned by Health while the adapter's breaker is open.
var ErrDegraded = errors.New("registry calls failing repeatedly")

// Client talks to the BIR registry through a SOAP adapter.
type Client struct {
	soap   *adapters.SOAPAdapter
	apiKey string
	logger *slog.Logger
}

// Ensure Client implements Registry
var _ service.Registry = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithLogger sets the logger used for protocol-level diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a BIR client. A blank apiKey falls back to DefaultAPIKey.
func New(soap *adapters.SOAPAdapter, apiKey string, opts ...Option) *Client {
	if strings.TrimSpace(apiKey) == "" {
		apiKey = DefaultAPIKey
	}
	c := &Client{
		soap:   soap,
		apiKey: apiKey,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login opens a registry session (Zaloguj) and returns its sid.
// Any non-200 response, fault, or blank result is an error.
func (c *Client) Login(ctx context.Context) (domain.SessionID, error) {
	body := "<ns:Zaloguj><ns:pKluczUzytkownika>" + adapters.Escape(c.apiKey) + "</ns:pKluczUzytkownika></ns:Zaloguj>"
	reply, err := c.call(ctx, OpLogin, body, "")
	if err != nil {
		return "", err
	}
	if !reply.OK() {
		return "", adapters.StatusError(ProviderID, OpLogin, reply.StatusCode)
	}

	sid, err := reply.Result(OpLogin + "Result")
	if err != nil {
		return "", c.resultError(OpLogin, err)
	}
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return "", providers.NewProviderError(
			providers.ErrorAuthentication,
			ProviderID,
			"could not extract SID from login response",
			nil,
		)
	}
	return domain.SessionID(sid), nil
}

// Search runs DaneSzukajPodmioty by NIP and returns the result document.
// A non-200 response or blank result yields "" without error.
func (c *Client) Search(ctx context.Context, sid domain.SessionID, nip domain.NIP) (string, error) {
	if sid.IsNil() {
		return "", providers.ErrNoSession
	}
	body := "<ns:DaneSzukajPodmioty><ns:pParametryWyszukiwania><dat:Nip>" +
		adapters.Escape(nip.String()) +
		"</dat:Nip></ns:pParametryWyszukiwania></ns:DaneSzukajPodmioty>"
	reply, err := c.call(ctx, OpSearch, body, sid)
	if err != nil {
		return "", err
	}
	if !reply.OK() {
		c.logger.WarnContext(ctx, "registry search returned non-200", "status", reply.StatusCode)
		return "", nil
	}

	result, err := reply.Result(OpSearch + "Result")
	if err != nil {
		return "", c.resultError(OpSearch, err)
	}
	if strings.TrimSpace(result) == "" {
		return "", nil
	}
	return result, nil
}

// FullReport runs DanePobierzPelnyRaport for a REGON and returns the result document.
// A non-200 response or an unreadable reply yields "" without error.
func (c *Client) FullReport(ctx context.Context, sid domain.SessionID, regon domain.REGON, report models.ReportName) (string, error) {
	if sid.IsNil() {
		return "", providers.ErrNoSession
	}
	body := "<ns:DanePobierzPelnyRaport><ns:pRegon>" + adapters.Escape(regon.String()) +
		"</ns:pRegon><ns:pNazwaRaportu>" + adapters.Escape(report.String()) +
		"</ns:pNazwaRaportu></ns:DanePobierzPelnyRaport>"
	reply, err := c.call(ctx, OpFullReport, body, sid)
	if err != nil {
		return "", err
	}
	if !reply.OK() {
		c.logger.WarnContext(ctx, "registry full report returned non-200",
			"status", reply.StatusCode,
			"report", report,
		)
		return "", nil
	}

	result, err := reply.Result(OpFullReport + "Result")
	if err != nil {
		c.logger.WarnContext(ctx, "registry full report unreadable", "report", report, "error", err)
		return "", nil
	}
	if strings.TrimSpace(result) == "" {
		return "", nil
	}
	return result, nil
}

// GetValue reads a diagnostic parameter. The sid may be empty for
// parameters that do not need a session, such as StatusUslugi.
func (c *Client) GetValue(ctx context.Context, sid domain.SessionID, name string) (string, error) {
	body := `<bir:GetValue xmlns:bir="` + adapters.NamespaceBIR + `"><bir:pNazwaParametru>` +
		adapters.Escape(name) + `</bir:pNazwaParametru></bir:GetValue>`
	reply, err := c.call(ctx, OpGetValue, body, sid)
	if err != nil {
		return "", err
	}
	if !reply.OK() {
		return "", adapters.StatusError(ProviderID, OpGetValue, reply.StatusCode)
	}
	value, err := reply.Result(OpGetValue + "Result")
	if err != nil {
		return "", c.resultError(OpGetValue, err)
	}
	return strings.TrimSpace(value), nil
}

// Logout closes the session (Wyloguj) and reports whether the registry accepted it.
func (c *Client) Logout(ctx context.Context, sid domain.SessionID) (bool, error) {
	if sid.IsNil() {
		return false, providers.ErrNoSession
	}
	body := "<ns:Wyloguj><ns:pIdentyfikatorSesji>" + adapters.Escape(sid.String()) +
		"</ns:pIdentyfikatorSesji></ns:Wyloguj>"
	reply, err := c.call(ctx, OpLogout, body, sid)
	if err != nil {
		return false, err
	}
	if !reply.OK() {
		return false, adapters.StatusError(ProviderID, OpLogout, reply.StatusCode)
	}
	result, err := reply.Result(OpLogout + "Result")
	if err != nil {
		return false, c.resultError(OpLogout, err)
	}
	return strings.EqualFold(strings.TrimSpace(result), "true"), nil
}

// Health checks StatusUslugi and fails unless the registry reports it is available.
// While recent calls keep failing it reports ErrDegraded without calling out.
func (c *Client) Health(ctx context.Context) error {
	if c.soap.Degraded() {
		return ErrDegraded
	}
	status, err := c.GetValue(ctx, "", models.ParamServiceStatus)
	if err != nil {
		return err
	}
	if status != ServiceAvailable {
		return fmt.Errorf("%w (StatusUslugi=%q)", ErrServiceDown, status)
	}
	return nil
}

func (c *Client) call(ctx context.Context, operation, body string, sid domain.SessionID) (*adapters.Reply, error) {
	return c.soap.Call(ctx, adapters.Call{
		Operation: operation,
		Action:    Action(operation),
		Body:      body,
		SessionID: sid.String(),
	})
}

// resultError classifies a failure to read a result element.
func (c *Client) resultError(operation string, err error) error {
	var fault *adapters.Fault
	if errors.As(err, &fault) {
		return providers.NewProviderError(providers.ErrorContractMismatch, ProviderID, operation+": registry returned a fault", err)
	}
	return providers.NewProviderError(providers.ErrorBadData, ProviderID, operation+": unreadable response", err)
}
