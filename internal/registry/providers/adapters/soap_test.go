package adapters_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/maciegg5/regon-search/internal/registry/metrics"
	"github.com/maciegg5/regon-search/internal/registry/providers"
	"github.com/maciegg5/regon-search/internal/registry/providers/adapters"
	adaptersmocks "github.com/maciegg5/regon-search/internal/registry/providers/adapters/mocks"
	"github.com/maciegg5/regon-search/pkg/platform/circuit"
)

const loginAction = "http://CIS/BIR/PUBL/2014/07/IUslugaBIRzewnPubl/Zaloguj"

func TestSOAPAdapter_Call(t *testing.T) {
	t.Run("posts envelope with SOAP headers", func(t *testing.T) {
		var gotHeaders http.Header
		var gotBody string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotHeaders = r.Header.Clone()
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			w.Header().Set("Content-Type", "application/soap+xml; charset=utf-8")
			_, _ = w.Write([]byte(`<Envelope><Body><ZalogujResponse><ZalogujResult>sid-1</ZalogujResult></ZalogujResponse></Body></Envelope>`))
		}))
		defer server.Close()

		reg := prometheus.NewRegistry()
		m := metrics.NewWithRegisterer(reg)
		adapter := adapters.NewSOAPAdapter(adapters.SOAPAdapterConfig{
			ID:       "bir",
			Endpoint: server.URL,
			Timeout:  5 * time.Second,
			Metrics:  m,
		})

		reply, err := adapter.Call(context.Background(), adapters.Call{
			Operation: "Zaloguj",
			Action:    loginAction,
			Body:      "<ns:Zaloguj><ns:pKluczUzytkownika>key</ns:pKluczUzytkownika></ns:Zaloguj>",
			SessionID: "sid-0",
		})
		require.NoError(t, err)
		assert.True(t, reply.OK())

		result, err := reply.Result("ZalogujResult")
		require.NoError(t, err)
		assert.Equal(t, "sid-1", result)

		assert.Equal(t, adapters.SOAPContentType, gotHeaders.Get("Content-Type"))
		assert.Equal(t, loginAction, gotHeaders.Get("SOAPAction"))
		assert.Equal(t, "sid-0", gotHeaders.Get("sid"))
		assert.Contains(t, gotBody, "<wsa:To>"+server.URL+"</wsa:To>")
		assert.Contains(t, gotBody, "<wsa:Action>"+loginAction+"</wsa:Action>")
		assert.Contains(t, gotBody, "<ns:pKluczUzytkownika>key</ns:pKluczUzytkownika>")

		assert.Equal(t, float64(1), testutil.ToFloat64(m.SOAPCallsTotal.WithLabelValues("Zaloguj", metrics.OutcomeSuccess)))
	})

	t.Run("omits sid header without a session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		doer := adaptersmocks.NewMockHTTPDoer(ctrl)
		doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
			assert.Empty(t, req.Header.Values("sid"))
			assert.Equal(t, http.MethodPost, req.Method)
			return response(http.StatusOK, ""), nil
		})

		adapter := adapters.NewSOAPAdapter(adapters.SOAPAdapterConfig{ID: "bir", Endpoint: "https://bir.test/svc", HTTPClient: doer})
		_, err := adapter.Call(context.Background(), adapters.Call{Operation: "Zaloguj", Action: loginAction})
		require.NoError(t, err)
	})

	t.Run("non-200 status is returned, not an error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		doer := adaptersmocks.NewMockHTTPDoer(ctrl)
		doer.EXPECT().Do(gomock.Any()).Return(response(http.StatusInternalServerError, "boom"), nil)

		reg := prometheus.NewRegistry()
		m := metrics.NewWithRegisterer(reg)
		adapter := adapters.NewSOAPAdapter(adapters.SOAPAdapterConfig{ID: "bir", Endpoint: "https://bir.test/svc", HTTPClient: doer, Metrics: m})

		reply, err := adapter.Call(context.Background(), adapters.Call{Operation: "DaneSzukajPodmioty", Action: "urn:search"})
		require.NoError(t, err)
		assert.False(t, reply.OK())
		assert.Equal(t, http.StatusInternalServerError, reply.StatusCode)
		assert.Equal(t, "boom", string(reply.Body))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.SOAPCallsTotal.WithLabelValues("DaneSzukajPodmioty", metrics.OutcomeHTTPError)))
	})

	t.Run("transport failure is a provider outage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		doer := adaptersmocks.NewMockHTTPDoer(ctrl)
		doer.EXPECT().Do(gomock.Any()).Return(nil, errors.New("connection refused"))

		adapter := adapters.NewSOAPAdapter(adapters.SOAPAdapterConfig{ID: "bir", Endpoint: "https://bir.test/svc", HTTPClient: doer})
		reply, err := adapter.Call(context.Background(), adapters.Call{Operation: "Zaloguj", Action: loginAction})
		assert.Nil(t, reply)
		require.Error(t, err)
		assert.Equal(t, providers.ErrorProviderOutage, providers.GetCategory(err))
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("deadline is a timeout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		doer := adaptersmocks.NewMockHTTPDoer(ctrl)
		doer.EXPECT().Do(gomock.Any()).Return(nil, context.DeadlineExceeded)

		reg := prometheus.NewRegistry()
		m := metrics.NewWithRegisterer(reg)
		adapter := adapters.NewSOAPAdapter(adapters.SOAPAdapterConfig{ID: "bir", Endpoint: "https://bir.test/svc", HTTPClient: doer, Metrics: m})
		_, err := adapter.Call(context.Background(), adapters.Call{Operation: "Zaloguj", Action: loginAction})
		require.Error(t, err)
		assert.Equal(t, providers.ErrorTimeout, providers.GetCategory(err))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.SOAPCallsTotal.WithLabelValues("Zaloguj", metrics.OutcomeTimeout)))
	})

	t.Run("invalid endpoint fails before sending", func(t *testing.T) {
		adapter := adapters.NewSOAPAdapter(adapters.SOAPAdapterConfig{ID: "bir", Endpoint: "://bad"})
		_, err := adapter.Call(context.Background(), adapters.Call{Operation: "Zaloguj", Action: loginAction})
		require.Error(t, err)
		assert.Equal(t, providers.ErrorInternal, providers.GetCategory(err))
	})
}

func TestSOAPAdapter_Degraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := adaptersmocks.NewMockHTTPDoer(ctrl)
	gomock.InOrder(
		doer.EXPECT().Do(gomock.Any()).Return(nil, errors.New("connection refused")),
		doer.EXPECT().Do(gomock.Any()).Return(response(http.StatusBadGateway, ""), nil),
		doer.EXPECT().Do(gomock.Any()).Return(response(http.StatusOK, ""), nil),
	)

	adapter := adapters.NewSOAPAdapter(adapters.SOAPAdapterConfig{
		ID:         "bir",
		Endpoint:   "https://bir.test/svc",
		HTTPClient: doer,
		Breaker:    circuit.New("bir", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1)),
	})
	call := adapters.Call{Operation: "Zaloguj", Action: loginAction}

	_, _ = adapter.Call(context.Background(), call)
	assert.False(t, adapter.Degraded())
	_, _ = adapter.Call(context.Background(), call)
	assert.True(t, adapter.Degraded(), "5xx replies count as failures")
	_, _ = adapter.Call(context.Background(), call)
	assert.False(t, adapter.Degraded())
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status   int
		category providers.ErrorCategory
	}{
		{http.StatusUnauthorized, providers.ErrorAuthentication},
		{http.StatusForbidden, providers.ErrorAuthentication},
		{http.StatusNotFound, providers.ErrorContractMismatch},
		{http.StatusBadRequest, providers.ErrorBadData},
		{http.StatusInternalServerError, providers.ErrorProviderOutage},
		{http.StatusServiceUnavailable, providers.ErrorProviderOutage},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := adapters.StatusError("bir", "Zaloguj", tt.status)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, "bir", err.ProviderID)
			assert.Contains(t, err.Error(), "HTTP error")
		})
	}
}

func TestSOAPAdapter_Accessors(t *testing.T) {
	adapter := adapters.NewSOAPAdapter(adapters.SOAPAdapterConfig{ID: "bir", Endpoint: "https://bir.test/svc"})
	assert.Equal(t, "bir", adapter.ID())
	assert.False(t, adapter.Degraded(), "no breaker configured")
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{adapters.SOAPContentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
