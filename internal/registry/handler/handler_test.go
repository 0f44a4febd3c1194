package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/maciegg5/regon-search/internal/registry/metrics"
	"github.com/maciegg5/regon-search/internal/registry/models"
	"github.com/maciegg5/regon-search/pkg/domain"
	dErrors "github.com/maciegg5/regon-search/pkg/domain-errors"
)

type stubService struct {
	calls     []domain.NIP
	report    *models.EntityReport
	err       error
	panicWith any
}

func (s *stubService) Lookup(_ context.Context, nip domain.NIP) (*models.EntityReport, error) {
	s.calls = append(s.calls, nip)
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.report, s.err
}

type HandlerSuite struct {
	suite.Suite
	service *stubService
	metrics *metrics.Metrics
	router  chi.Router
}

func (s *HandlerSuite) SetupTest() {
	s.service = &stubService{report: models.NewEntityReport(map[string]string{"Regon": "000331501"})}
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.router = s.newRouter(true)
}

func (s *HandlerSuite) newRouter(expose bool) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, logger, WithMetrics(s.metrics), WithExposeErrors(expose))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) post(body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, Route, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal("application/json", rec.Header().Get("Content-Type"))
	var decoded map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func (s *HandlerSuite) TestInvalidNIP() {
	cases := map[string]string{
		"too short":       `{"nip":"123"}`,
		"letters":         `{"nip":"52610408AB"}`,
		"too long":        `{"nip":"52610408281"}`,
		"empty":           `{"nip":""}`,
		"missing":         `{}`,
		"signed":          `{"nip":"+526104082"}`,
		"not json":        `nip=5261040828`,
		"wrong type":      `{"nip":5261040828}`,
		"empty body":      ``,
		"only separators": `{"nip":"--- ---"}`,
	}
	for name, body := range cases {
		s.Run(name, func() {
			rec, decoded := s.post(body)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Equal(map[string]any{"error": MsgInvalidNIP}, decoded)
		})
	}
	s.Empty(s.service.calls, "invalid requests must not reach the registry")
	s.Equal(float64(len(cases)), testutil.ToFloat64(s.metrics.LookupsTotal.WithLabelValues(metrics.LookupInvalid)))
}

func (s *HandlerSuite) TestNormalizesSeparators() {
	for _, raw := range []string{"526-104-08-28", " 526 104 08 28 ", "526-10-40-828"} {
		rec, _ := s.post(`{"nip":"` + raw + `"}`)
		s.Equal(http.StatusOK, rec.Code, raw)
	}
	s.Equal([]domain.NIP{"5261040828", "5261040828", "5261040828"}, s.service.calls)
}

func (s *HandlerSuite) TestSuccess() {
	s.service.report = &models.EntityReport{
		Podstawowe: map[string]string{"Regon": "000331501", "Nazwa": "GŁÓWNY URZĄD STATYSTYCZNY"},
		PKD:        []map[string]string{{"praw_pkdKod": "8411Z"}},
	}

	req := httptest.NewRequest(http.MethodPost, Route, strings.NewReader(`{"nip":"5261040828"}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"podstawowe":{"Regon":"000331501","Nazwa":"GŁÓWNY URZĄD STATYSTYCZNY"},"pkd":[{"praw_pkdKod":"8411Z"}]}`, rec.Body.String())
	s.True(bytes.Contains(rec.Body.Bytes(), []byte("GŁÓWNY URZĄD")), "UTF-8 must not be escaped")
}

func (s *HandlerSuite) TestSuccessWithoutPKD() {
	rec, decoded := s.post(`{"nip":"5261040828"}`)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal([]any{}, decoded["pkd"])
}

func (s *HandlerSuite) TestNotFound() {
	s.service.report = nil
	s.service.err = dErrors.New(dErrors.CodeNotFound, "entity not found")

	rec, decoded := s.post(`{"nip":"5261040828"}`)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal(map[string]any{"error": MsgNotFound}, decoded)
}

func (s *HandlerSuite) TestServerErrorExposesCause() {
	s.service.report = nil
	s.service.err = dErrors.Wrap(errors.New("HTTP error 500"), dErrors.CodeUnavailable, "login failed: HTTP error 500")

	rec, decoded := s.post(`{"nip":"5261040828"}`)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal(map[string]any{"error": "Błąd serwera: login failed: HTTP error 500"}, decoded)
}

func (s *HandlerSuite) TestServerErrorHidesCause() {
	s.router = s.newRouter(false)
	s.service.report = nil
	s.service.err = errors.New("dial tcp: connection refused")

	rec, decoded := s.post(`{"nip":"5261040828"}`)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal(map[string]any{"error": MsgServerError}, decoded)
}

func (s *HandlerSuite) TestPanicUsesServerErrorBody() {
	s.service.panicWith = "nil map write"

	rec, decoded := s.post(`{"nip":"5261040828"}`)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal(map[string]any{"error": "Błąd serwera: nil map write"}, decoded)
}

func (s *HandlerSuite) TestPanicHidesValue() {
	s.router = s.newRouter(false)
	s.service.panicWith = errors.New("boom")

	rec, decoded := s.post(`{"nip":"5261040828"}`)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal(map[string]any{"error": MsgServerError}, decoded)
}

func (s *HandlerSuite) TestOnlyPostIsRouted() {
	req := httptest.NewRequest(http.MethodGet, Route, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
}
