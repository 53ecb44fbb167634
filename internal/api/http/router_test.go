package http_test

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-intake/internal/api/http"
	"github.com/spec-kit/ticket-intake/internal/api/http/handlers"
	"github.com/spec-kit/ticket-intake/internal/auth"
	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/events"
	"github.com/spec-kit/ticket-intake/internal/observability"
	"github.com/spec-kit/ticket-intake/internal/repository"
	"github.com/spec-kit/ticket-intake/internal/service"
	"github.com/spec-kit/ticket-intake/internal/tagging"
)

const apiKey = "test-key"

type scriptedModel struct {
	output string
}

func (m *scriptedModel) Generate(context.Context, string, int, float64) (string, error) {
	return m.output, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type RouterSuite struct {
	suite.Suite
	app   *fiber.App
	model *scriptedModel
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	ledger := repository.NewCSVLedger(filepath.Join(s.T().TempDir(), "tickets_log.csv"), logger, metrics)
	s.Require().NoError(ledger.Init(context.Background()))

	s.model = &scriptedModel{output: `<Output>{"department":"A","techgroup":"B","category":"C","subcategory":"D","priority":"E"}</Output>`}
	tagger := tagging.NewTagger(s.model, config.ModelConfig{MaxTokens: 64, Temperature: 0.1}, logger, metrics)

	svc := service.NewTicketService(service.TicketDependencies{
		Ledger:     ledger,
		Tagger:     tagger,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
		Metrics:    metrics,
	})

	s.app = fiber.New()
	httptransport.RegisterMiddlewares(s.app, logger, metrics, 0)
	httptransport.RegisterRoutes(s.app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler("ticket-intake-service", "test", map[string]handlers.ReadinessCheck{
			"ledger": func(ctx context.Context) error { _, err := ledger.Scan(ctx); return err },
		}),
		Tickets: handlers.NewTicketsHandler(svc),
		APIKey:  auth.NewAPIKeyMiddleware(config.AuthConfig{APIKey: apiKey}),
		Metrics: metrics,
	})
}

func (s *RouterSuite) do(req *nethttp.Request) (int, envelope) {
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(body, &env), string(body))
	}
	return resp.StatusCode, env
}

func (s *RouterSuite) createForm(subject, description, email, key string) (int, envelope) {
	form := url.Values{"subject": {subject}, "description": {description}, "email": {email}}
	req := httptest.NewRequest(nethttp.MethodPost, "/tickets", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if key != "" {
		req.Header.Set(auth.APIKeyHeader, key)
	}
	return s.do(req)
}

func (s *RouterSuite) TestCreateListGet() {
	status, env := s.createForm("Printer jam", "Out of paper", "a@x.com", apiKey)
	s.Require().Equal(nethttp.StatusCreated, status)

	var created map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &created))
	s.Equal(float64(1), created["id"])
	s.Equal("A", created["department"])
	s.Equal("E", created["priority"])

	req := httptest.NewRequest(nethttp.MethodPost, "/tickets", strings.NewReader(`{"subject":"Printer jam","description":"Out of paper","email":"a@x.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.APIKeyHeader, apiKey)
	status, _ = s.do(req)
	s.Require().Equal(nethttp.StatusCreated, status)

	status, env = s.do(httptest.NewRequest(nethttp.MethodGet, "/tickets", nil))
	s.Require().Equal(nethttp.StatusOK, status)
	var list []map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &list))
	s.Require().Len(list, 2)
	s.Equal(float64(1), list[0]["id"])
	s.Equal(float64(2), list[1]["id"])

	status, env = s.do(httptest.NewRequest(nethttp.MethodGet, "/tickets/2", nil))
	s.Require().Equal(nethttp.StatusOK, status)
	var got map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &got))
	s.Equal("Printer jam", got["subject"])
}

func (s *RouterSuite) TestCreateRequiresAPIKey() {
	for _, key := range []string{"", "wrong"} {
		status, env := s.createForm("s", "d", "e@x.com", key)
		s.Equal(nethttp.StatusUnauthorized, status)
		s.Require().NotNil(env.Error)
		s.Equal("UNAUTHORIZED", env.Error.Code)
	}

	status, env := s.do(httptest.NewRequest(nethttp.MethodGet, "/tickets", nil))
	s.Require().Equal(nethttp.StatusOK, status)
	s.JSONEq(`[]`, string(env.Data))
}

func (s *RouterSuite) TestCreateValidation() {
	status, env := s.createForm("", "d", "e@x.com", apiKey)
	s.Equal(nethttp.StatusBadRequest, status)
	s.Equal("VALIDATION_FAILED", env.Error.Code)
}

func (s *RouterSuite) TestCreateExtractionFailure() {
	s.model.output = "no tags here"

	status, env := s.createForm("s", "d", "e@x.com", apiKey)
	s.Equal(nethttp.StatusBadGateway, status)
	s.Equal("EXTRACTION_FAILED", env.Error.Code)

	status, env = s.do(httptest.NewRequest(nethttp.MethodGet, "/tickets", nil))
	s.Require().Equal(nethttp.StatusOK, status)
	s.JSONEq(`[]`, string(env.Data))
}

func (s *RouterSuite) TestGetUnknownAndBadID() {
	status, env := s.do(httptest.NewRequest(nethttp.MethodGet, "/tickets/5", nil))
	s.Equal(nethttp.StatusNotFound, status)
	s.Equal("NOT_FOUND", env.Error.Code)

	status, env = s.do(httptest.NewRequest(nethttp.MethodGet, "/tickets/abc", nil))
	s.Equal(nethttp.StatusBadRequest, status)
	s.Equal("VALIDATION_FAILED", env.Error.Code)
}

func (s *RouterSuite) TestDeleteAcknowledgesAndRetains() {
	status, _ := s.createForm("Printer jam", "Out of paper", "a@x.com", apiKey)
	s.Require().Equal(nethttp.StatusCreated, status)

	req := httptest.NewRequest(nethttp.MethodDelete, "/tickets/1", nil)
	req.Header.Set(auth.APIKeyHeader, apiKey)
	status, env := s.do(req)
	s.Require().Equal(nethttp.StatusOK, status)
	var ack map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &ack))
	s.Equal(true, ack["retained"])

	status, _ = s.do(httptest.NewRequest(nethttp.MethodGet, "/tickets/1", nil))
	s.Equal(nethttp.StatusOK, status)

	req = httptest.NewRequest(nethttp.MethodDelete, "/tickets/9", nil)
	req.Header.Set(auth.APIKeyHeader, apiKey)
	status, env = s.do(req)
	s.Equal(nethttp.StatusNotFound, status)
	s.Equal("NOT_FOUND", env.Error.Code)
}

func (s *RouterSuite) TestHealthAndMetrics() {
	status, _ := s.do(httptest.NewRequest(nethttp.MethodGet, "/health/live", nil))
	s.Equal(nethttp.StatusOK, status)

	status, _ = s.do(httptest.NewRequest(nethttp.MethodGet, "/health/ready", nil))
	s.Equal(nethttp.StatusOK, status)

	resp, err := s.app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil), -1)
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal(nethttp.StatusOK, resp.StatusCode)
	s.Contains(string(body), "ticket_http_requests_total")
}

var _ service.TagExtractor = (*tagging.Tagger)(nil)
