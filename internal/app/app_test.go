package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/url-registry/internal/adapter/auth"
	"github.com/vadimbarashkov/url-registry/internal/adapter/clock"
	"github.com/vadimbarashkov/url-registry/internal/adapter/store/memory"
	"github.com/vadimbarashkov/url-registry/internal/config"
	"github.com/vadimbarashkov/url-registry/internal/usecase"

	delivery "github.com/vadimbarashkov/url-registry/internal/adapter/delivery/http"
)

const testSecret = "test-secret"

type APITestSuite struct {
	suite.Suite
	issuer *auth.Issuer
	server *httptest.Server
	e      *httpexpect.Expect
}

func (suite *APITestSuite) SetupTest() {
	cfg := &config.Config{Env: config.EnvDev}
	cfg.Log.Level = "error"

	registry := usecase.New(
		memory.New(time.Hour),
		auth.NewVerifier(testSecret),
		clock.NewMonotonic(),
		usecase.WithShortCodeLength(8),
	)

	suite.issuer = auth.NewIssuer(testSecret, time.Hour)
	suite.server = httptest.NewServer(delivery.NewRouter(NewLogger(cfg), registry))
	suite.T().Cleanup(suite.server.Close)

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  suite.server.URL,
		Reporter: httpexpect.NewAssertReporter(suite.T()),
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
}

func (suite *APITestSuite) token(identity string) string {
	token, err := suite.issuer.Issue(identity)
	suite.Require().NoError(err)
	return "Bearer " + token
}

func (suite *APITestSuite) TestMappingLifecycle() {
	suite.e.POST("/api/v1/mappings").
		WithHeader("Authorization", suite.token("alice")).
		WithJSON(map[string]string{
			"short_code":   "go2x",
			"original_url": "https://example.com",
			"creator":      "alice",
		}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object().
		HasValue("short_code", "go2x")

	suite.e.POST("/api/v1/mappings").
		WithHeader("Authorization", suite.token("bob")).
		WithJSON(map[string]string{
			"short_code":   "go2x",
			"original_url": "https://other.org",
			"creator":      "bob",
		}).
		Expect().
		Status(http.StatusConflict)

	suite.e.GET("/api/v1/mappings/{shortCode}/resolve", "go2x").
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		HasValue("original_url", "https://example.com")

	suite.e.GET("/{shortCode}", "go2x").
		Expect().
		Status(http.StatusFound).
		Header("Location").IsEqual("https://example.com")

	mapping := suite.e.GET("/api/v1/mappings/{shortCode}", "go2x").
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	mapping.HasValue("creator", "alice")
	mapping.HasValue("click_count", 2)
	mapping.Value("created_at").Number().Gt(0)

	suite.e.GET("/api/v1/stats").
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		HasValue("total_mappings", 1)
}

func (suite *APITestSuite) TestCreateMappingForeignCreator() {
	suite.e.POST("/api/v1/mappings").
		WithHeader("Authorization", suite.token("mallory")).
		WithJSON(map[string]string{
			"short_code":   "go2x",
			"original_url": "https://example.com",
			"creator":      "alice",
		}).
		Expect().
		Status(http.StatusUnauthorized)

	suite.e.POST("/api/v1/mappings").
		WithJSON(map[string]string{
			"short_code":   "go2x",
			"original_url": "https://example.com",
			"creator":      "alice",
		}).
		Expect().
		Status(http.StatusUnauthorized)

	suite.e.GET("/api/v1/stats").
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		HasValue("total_mappings", 0)
}

func (suite *APITestSuite) TestGeneratedShortCode() {
	suite.e.POST("/api/v1/mappings").
		WithHeader("Authorization", suite.token("alice")).
		WithJSON(map[string]string{
			"original_url": "https://example.com",
			"creator":      "alice",
		}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object().
		Value("short_code").String().Length().IsEqual(8)
}

func (suite *APITestSuite) TestUnknownShortCode() {
	suite.e.GET("/api/v1/mappings/{shortCode}/resolve", "missing").
		Expect().
		Status(http.StatusNotFound).
		JSON().Object().
		HasValue("original_url", "NOT_FOUND")

	suite.e.GET("/api/v1/mappings/{shortCode}", "missing").
		Expect().
		Status(http.StatusNotFound).
		JSON().Object().
		HasValue("created_at", 0)

	suite.e.GET("/{shortCode}", "missing").
		Expect().
		Status(http.StatusNotFound)
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"WARN", "WARN"},
		{"error", "ERROR"},
		{"info", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.level).String())
		})
	}
}
