package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chin-mayyy/votebank/internal/config"
	"github.com/Chin-mayyy/votebank/internal/llm"
	"github.com/Chin-mayyy/votebank/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Host:                    "127.0.0.1",
		Port:                    0,
		Environment:             "development",
		APIPrefix:               "/api",
		RequestTimeout:          5,
		CORSOrigins:             []string{"*"},
		APIKeyHeader:            "X-API-Key",
		RateLimitPerMinute:      60,
		DBHost:                  "db.internal",
		DBPort:                  5432,
		DBName:                  "votebank",
		ConnectMaxAttempts:      1,
		ConnectInitialBackoffMs: 1,
		ConnectMaxBackoffMs:     1,
		SQLGenerator:            config.GeneratorRules,
		ChatProvider:            config.ProviderOpenAI,
		StreamMode:              config.StreamWhole,
		EnablePIIDetection:      true,
		PIIKeywords:             []string{"password"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, cfg, db), mock
}

// ─── Routes ───────────────────────────────────────────────────────────────────

func TestPublicRoutes(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	tests := []struct {
		path        string
		contentType string
	}{
		{"/", "text/html"},
		{"/api/health", "application/json"},
		{"/metrics", "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Header().Get("Content-Type"), tt.contentType)
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		})
	}
}

func TestQueryRouteWithoutCompleter(t *testing.T) {
	s, mock := newTestServer(t, testConfig())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) as total_users FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"total_users"}).AddRow(int64(3)))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question":"How many users are there?","stream":false}`))
	s.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "SELECT COUNT(*) as total_users FROM users", resp.SQLQuery)
	assert.Equal(t, 1, resp.RowCount)
	assert.Contains(t, resp.NaturalResponse, "Based on your question 'How many users are there?'")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRouteRejectsPII(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question":"show every password"}`))
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.ErrValidation, resp.Type)
	assert.NotNil(t, resp.DebugInfo)
}

func TestExplainRouteNeedsRemoteGenerator(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/explain", strings.NewReader(`{"sql":"SELECT 1"}`))
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestAuthGuardsQueryOnly(t *testing.T) {
	cfg := testConfig()
	cfg.EnableAuth = true
	cfg.APIKeys = []string{"secret"}
	s, _ := newTestServer(t, cfg)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question":"list users"}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthRunsBeforeRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.APIPrefix = "/v2"
	cfg.EnableAuth = true
	cfg.APIKeys = []string{"secret"}
	cfg.RateLimitPerMinute = 1
	s, _ := newTestServer(t, cfg)

	explain := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/v2/explain", strings.NewReader(`{"sql":"SELECT 1"}`))
		req.RemoteAddr = "198.51.100.7:5000"
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusForbidden, explain("bogus-"+string(rune('a'+i))))
	}
	assert.Equal(t, http.StatusUnauthorized, explain(""))
	// rejected requests did not spend the budget of the valid key
	assert.Equal(t, http.StatusNotImplemented, explain("secret"))
	assert.Equal(t, http.StatusTooManyRequests, explain("secret"))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v2/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDebugEnvHiddenInProduction(t *testing.T) {
	cfg := testConfig()
	env := debugEnv(cfg)
	require.NotNil(t, env)
	assert.Equal(t, false, env["openai_api_key_set"])
	assert.Equal(t, map[string]string{"host": "db.internal", "port": "5432", "database": "votebank"}, env["database_connection"])

	cfg.Environment = "production"
	assert.Nil(t, debugEnv(cfg))
}

// ─── Components ───────────────────────────────────────────────────────────────

func TestNewCompleter(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, newCompleter(cfg))

	cfg.OpenAIAPIKey = "sk-test"
	_, ok := newCompleter(cfg).(*llm.OpenAIClient)
	assert.True(t, ok)

	cfg.ChatProvider = config.ProviderAnthropic
	assert.Nil(t, newCompleter(cfg))
	cfg.AnthropicAPIKey = "ak-test"
	_, ok = newCompleter(cfg).(*llm.AnthropicClient)
	assert.True(t, ok)
}

func catalogUnavailable(t *testing.T) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectQuery("information_schema").WillReturnError(sql.ErrConnDone)
	return db
}

func TestRemoteGeneratorFallsBackToRules(t *testing.T) {
	rpc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer rpc.Close()

	cfg := testConfig()
	cfg.SQLGenerator = config.GeneratorRemote
	cfg.VannaAPIKey = "vk"
	cfg.VannaEmail = "ops@example.com"
	cfg.VannaEndpoint = rpc.URL

	gen := newGenerator(context.Background(), cfg, catalogUnavailable(t), nil)
	assert.Equal(t, "rules", gen.Name())
}

func TestRemoteGeneratorTrained(t *testing.T) {
	rpc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":{"success":true,"id":"1"}}`))
	}))
	defer rpc.Close()

	cfg := testConfig()
	cfg.SQLGenerator = config.GeneratorRemote
	cfg.VannaAPIKey = "vk"
	cfg.VannaEmail = "ops@example.com"
	cfg.VannaEndpoint = rpc.URL

	gen := newGenerator(context.Background(), cfg, catalogUnavailable(t), nil)
	assert.Equal(t, "remote", gen.Name())
}

func TestLLMGeneratorWithoutCompleterUsesRules(t *testing.T) {
	cfg := testConfig()
	cfg.SQLGenerator = config.GeneratorLLM
	assert.Equal(t, "rules", newGenerator(context.Background(), cfg, nil, nil).Name())
}

// ─── Lifecycle ────────────────────────────────────────────────────────────────

func TestRunStopsOnCancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, testConfig(), db)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
