package server

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Chin-mayyy/votebank/internal/composer"
	"github.com/Chin-mayyy/votebank/internal/config"
	"github.com/Chin-mayyy/votebank/internal/database"
	"github.com/Chin-mayyy/votebank/internal/handler"
	"github.com/Chin-mayyy/votebank/internal/llm"
	"github.com/Chin-mayyy/votebank/internal/middleware"
	"github.com/Chin-mayyy/votebank/internal/observability"
	"github.com/Chin-mayyy/votebank/internal/schema"
	"github.com/Chin-mayyy/votebank/internal/security"
	"github.com/Chin-mayyy/votebank/internal/service"
	"github.com/Chin-mayyy/votebank/internal/sqlgen"
	"github.com/Chin-mayyy/votebank/internal/stream"
)

const sweepInterval = time.Minute

// newCompleter builds the chat-completion client for the configured
// provider. A nil result means answers fall back to the raw rows.
func newCompleter(cfg *config.Config) llm.Completer {
	switch cfg.ChatProvider {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil
		}
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.AnthropicModel)
	default:
		if cfg.OpenAIAPIKey == "" {
			return nil
		}
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	}
}

// newGenerator builds and trains the configured SQL generation strategy.
// A remote generator that cannot be trained is replaced by the rule
// matcher so the service still answers the common questions.
func newGenerator(ctx context.Context, cfg *config.Config, db *sql.DB, completer llm.Completer) sqlgen.Generator {
	switch cfg.SQLGenerator {
	case config.GeneratorRemote:
		remote, err := sqlgen.NewRemoteGenerator(sqlgen.RemoteConfig{
			Endpoint: cfg.VannaEndpoint,
			APIKey:   cfg.VannaAPIKey,
			Email:    cfg.VannaEmail,
			Model:    cfg.VannaModel,
		})
		if err != nil {
			log.Warn().Err(err).Msg("remote sql generator unavailable - using rules")
			return sqlgen.NewRuleGenerator()
		}
		ddl := schema.NewIntrospector(db).DDLOrFallback(ctx)
		if err := remote.Train(ctx, ddl, sqlgen.DefaultExamples); err != nil {
			log.Warn().Err(err).Msg("remote sql generator training failed - using rules")
			return sqlgen.NewRuleGenerator()
		}
		log.Info().Int("examples", len(sqlgen.DefaultExamples)).Msg("remote sql generator trained")
		return remote

	case config.GeneratorLLM:
		if completer == nil {
			log.Warn().Msg("no chat provider key - llm sql generator replaced by rules")
			return sqlgen.NewRuleGenerator()
		}
		gen := sqlgen.NewLLMGenerator(completer)
		ddl := schema.NewIntrospector(db).DDLOrFallback(ctx)
		if err := gen.Train(ctx, ddl, sqlgen.DefaultExamples); err != nil {
			log.Warn().Err(err).Msg("llm sql generator training failed - using rules")
			return sqlgen.NewRuleGenerator()
		}
		return gen

	default:
		return sqlgen.NewRuleGenerator()
	}
}

// newLimitStore keeps rate limit counters in Redis when configured so that
// replicas share one budget per client.
func (s *Server) newLimitStore(ctx context.Context) middleware.LimitStore {
	cfg := s.cfg
	if addr := cfg.RedisAddr(); addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("redis unreachable - rate limiting fails open until it recovers")
		}
		return middleware.NewRedisStore(s.redis)
	}

	store := middleware.NewMemoryStore()
	go store.RunSweeper(ctx, sweepInterval)
	return store
}

func debugEnv(cfg *config.Config) map[string]any {
	if cfg.IsProduction() {
		return nil
	}
	return map[string]any{
		"openai_api_key_set":    cfg.OpenAIAPIKey != "",
		"anthropic_api_key_set": cfg.AnthropicAPIKey != "",
		"vanna_api_key_set":     cfg.VannaAPIKey != "",
		"database_connection": map[string]string{
			"host":     cfg.DBHost,
			"port":     strconv.Itoa(cfg.DBPort),
			"database": cfg.DBName,
		},
	}
}

// setupRoutes wires every component. ctx bounds startup training and the
// lifetime of background sweepers.
func (s *Server) setupRoutes(ctx context.Context) http.Handler {
	cfg := s.cfg

	// ─── Services ───────────────────────────────────────────────────────────────
	completer := newCompleter(cfg)
	generator := newGenerator(ctx, cfg, s.db, completer)
	executor := database.NewExecutor(s.db, database.PolicyFromConfig(cfg))
	answers := composer.New(completer, composer.Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})

	log.Info().
		Str("sql_generator", generator.Name()).
		Str("chat_provider", cfg.ChatProvider).
		Bool("completer_enabled", completer != nil).
		Str("stream_mode", cfg.StreamMode).
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Bool("data_masking", cfg.EnableDataMasking).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Bool("pii_detection", cfg.EnablePIIDetection).
		Msg("service configuration")

	// ─── Security ───────────────────────────────────────────────────────────────
	sqlVal := security.NewSQLValidator()
	deps := service.Deps{
		Generator: generator,
		Executor:  executor,
		Composer:  answers,
		Questions: security.NewQuestionValidator(),
		SQL:       sqlVal,
	}
	if cfg.EnablePIIDetection {
		deps.PII = security.NewPIIDetector(cfg.PIIKeywords)
	}
	if cfg.EnableDataMasking {
		deps.Masker = security.NewDataMasker(cfg.SensitiveColumns)
	}
	auditLogger := security.NewAuditLogger(cfg.EnableAuditLogging)
	pipeline := service.NewPipeline(deps)

	// ─── Handlers ────────────────────────────────────────────────────────────────
	healthH := handler.NewHealthHandler(s.db, generator.Name())
	queryH := handler.NewQueryHandler(pipeline, auditLogger, handler.QueryOptions{
		Mode:         stream.Mode(cfg.StreamMode),
		WordDelay:    cfg.WordDelay(),
		Timeout:      cfg.RequestTimeoutDuration(),
		APIKeyHeader: cfg.APIKeyHeader,
		DebugEnv:     debugEnv(cfg),
	})
	var explainer sqlgen.Explainer
	if e, ok := generator.(sqlgen.Explainer); ok {
		explainer = e
	}
	explainH := handler.NewExplainHandler(explainer, sqlVal)
	tablesH := handler.NewTablesHandler(schema.NewIntrospector(s.db))

	// ─── Router ──────────────────────────────────────────────────────────────────
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Metrics)

	// Public routes
	r.Get("/", handler.Index)
	r.Method(http.MethodGet, "/metrics", observability.Handler())

	var apiMiddleware []func(http.Handler) http.Handler
	if cfg.EnableAuth && len(cfg.APIKeys) > 0 {
		apiMiddleware = append(apiMiddleware, middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader))
	}
	apiMiddleware = append(apiMiddleware, middleware.RateLimit(s.newLimitStore(ctx), cfg.RateLimitPerMinute))

	r.Route(cfg.APIPrefix, func(r chi.Router) {
		r.Get("/health", healthH.Health)

		r.Group(func(r chi.Router) {
			for _, m := range apiMiddleware {
				r.Use(m)
			}
			r.Post("/query", queryH.Query)
			r.Post("/explain", explainH.Explain)
			r.Get("/tables", tablesH.ListTables)
			r.Get("/tables/{table}", tablesH.GetTable)
		})
	})

	return r
}
