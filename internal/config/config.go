package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Environment    string `json:"environment"`
	APIPrefix      string `json:"api_prefix"`
	LogLevel       string `json:"log_level"`
	RequestTimeout int    `json:"request_timeout"` // seconds

	// CORS
	CORSOrigins []string `json:"cors_origins"`

	// Auth
	APIKeyHeader string   `json:"api_key_header"`
	APIKeys      []string `json:"api_keys"`
	EnableAuth   bool     `json:"enable_auth"`

	// Rate Limiting
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`
	RedisHost          string `json:"redis_host"` // empty keeps limiter state in memory
	RedisPort          int    `json:"redis_port"`
	RedisPassword      string `json:"redis_password"`
	RedisDB            int    `json:"redis_db"`

	// Database
	DBHost            string `json:"db_host"`
	DBPort            int    `json:"db_port"`
	DBName            string `json:"db_name"`
	DBUser            string `json:"db_user"`
	DBPassword        string `json:"db_password"`
	DBSSLMode         string `json:"db_sslmode"`
	DBMaxOpenConns    int    `json:"db_max_open_conns"`
	DBMaxIdleConns    int    `json:"db_max_idle_conns"`
	DBConnMaxLifetime int    `json:"db_conn_max_lifetime"` // seconds
	AutoMigrate       bool   `json:"auto_migrate"`

	ConnectMaxAttempts      int `json:"connect_max_attempts"`
	ConnectInitialBackoffMs int `json:"connect_initial_backoff_ms"`
	ConnectMaxBackoffMs     int `json:"connect_max_backoff_ms"`

	// SQL generation: remote | llm | rules
	SQLGenerator  string `json:"sql_generator"`
	VannaAPIKey   string `json:"vanna_api_key"`
	VannaEmail    string `json:"vanna_email"`
	VannaModel    string `json:"vanna_model"`
	VannaEndpoint string `json:"vanna_endpoint"`

	// Response composition: openai | anthropic
	ChatProvider     string  `json:"chat_provider"`
	OpenAIAPIKey     string  `json:"openai_api_key"`
	OpenAIBaseURL    string  `json:"openai_base_url"`
	OpenAIModel      string  `json:"openai_model"`
	AnthropicAPIKey  string  `json:"anthropic_api_key"`
	AnthropicBaseURL string  `json:"anthropic_base_url"`
	AnthropicModel   string  `json:"anthropic_model"`
	Temperature      float32 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`

	// Streaming: whole | words | delta
	StreamMode  string `json:"stream_mode"`
	WordDelayMs int    `json:"word_delay_ms"`

	// Security
	EnableDataMasking  bool     `json:"enable_data_masking"`
	EnablePIIDetection bool     `json:"enable_pii_detection"`
	SensitiveColumns   []string `json:"sensitive_columns"`
	PIIKeywords        []string `json:"pii_keywords"`
	EnableAuditLogging bool     `json:"enable_audit_logging"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:                    DefaultHost,
		Port:                    DefaultPort,
		Environment:             DefaultEnvironment,
		APIPrefix:               DefaultAPIPrefix,
		LogLevel:                DefaultLogLevel,
		RequestTimeout:          DefaultRequestTimeout,
		CORSOrigins:             DefaultCORSOrigins,
		APIKeyHeader:            "X-API-Key",
		RateLimitPerMinute:      DefaultRateLimitPerMinute,
		RedisPort:               DefaultRedisPort,
		DBHost:                  DefaultDBHost,
		DBPort:                  DefaultDBPort,
		DBName:                  DefaultDBName,
		DBUser:                  DefaultDBUser,
		DBSSLMode:               DefaultDBSSLMode,
		DBMaxOpenConns:          DefaultDBMaxOpenConns,
		DBMaxIdleConns:          DefaultDBMaxIdleConns,
		DBConnMaxLifetime:       DefaultDBConnMaxLifetime,
		ConnectMaxAttempts:      DefaultConnectMaxAttempts,
		ConnectInitialBackoffMs: DefaultConnectInitialBackoffMs,
		ConnectMaxBackoffMs:     DefaultConnectMaxBackoffMs,
		SQLGenerator:            DefaultSQLGenerator,
		VannaModel:              DefaultVannaModel,
		VannaEndpoint:           DefaultVannaEndpoint,
		ChatProvider:            DefaultChatProvider,
		OpenAIModel:             DefaultOpenAIModel,
		AnthropicModel:          DefaultAnthropicModel,
		Temperature:             DefaultTemperature,
		MaxTokens:               DefaultMaxTokens,
		StreamMode:              DefaultStreamMode,
		WordDelayMs:             DefaultWordDelayMs,
		EnableDataMasking:       true,
		EnablePIIDetection:      true,
		SensitiveColumns:        DefaultSensitiveColumns,
		PIIKeywords:             DefaultPIIKeywords,
		EnableAuditLogging:      true,
	}

	// .env never overrides variables already present in the environment
	if err := godotenv.Load(getEnv("VOTEBANK_ENV_FILE", DefaultEnvFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	// Load from JSON config file if specified
	if path := getEnv("VOTEBANK_CONFIG", ""); path != "" {
		if err := loadJSON(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("VOTEBANK_HOST", ""); v != "" {
		cfg.Host = v
	}
	if v := getEnv("VOTEBANK_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := getEnv("VOTEBANK_ENV", ""); v != "" {
		cfg.Environment = v
	}
	if v := getEnv("VOTEBANK_LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnv("VOTEBANK_API_KEYS", ""); v != "" {
		cfg.APIKeys = strings.Split(v, ",")
	}
	if v := getEnv("VOTEBANK_CORS_ORIGINS", ""); v != "" {
		cfg.CORSOrigins = strings.Split(v, ",")
	}
	if v := getEnv("VOTEBANK_REQUEST_TIMEOUT", ""); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			cfg.RequestTimeout = t
		}
	}
	if v := getEnv("VOTEBANK_SQL_GENERATOR", ""); v != "" {
		cfg.SQLGenerator = strings.ToLower(v)
	}
	if v := getEnv("VOTEBANK_CHAT_PROVIDER", ""); v != "" {
		cfg.ChatProvider = strings.ToLower(v)
	}
	if v := getEnv("VOTEBANK_STREAM_MODE", ""); v != "" {
		cfg.StreamMode = strings.ToLower(v)
	}
	if v := getEnv("VOTEBANK_WORD_DELAY_MS", ""); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			cfg.WordDelayMs = d
		}
	}
	if v := getEnv("VOTEBANK_AUTO_MIGRATE", ""); v != "" {
		cfg.AutoMigrate = v == "true" || v == "1"
	}

	if v := getEnv("DB_HOST", ""); v != "" {
		cfg.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.DBPort = p
		}
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		cfg.DBName = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		cfg.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		cfg.DBPassword = v
	}
	if v := getEnv("DB_SSLMODE", ""); v != "" {
		cfg.DBSSLMode = v
	}

	if v := getEnv("VANNA_API_KEY", ""); v != "" {
		cfg.VannaAPIKey = v
	}
	if v := getEnv("VANNA_EMAIL", ""); v != "" {
		cfg.VannaEmail = v
	}
	if v := getEnv("VANNA_MODEL", ""); v != "" {
		cfg.VannaModel = v
	}
	if v := getEnv("VANNA_ENDPOINT", ""); v != "" {
		cfg.VannaEndpoint = v
	}

	if v := getEnv("OPENAI_API_KEY", ""); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := getEnv("OPENAI_BASE_URL", ""); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := getEnv("OPENAI_MODEL", ""); v != "" {
		cfg.OpenAIModel = v
	}
	if v := getEnv("ANTHROPIC_API_KEY", ""); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := getEnv("ANTHROPIC_BASE_URL", ""); v != "" {
		cfg.AnthropicBaseURL = v
	}
	if v := getEnv("ANTHROPIC_MODEL", ""); v != "" {
		cfg.AnthropicModel = v
	}

	if v := getEnv("REDIS_HOST", ""); v != "" {
		cfg.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.RedisPort = p
		}
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		cfg.RedisPassword = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = r
		}
	}
	if v := getEnv("ENABLE_AUTH", ""); v != "" {
		cfg.EnableAuth = v == "true" || v == "1"
	}
}

func (c *Config) chatKeyName() string {
	if c.ChatProvider == ProviderAnthropic {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func (c *Config) chatKey() string {
	if c.ChatProvider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

// Warnings lists settings that are valid but degrade the service.
func (c *Config) Warnings() []string {
	var warnings []string
	if strings.TrimSpace(c.chatKey()) == "" {
		warnings = append(warnings, c.chatKeyName()+" not set - answers fall back to raw results")
	}
	return warnings
}

// Validate reports every missing or inconsistent setting at once so that
// startup fails before any request is accepted.
func (c *Config) Validate() error {
	var errs []error
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	require("DB_HOST", c.DBHost)
	require("DB_NAME", c.DBName)
	require("DB_USER", c.DBUser)

	switch c.SQLGenerator {
	case GeneratorRemote:
		require("VANNA_API_KEY", c.VannaAPIKey)
		require("VANNA_EMAIL", c.VannaEmail)
	case GeneratorLLM, GeneratorRules:
	default:
		errs = append(errs, fmt.Errorf("unknown sql generator %q", c.SQLGenerator))
	}

	// without a chat key answers fall back to the raw rows, which only the
	// llm generator cannot survive
	switch c.ChatProvider {
	case ProviderOpenAI, ProviderAnthropic:
		if c.SQLGenerator == GeneratorLLM {
			require(c.chatKeyName(), c.chatKey())
		}
	default:
		errs = append(errs, fmt.Errorf("unknown chat provider %q", c.ChatProvider))
	}

	if !slices.Contains([]string{StreamWhole, StreamWords, StreamDelta}, c.StreamMode) {
		errs = append(errs, fmt.Errorf("unknown stream mode %q", c.StreamMode))
	}
	if c.ConnectMaxAttempts < 1 {
		errs = append(errs, errors.New("connect_max_attempts must be at least 1"))
	}
	if c.EnableAuth && len(c.APIKeys) == 0 {
		errs = append(errs, errors.New("auth enabled but VOTEBANK_API_KEYS is empty"))
	}

	return errors.Join(errs...)
}

// DatabaseURL renders the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	if c.DBSSLMode != "" {
		q.Set("sslmode", c.DBSSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Config) WordDelay() time.Duration {
	return time.Duration(c.WordDelayMs) * time.Millisecond
}

func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
