package config

import "time"

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api"
	DefaultLogLevel    = "info"
	DefaultEnvFile     = ".env"

	DefaultRateLimitPerMinute = 60

	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBName            = "votebank"
	DefaultDBUser            = "postgres"
	DefaultDBSSLMode         = "disable"
	DefaultDBMaxOpenConns    = 10
	DefaultDBMaxIdleConns    = 5
	DefaultDBConnMaxLifetime = 300 // seconds

	// Connection acquisition: 3 attempts, 4s doubling to a 10s cap.
	DefaultConnectMaxAttempts      = 3
	DefaultConnectInitialBackoffMs = 4000
	DefaultConnectMaxBackoffMs     = 10000

	DefaultRedisPort = 6379

	DefaultSQLGenerator  = GeneratorRemote
	DefaultVannaModel    = "votebank"
	DefaultVannaEndpoint = "https://ask.vanna.ai/rpc"

	DefaultChatProvider   = ProviderOpenAI
	DefaultOpenAIModel    = "gpt-3.5-turbo"
	DefaultAnthropicModel = "claude-sonnet-4-6"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 500

	DefaultStreamMode     = StreamWords
	DefaultWordDelayMs    = 100
	DefaultRequestTimeout = 120 // seconds

	DefaultShutdownTimeout = 10 * time.Second
)

// SQL generation strategies.
const (
	GeneratorRemote = "remote"
	GeneratorLLM    = "llm"
	GeneratorRules  = "rules"
)

// Chat completion providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Streaming strategies.
const (
	StreamWhole = "whole"
	StreamWords = "words"
	StreamDelta = "delta"
)

var DefaultCORSOrigins = []string{"*"}

var DefaultSensitiveColumns = []string{
	"password", "password_hash", "secret", "token",
	"api_key", "aadhar_number", "voter_id",
}

var DefaultPIIKeywords = []string{
	"password", "ssn", "social security", "credit card",
	"bank account", "secret", "private key",
	"access token", "api key", "aadhar",
}
