package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port               string
	CORSAllowedOrigins []string

	// Logging configuration
	LogLevel string

	// AWS configuration
	AWSRegion string

	// DynamoDB configuration
	DynamoDBSitesTable     string
	DynamoDBUsageTable     string
	DynamoDBProspectsTable string

	// Site archive (S3 or S3-compatible)
	ArchiveBucket    string
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string

	// Anthropic configuration
	AnthropicAPIKey      string
	AnthropicBaseURL     string
	ExtractModel         string
	GenerateModel        string
	EditModel            string
	ExtractMaxTokens     int64
	GenerateMaxTokens    int64
	EditMaxTokens        int64
	ThinkingBudgetTokens int64
	ModelRatesFile       string

	// Vercel configuration
	VercelToken        string
	VercelAPIURL       string
	VercelTeamID       string
	ProjectPrefix      string
	DeployPollInterval time.Duration
	DeployPollAttempts int

	// Redis configuration (redeploy locks)
	RedisAddr       string
	RedisPassword   string
	RedeployLockTTL time.Duration

	// Worker pool configuration
	WorkerCount int
	QueueSize   int

	// Auth0 configuration (optional)
	Auth0Domain   string
	Auth0Audience string
}

// New creates a new Config instance by loading environment variables
// from .env file (if present) and OS environment.
// OS environment variables take precedence over .env file values.
// Panics if required configuration values are missing or invalid.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

// Load reads configuration like New but returns an error instead of panicking
func Load() (*Config, error) {
	// Load .env file from the working directory (silently ignore if not found)
	envPath := filepath.Join(".", ".env")
	_ = godotenv.Load(envPath)

	p := &envParser{}

	cfg := &Config{
		// Server configuration
		Port:               getEnvOrDefault("PORT", "3001"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		// Logging configuration
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),

		// AWS configuration
		AWSRegion: getEnvOrDefault("AWS_REGION", "us-east-1"),

		// DynamoDB configuration
		DynamoDBSitesTable:     getEnvOrDefault("DYNAMODB_SITES_TABLE", "Sites"),
		DynamoDBUsageTable:     getEnvOrDefault("DYNAMODB_USAGE_TABLE", "LlmUsage"),
		DynamoDBProspectsTable: getEnvOrDefault("DYNAMODB_PROSPECTS_TABLE", "Prospects"),

		// Site archive
		ArchiveBucket:    getEnvOrDefault("ARCHIVE_BUCKET", "site-archive"),
		ArchiveEndpoint:  os.Getenv("ARCHIVE_ENDPOINT"),
		ArchiveAccessKey: os.Getenv("ARCHIVE_ACCESS_KEY"),
		ArchiveSecretKey: os.Getenv("ARCHIVE_SECRET_KEY"),

		// Anthropic configuration
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL:     os.Getenv("ANTHROPIC_BASE_URL"),
		ExtractModel:         getEnvOrDefault("EXTRACT_MODEL", "claude-sonnet-4-5"),
		GenerateModel:        getEnvOrDefault("GENERATE_MODEL", "claude-opus-4-1"),
		EditModel:            getEnvOrDefault("EDIT_MODEL", "claude-sonnet-4-5"),
		ExtractMaxTokens:     p.int64("EXTRACT_MAX_TOKENS", 4096),
		GenerateMaxTokens:    p.int64("GENERATE_MAX_TOKENS", 32000),
		EditMaxTokens:        p.int64("EDIT_MAX_TOKENS", 16000),
		ThinkingBudgetTokens: p.int64("THINKING_BUDGET_TOKENS", 0),
		ModelRatesFile:       os.Getenv("MODEL_RATES_FILE"),

		// Vercel configuration
		VercelToken:        os.Getenv("VERCEL_TOKEN"),
		VercelAPIURL:       getEnvOrDefault("VERCEL_API_URL", "https://api.vercel.com"),
		VercelTeamID:       os.Getenv("VERCEL_TEAM_ID"),
		ProjectPrefix:      getEnvOrDefault("PROJECT_PREFIX", "site"),
		DeployPollInterval: p.duration("DEPLOY_POLL_INTERVAL", 5*time.Second),
		DeployPollAttempts: p.int("DEPLOY_POLL_ATTEMPTS", 60),

		// Redis configuration
		RedisAddr:       getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedeployLockTTL: p.duration("REDEPLOY_LOCK_TTL", 10*time.Minute),

		// Worker pool configuration
		WorkerCount: p.int("WORKER_COUNT", 2),
		QueueSize:   p.int("QUEUE_SIZE", 100),

		// Auth0 configuration (optional)
		Auth0Domain:   os.Getenv("AUTH0_DOMAIN"),
		Auth0Audience: os.Getenv("AUTH0_AUDIENCE"),
	}

	if p.err != nil {
		return nil, p.err
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration values are present and valid
func (c *Config) validate() error {
	var missing []string

	if c.AnthropicAPIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if c.VercelToken == "" {
		missing = append(missing, "VERCEL_TOKEN")
	}

	if len(missing) > 0 {
		return fmt.Errorf("Missing required configuration values: %v", missing)
	}

	if c.DeployPollAttempts < 1 {
		return fmt.Errorf("DEPLOY_POLL_ATTEMPTS must be at least 1 (got %d)", c.DeployPollAttempts)
	}
	if c.DeployPollInterval <= 0 {
		return fmt.Errorf("DEPLOY_POLL_INTERVAL must be positive (got %s)", c.DeployPollInterval)
	}
	if c.ThinkingBudgetTokens < 0 {
		return fmt.Errorf("THINKING_BUDGET_TOKENS must not be negative (got %d)", c.ThinkingBudgetTokens)
	}
	if c.ThinkingBudgetTokens > 0 && c.ThinkingBudgetTokens >= c.GenerateMaxTokens {
		return fmt.Errorf("THINKING_BUDGET_TOKENS (%d) must be below GENERATE_MAX_TOKENS (%d)", c.ThinkingBudgetTokens, c.GenerateMaxTokens)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1 (got %d)", c.WorkerCount)
	}

	return nil
}

// envParser collects the first parse failure so Load can report it once
type envParser struct {
	err error
}

func (p *envParser) int(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s must be an integer (got '%s')", key, raw)
	}
	return v
}

func (p *envParser) int64(key string, defaultValue int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s must be an integer (got '%s')", key, raw)
	}
	return v
}

func (p *envParser) duration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s must be a duration like 5s (got '%s')", key, raw)
	}
	return v
}

// splitList parses a comma-separated list, dropping empty entries
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper methods for accessing configuration values

// GetPort returns the server port
func (c *Config) GetPort() string {
	return c.Port
}

// GetLogLevel returns the logging level
func (c *Config) GetLogLevel() string {
	return c.LogLevel
}

// GetAWSRegion returns the AWS region
func (c *Config) GetAWSRegion() string {
	return c.AWSRegion
}

// GetAuth0Domain returns the Auth0 domain (may be empty)
func (c *Config) GetAuth0Domain() string {
	return c.Auth0Domain
}

// GetAuth0Audience returns the Auth0 audience (may be empty)
func (c *Config) GetAuth0Audience() string {
	return c.Auth0Audience
}
