package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Analysis providers
const (
	ProviderGateway = "gateway"
	ProviderGemini  = "gemini"
)

// Config holds all application configuration
type Config struct {
	// Sports data API (RapidAPI)
	SportAPIKey         string        `envconfig:"SPORTAPI_KEY" required:"true"`
	SportAPIBaseURL     string        `envconfig:"SPORTAPI_BASE_URL" default:"https://sportapi7.p.rapidapi.com/api/v1"`
	SportAPIHost        string        `envconfig:"SPORTAPI_HOST" default:"sportapi7.p.rapidapi.com"`
	SportAPISport       string        `envconfig:"SPORTAPI_SPORT" default:"football"`
	SportAPITimeout     time.Duration `envconfig:"SPORTAPI_TIMEOUT" default:"30s"`
	SportAPIMinInterval time.Duration `envconfig:"SPORTAPI_MIN_INTERVAL" default:"300ms"`
	SportAPIMaxRetries  int           `envconfig:"SPORTAPI_MAX_RETRIES" default:"2"`

	// Language model gateway (OpenAI-compatible chat completions)
	LLMAPIKey     string        `envconfig:"LLM_API_KEY" required:"true"`
	LLMBaseURL    string        `envconfig:"LLM_BASE_URL" default:"https://ai.gateway.lovable.dev/v1"`
	LLMModel      string        `envconfig:"LLM_MODEL" default:"google/gemini-2.5-flash"`
	LLMTimeout    time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	LLMModelLabel string        `envconfig:"PREDICTION_MODEL_LABEL" default:"Gemini 2.5 Flash (CoT)"`

	// Analysis function
	AnalysisProvider string `envconfig:"ANALYSIS_PROVIDER" default:"gateway"`
	GeminiAPIKey     string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel      string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Database
	DatabaseHost        string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort        int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName        string `envconfig:"DATABASE_NAME" default:"matchpredict"`
	DatabaseUser        string `envconfig:"DATABASE_USER" default:"matchpredict"`
	DatabasePassword    string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode     string `envconfig:"DATABASE_SSL_MODE" default:"disable"`
	DatabaseAutoMigrate bool   `envconfig:"DATABASE_AUTO_MIGRATE" default:"true"`

	// Redis
	RedisEnabled   bool   `envconfig:"REDIS_ENABLED" default:"true"`
	RedisHost      string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort      int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	ChangesChannel string `envconfig:"CHANGES_CHANNEL" default:"predictions:changes"`

	// Caching TTL (in seconds)
	CacheTTLTeamForm int `envconfig:"CACHE_TTL_TEAM_FORM" default:"21600"` // 6 hours

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`

	// Pipeline
	TrackedLeagues  []string      `envconfig:"TRACKED_LEAGUES" default:"Premier League,La Liga,Serie A,Bundesliga,Ligue 1,Süper Lig,Champions League,Europa League,Conference League,Championship,Eredivisie,Primeira Liga,MLS"`
	MaxEventsPerRun int           `envconfig:"MAX_EVENTS_PER_RUN" default:"15"`
	Retention       time.Duration `envconfig:"PREDICTION_RETENTION" default:"48h"`
	RateLimitPause  time.Duration `envconfig:"RATE_LIMIT_PAUSE" default:"3s"`
	CallPause       time.Duration `envconfig:"CALL_PAUSE" default:"800ms"`
	RunTimezone     string        `envconfig:"RUN_TIMEZONE" default:"Local"`

	// Scheduler
	EnableScheduler      bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	FetchCron            string        `envconfig:"FETCH_CRON" default:"0 */4 * * *"`
	StatsRefreshInterval time.Duration `envconfig:"STATS_REFRESH_INTERVAL" default:"60s"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SportAPIKey) == "" {
		return fmt.Errorf("SPORTAPI_KEY is required")
	}

	if strings.TrimSpace(c.LLMAPIKey) == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}

	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	switch c.AnalysisProvider {
	case ProviderGateway:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when ANALYSIS_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unknown ANALYSIS_PROVIDER %q", c.AnalysisProvider)
	}

	if len(c.TrackedLeagues) == 0 {
		return fmt.Errorf("TRACKED_LEAGUES must list at least one league")
	}

	if c.MaxEventsPerRun <= 0 {
		return fmt.Errorf("MAX_EVENTS_PER_RUN must be positive")
	}

	if _, err := time.LoadLocation(c.RunTimezone); err != nil {
		return fmt.Errorf("invalid RUN_TIMEZONE: %w", err)
	}

	return nil
}

// RunLocation returns the location used to resolve "today" for a pipeline run
func (c *Config) RunLocation() *time.Location {
	loc, err := time.LoadLocation(c.RunTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// TeamFormTTL returns the cache lifetime of team form strings
func (c *Config) TeamFormTTL() time.Duration {
	return time.Duration(c.CacheTTLTeamForm) * time.Second
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
