package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	HordeAPIKey  string
	HordeBaseURL string
	HordeModel   string
	ClientAgent  string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	MaxUploadBytes int64
	DetectCacheTTL time.Duration

	PollInitial      time.Duration
	PollMultiplier   float64
	PollMax          time.Duration
	PollFailureLimit int
	SubmitRetries    int
	SubmitRetryDelay time.Duration
	SubmitInterval   time.Duration
	ModifyBudget     time.Duration
	GenerateBudget   time.Duration
	MaxConcurrent    int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		// "0000000000" is the AI Horde anonymous key.
		HordeAPIKey:  getEnv("STABLE_HORDE_API_KEY", "0000000000"),
		HordeBaseURL: getEnv("HORDE_BASE_URL", "https://stablehorde.net/api/v2"),
		HordeModel:   getEnv("HORDE_MODEL", "stable_diffusion"),
		ClientAgent:  getEnv("HORDE_CLIENT_AGENT", "emotion-portrait-service/1.0"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  int32(getEnvInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getEnvInt("DB_MIN_CONNS", 1)),

		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 5*1024*1024)),
		DetectCacheTTL: time.Second * time.Duration(getEnvInt("DETECT_CACHE_TTL_SECONDS", 600)),

		PollInitial:      time.Second * time.Duration(getEnvInt("POLL_INITIAL_SECONDS", 5)),
		PollMultiplier:   getEnvFloat("POLL_MULTIPLIER", 1.5),
		PollMax:          time.Second * time.Duration(getEnvInt("POLL_MAX_SECONDS", 20)),
		PollFailureLimit: getEnvInt("POLL_FAILURE_LIMIT", 3),
		SubmitRetries:    getEnvInt("SUBMIT_RETRIES", 2),
		SubmitRetryDelay: time.Second * time.Duration(getEnvInt("SUBMIT_RETRY_DELAY_SECONDS", 10)),
		SubmitInterval:   time.Second * time.Duration(getEnvInt("SUBMIT_INTERVAL_SECONDS", 2)),
		ModifyBudget:     time.Second * time.Duration(getEnvInt("MODIFY_TIMEOUT_SECONDS", 180)),
		GenerateBudget:   time.Second * time.Duration(getEnvInt("GENERATE_TIMEOUT_SECONDS", 300)),
		MaxConcurrent:    getEnvInt("MAX_CONCURRENT_GENERATIONS", 4),

		HTTPReadTimeout: time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout: time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	// The write timeout must outlive the longest generation budget, since
	// the handler streams the final image on the same response.
	cfg.HTTPWriteTimeout = time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS",
		int(cfg.GenerateBudget/time.Second)+60))

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.PollMultiplier < 1 {
		return nil, fmt.Errorf("POLL_MULTIPLIER must be >= 1")
	}
	if cfg.MaxConcurrent <= 0 {
		return nil, fmt.Errorf("MAX_CONCURRENT_GENERATIONS must be positive")
	}
	if cfg.DBMaxConns <= 0 || cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS must satisfy 0 <= min <= max, max > 0")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
