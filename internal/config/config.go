package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port    string
	DataDir string

	// Capacity ceilings, enforced before any other submission check
	MaxEntries      int
	MaxStorageBytes int64
	MaxRequestBytes int

	// Per-identity submission rate limiting (sliding window)
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Rewards accounting
	RewardPerEntry   float64
	MinContributions int

	// Semantic reviewer (stage two of the moderation gate)
	ReviewerConfigPath string
	ReviewerTimeout    time.Duration
	ReviewerRPS        float64

	// Settlement collaborator
	SettlementURL      string
	SettlementInterval time.Duration

	// Periodic snapshot re-flush (accepts already persist synchronously)
	SnapshotInterval time.Duration

	// Optional collaborators
	RedisURL    string
	AuditDBPath string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:    getEnv("PORT", "8000"),
		DataDir: getEnv("DATA_DIR", "./data"),

		MaxEntries:      getIntEnv("MAX_EXPERIENCES", 100000),
		MaxStorageBytes: int64(getIntEnv("MAX_STORAGE_MB", 1000)) * 1024 * 1024,
		MaxRequestBytes: getIntEnv("MAX_REQUEST_BYTES", 10*1024),

		RateLimitMax:    getIntEnv("RATE_LIMIT_MAX", 3),
		RateLimitWindow: getDurationEnv("RATE_LIMIT_WINDOW", 3600*time.Second),

		RewardPerEntry:   getFloatEnv("REWARD_PER_ENTRY", 2.0),
		MinContributions: getIntEnv("MIN_CONTRIBUTIONS", 5),

		ReviewerConfigPath: getEnv("REVIEWER_CONFIG", "./reviewer.json"),
		ReviewerTimeout:    getDurationEnv("REVIEWER_TIMEOUT", 20*time.Second),
		ReviewerRPS:        getFloatEnv("REVIEWER_RPS", 2.0),

		SettlementURL:      getEnv("SETTLEMENT_URL", ""),
		SettlementInterval: getDurationEnv("SETTLEMENT_INTERVAL", 1*time.Minute),

		SnapshotInterval: getDurationEnv("SNAPSHOT_INTERVAL", 5*time.Minute),

		RedisURL:    getEnv("REDIS_URL", ""),
		AuditDBPath: getEnv("AUDIT_DB_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
