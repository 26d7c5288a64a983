package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Reconciliation ReconciliationConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RatePerSec   int
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ReconciliationConfig carries every tolerance, window and threshold the
// detection and resolution paths use. Defaults follow the behaviour of the
// production data set: credit-card repayments land up to ten days after the
// billing cycle ends, and small rounding noise of a few currency units is
// normal.
type ReconciliationConfig struct {
	// Aggregate credit-card-payment matching.
	AggregateDateWindowDays int
	AmountTolerancePercent  float64
	AmountToleranceEpsilon  decimal.Decimal
	ImmediateWindowDays     int

	// Pairwise pattern matching.
	PairDateWindowDays  int
	PairAmountTolerance decimal.Decimal

	// Manual duplicate heuristic.
	ManualDateWindowDays int

	// Confidence scoring.
	AggregateBaseConfidence float64
	ManualBaseConfidence    float64
	MatchCountBoostStep     float64
	MatchCountBoostCap      float64

	// Pattern learning.
	PatternLearnThreshold int
	MinFragmentRunes      int
	LearnSchedule         string
	LearnDebounceCount    int

	// Investment link suggestions.
	LinkReappearThreshold int

	// Account matching tiers.
	LinkedAccountThreshold float64
	KnownVendorThreshold   float64
	RuleThreshold          float64
	TypePatternThreshold   float64

	// Detection fan-out.
	MaxDetectWorkers int
}

func Load() *Config {
	// Missing .env is fine; the environment may be injected directly.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			Environment:  getEnv("APP_ENV", "development"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			RatePerSec:   getIntEnv("RATE_LIMIT_PER_SECOND", 20),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "clarify_user"),
			Password:        getEnv("DB_PASSWORD", "clarify_password"),
			Name:            getEnv("DB_NAME", "clarify_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getIntEnv("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Reconciliation: DefaultReconciliation(),
	}
}

// DefaultReconciliation returns the reconciliation tuning with env overrides
// applied. Services take this struct directly so tests can tighten windows
// without touching the environment.
func DefaultReconciliation() ReconciliationConfig {
	return ReconciliationConfig{
		AggregateDateWindowDays: getIntEnv("RECON_AGGREGATE_DATE_WINDOW_DAYS", 10),
		AmountTolerancePercent:  getFloatEnv("RECON_AMOUNT_TOLERANCE_PERCENT", 0.01),
		AmountToleranceEpsilon:  getDecimalEnv("RECON_AMOUNT_TOLERANCE_EPSILON", "5.00"),
		ImmediateWindowDays:     getIntEnv("RECON_IMMEDIATE_WINDOW_DAYS", 7),

		PairDateWindowDays:  getIntEnv("RECON_PAIR_DATE_WINDOW_DAYS", 7),
		PairAmountTolerance: getDecimalEnv("RECON_PAIR_AMOUNT_TOLERANCE", "2.00"),

		ManualDateWindowDays: getIntEnv("RECON_MANUAL_DATE_WINDOW_DAYS", 3),

		AggregateBaseConfidence: getFloatEnv("RECON_AGGREGATE_BASE_CONFIDENCE", 0.95),
		ManualBaseConfidence:    getFloatEnv("RECON_MANUAL_BASE_CONFIDENCE", 0.5),
		MatchCountBoostStep:     getFloatEnv("RECON_MATCH_COUNT_BOOST_STEP", 0.05),
		MatchCountBoostCap:      getFloatEnv("RECON_MATCH_COUNT_BOOST_CAP", 0.15),

		PatternLearnThreshold: getIntEnv("RECON_PATTERN_LEARN_THRESHOLD", 3),
		MinFragmentRunes:      getIntEnv("RECON_MIN_FRAGMENT_RUNES", 4),
		LearnSchedule:         getEnv("RECON_LEARN_SCHEDULE", "@every 10m"),
		LearnDebounceCount:    getIntEnv("RECON_LEARN_DEBOUNCE_COUNT", 3),

		LinkReappearThreshold: getIntEnv("RECON_LINK_REAPPEAR_THRESHOLD", 3),

		LinkedAccountThreshold: getFloatEnv("RECON_LINKED_ACCOUNT_THRESHOLD", 0.8),
		KnownVendorThreshold:   getFloatEnv("RECON_KNOWN_VENDOR_THRESHOLD", 0.7),
		RuleThreshold:          getFloatEnv("RECON_RULE_THRESHOLD", 0.7),
		TypePatternThreshold:   getFloatEnv("RECON_TYPE_PATTERN_THRESHOLD", 0.6),

		MaxDetectWorkers: getIntEnv("RECON_MAX_DETECT_WORKERS", 8),
	}
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getDecimalEnv(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultValue)
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
