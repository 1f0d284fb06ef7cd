package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string
	AppURL string

	// Database
	DBDriver          string // postgres or sqlite
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	SQLitePath        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	// JWT
	JWTSecret string
	JWTExpiry time.Duration

	// Stripe
	StripeSecretKey                string
	StripeWebhookSecret            string
	StripePricePremiumMonthly      string
	StripePricePremiumYearly       string
	StripePriceProfessionalMonthly string
	StripePriceProfessionalYearly  string

	// Entitlements and goals
	TrialDays             int
	AllowNegativeProgress bool

	// Rate limiting
	RedisURL string

	// Observability
	SentryDSN string

	// Server
	Port        string
	CORSOrigins string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		AppEnv: getEnv("APP_ENV", "production"),
		AppURL: getEnv("APP_URL", "http://localhost:8080"),

		DBDriver:          getEnv("DB_DRIVER", "postgres"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "selfhypnosis"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		SQLitePath:        getEnv("SQLITE_PATH", "data/app.db"),
		DBMaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "5m"), 5*time.Minute),
		DBConnMaxIdleTime: parseDuration(getEnv("DB_CONN_MAX_IDLE_TIME", "2m"), 2*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: parseDuration(getEnv("JWT_EXPIRY", "720h"), 30*24*time.Hour),

		StripeSecretKey:                getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:            getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePricePremiumMonthly:      getEnv("STRIPE_PRICE_PREMIUM_MONTHLY", "price_premium_monthly"),
		StripePricePremiumYearly:       getEnv("STRIPE_PRICE_PREMIUM_YEARLY", "price_premium_yearly"),
		StripePriceProfessionalMonthly: getEnv("STRIPE_PRICE_PROFESSIONAL_MONTHLY", "price_professional_monthly"),
		StripePriceProfessionalYearly:  getEnv("STRIPE_PRICE_PROFESSIONAL_YEARLY", "price_professional_yearly"),

		TrialDays:             getInt("TRIAL_DAYS", 7),
		AllowNegativeProgress: getBool("ALLOW_NEGATIVE_PROGRESS", true),

		RedisURL: getEnv("REDIS_URL", ""),

		SentryDSN: getEnv("SENTRY_DSN", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "development"
}

// UpgradeURL is where clients send a user to pick a paid plan.
func (c *Config) UpgradeURL() string {
	return strings.TrimRight(c.AppURL, "/") + "/subscription"
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
