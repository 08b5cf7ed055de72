package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Kafka notifications
	Kafka KafkaConfig

	// Waitlist engine tuning
	Waitlist WaitlistConfig

	// Periodic jobs
	Scheduler SchedulerConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	// TTL values for different operations
	RuleCacheTTL time.Duration
	SweepLockTTL time.Duration
	CacheTTL     time.Duration
	TempDataTTL  time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
	Issuer string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled          bool          `json:"enabled"`
	WindowDuration   time.Duration `json:"window_duration"`
	DefaultRequests  int           `json:"default_requests"`
	PublicRequests   int           `json:"public_requests"`
	ProviderRequests int           `json:"provider_requests"`
	AdminRequests    int           `json:"admin_requests"`
	WhitelistedIPs   []string      `json:"whitelisted_ips"`
}

// KafkaConfig holds the notification producer configuration
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
	MaxRetry int
}

// WaitlistConfig holds the engine's tunables
type WaitlistConfig struct {
	DefaultOfferWindowHours int
	SignificantChangeMin    int
	MaxReservationTTL       time.Duration
	ReminderLeadTime        time.Duration
	SweepBatchSize          int
	ThroughputLookback      time.Duration
	DefaultOffersPerMonth   float64
	DefaultAcceptanceRate   float64
	SeasonalAdjustment      map[time.Month]float64
	DefaultDepositAmount    string
}

// SchedulerConfig holds cron specs for periodic jobs (seconds field included)
type SchedulerConfig struct {
	ExpireOffersSpec      string
	OfferRemindersSpec    string
	RecalculateSpec       string
	PromoteEnrollmentSpec string
	JobTimeout            time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "carequeue_db"),
			User:            getEnv("DB_USER", "carequeue_user"),
			Password:        getEnv("DB_PASSWORD", "carequeue_password"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),

			RuleCacheTTL: getDurationEnv("REDIS_RULE_CACHE_TTL", 10*time.Minute),
			SweepLockTTL: getDurationEnv("REDIS_SWEEP_LOCK_TTL", 5*time.Minute),
			CacheTTL:     getDurationEnv("REDIS_CACHE_TTL", 1*time.Hour),
			TempDataTTL:  getDurationEnv("REDIS_TEMP_DATA_TTL", 5*time.Minute),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
			Issuer: getEnv("JWT_ISSUER", "carequeue"),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:          getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:   getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:  getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:   getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			ProviderRequests: getIntEnv("RATE_LIMIT_PROVIDER_REQUESTS", 120),
			AdminRequests:    getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			WhitelistedIPs:   getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		Kafka: KafkaConfig{
			Enabled:  getBoolEnv("KAFKA_ENABLED", false),
			Brokers:  getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:    getEnv("KAFKA_NOTIFICATION_TOPIC", "waitlist-notifications"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "carequeue"),
			MaxRetry: getIntEnv("KAFKA_MAX_RETRY", 3),
		},

		Waitlist: WaitlistConfig{
			DefaultOfferWindowHours: getIntEnv("WAITLIST_OFFER_WINDOW_HOURS", 48),
			SignificantChangeMin:    getIntEnv("WAITLIST_SIGNIFICANT_CHANGE", 3),
			MaxReservationTTL:       getDurationEnv("WAITLIST_MAX_RESERVATION_TTL", 720*time.Hour),
			ReminderLeadTime:        getDurationEnv("WAITLIST_REMINDER_LEAD_TIME", 12*time.Hour),
			SweepBatchSize:          getIntEnv("WAITLIST_SWEEP_BATCH_SIZE", 200),
			ThroughputLookback:      getDurationEnv("WAITLIST_THROUGHPUT_LOOKBACK", 90*24*time.Hour),
			DefaultOffersPerMonth:   getFloatEnv("WAITLIST_DEFAULT_OFFERS_PER_MONTH", 2),
			DefaultAcceptanceRate:   getFloatEnv("WAITLIST_DEFAULT_ACCEPTANCE_RATE", 0.7),
			SeasonalAdjustment:      getSeasonalEnv("WAITLIST_SEASONAL_ADJUSTMENT", defaultSeasonalAdjustment()),
			DefaultDepositAmount:    getEnv("WAITLIST_DEFAULT_DEPOSIT", "0"),
		},

		Scheduler: SchedulerConfig{
			ExpireOffersSpec:      getEnv("CRON_EXPIRE_OFFERS", "0 */5 * * * *"),
			OfferRemindersSpec:    getEnv("CRON_OFFER_REMINDERS", "0 0 * * * *"),
			RecalculateSpec:       getEnv("CRON_RECALCULATE_POSITIONS", "0 0 3 * * *"),
			PromoteEnrollmentSpec: getEnv("CRON_PROMOTE_ENROLLMENTS", "0 30 3 * * *"),
			JobTimeout:            getDurationEnv("CRON_JOB_TIMEOUT", 10*time.Minute),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// defaultSeasonalAdjustment favours September intake and slows December.
func defaultSeasonalAdjustment() map[time.Month]float64 {
	return map[time.Month]float64{
		time.August:    1.2,
		time.September: 1.5,
		time.December:  0.7,
	}
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// getSeasonalEnv parses "9:1.5,12:0.7" (month number : multiplier).
func getSeasonalEnv(key string, fallback map[time.Month]float64) map[time.Month]float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	result := make(map[time.Month]float64)
	for _, part := range strings.Split(value, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) != 2 {
			continue
		}
		month, err := strconv.Atoi(strings.TrimSpace(kv[0]))
		if err != nil || month < 1 || month > 12 {
			continue
		}
		factor, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil || factor <= 0 {
			continue
		}
		result[time.Month(month)] = factor
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
