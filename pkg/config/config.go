package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Booking  BookingConfig
	Jobs     JobsConfig
	Mail     MailConfig
	Holidays HolidaysConfig
	Stats    StatsConfig
	Exports  ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	SingleSession     bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BookingConfig carries the business rules of the appointment calendar.
type BookingConfig struct {
	Timezone         string
	HorizonDays      int
	MaxPerDay        int
	CancelNotice     time.Duration
	CompletionMaxAge time.Duration
}

// JobsConfig drives the background scheduler.
type JobsConfig struct {
	Enabled             bool
	ReminderTime        string
	ExpirySweepInterval time.Duration
	ExpiryGrace         time.Duration
	AutoCancelInterval  time.Duration
	PendingMaxAge       time.Duration
}

// MailConfig centralises every outbound-email setting so notification
// senders never read the environment themselves.
type MailConfig struct {
	Enabled      bool
	SendGridKey  string
	FromAddress  string
	FromName     string
	AdminAddress string
	FrontendURL  string
	SendTimeout  time.Duration
	QueueWorkers int
	QueueBuffer  int
	MaxRetries   int
	RetryDelay   time.Duration
}

// HolidaysConfig points the calendar at a public-holiday source plus
// fixed agency closure days.
type HolidaysConfig struct {
	APIURL     string
	APITimeout time.Duration
	Closures   []string
}

// StatsConfig tunes the admin dashboard cache.
type StatsConfig struct {
	CacheTTL time.Duration
}

// ExportsConfig controls generated appointment exports.
type ExportsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		SingleSession:     v.GetBool("JWT_SINGLE_SESSION"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Booking = BookingConfig{
		Timezone:         v.GetString("BOOKING_TIMEZONE"),
		HorizonDays:      v.GetInt("BOOKING_HORIZON_DAYS"),
		MaxPerDay:        v.GetInt("BOOKING_MAX_PER_DAY"),
		CancelNotice:     parseDuration(v.GetString("BOOKING_CANCEL_NOTICE"), 2*time.Hour),
		CompletionMaxAge: parseDuration(v.GetString("BOOKING_COMPLETION_MAX_AGE"), 7*24*time.Hour),
	}

	cfg.Jobs = JobsConfig{
		Enabled:             v.GetBool("JOBS_ENABLED"),
		ReminderTime:        v.GetString("JOBS_REMINDER_TIME"),
		ExpirySweepInterval: parseDuration(v.GetString("JOBS_EXPIRY_SWEEP_INTERVAL"), 10*time.Minute),
		ExpiryGrace:         parseDuration(v.GetString("JOBS_EXPIRY_GRACE"), 10*time.Minute),
		AutoCancelInterval:  parseDuration(v.GetString("JOBS_AUTO_CANCEL_INTERVAL"), time.Hour),
		PendingMaxAge:       parseDuration(v.GetString("JOBS_PENDING_MAX_AGE"), 5*time.Hour),
	}

	cfg.Mail = MailConfig{
		Enabled:      v.GetBool("MAIL_ENABLED"),
		SendGridKey:  v.GetString("SENDGRID_API_KEY"),
		FromAddress:  v.GetString("MAIL_FROM_ADDRESS"),
		FromName:     v.GetString("MAIL_FROM_NAME"),
		AdminAddress: v.GetString("MAIL_ADMIN_ADDRESS"),
		FrontendURL:  v.GetString("FRONTEND_URL"),
		SendTimeout:  parseDuration(v.GetString("MAIL_SEND_TIMEOUT"), 10*time.Second),
		QueueWorkers: v.GetInt("MAIL_QUEUE_WORKERS"),
		QueueBuffer:  v.GetInt("MAIL_QUEUE_BUFFER"),
		MaxRetries:   v.GetInt("MAIL_MAX_RETRIES"),
		RetryDelay:   parseDuration(v.GetString("MAIL_RETRY_DELAY"), 30*time.Second),
	}

	cfg.Holidays = HolidaysConfig{
		APIURL:     v.GetString("HOLIDAYS_API_URL"),
		APITimeout: parseDuration(v.GetString("HOLIDAYS_API_TIMEOUT"), 3*time.Second),
		Closures:   splitAndTrim(v.GetString("AGENCY_CLOSURE_DATES")),
	}

	cfg.Stats = StatsConfig{
		CacheTTL: parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled:         v.GetBool("ENABLE_EXPORTS"),
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "horizon_backoffice")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_SINGLE_SESSION", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOKING_TIMEZONE", "Europe/Paris")
	v.SetDefault("BOOKING_HORIZON_DAYS", 60)
	v.SetDefault("BOOKING_MAX_PER_DAY", 24)
	v.SetDefault("BOOKING_CANCEL_NOTICE", "2h")
	v.SetDefault("BOOKING_COMPLETION_MAX_AGE", "168h")

	v.SetDefault("JOBS_ENABLED", true)
	v.SetDefault("JOBS_REMINDER_TIME", "08:00")
	v.SetDefault("JOBS_EXPIRY_SWEEP_INTERVAL", "10m")
	v.SetDefault("JOBS_EXPIRY_GRACE", "10m")
	v.SetDefault("JOBS_AUTO_CANCEL_INTERVAL", "1h")
	v.SetDefault("JOBS_PENDING_MAX_AGE", "5h")

	v.SetDefault("MAIL_ENABLED", false)
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@horizon-etudes.fr")
	v.SetDefault("MAIL_FROM_NAME", "Horizon Études")
	v.SetDefault("MAIL_ADMIN_ADDRESS", "contact@horizon-etudes.fr")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("MAIL_SEND_TIMEOUT", "10s")
	v.SetDefault("MAIL_QUEUE_WORKERS", 2)
	v.SetDefault("MAIL_QUEUE_BUFFER", 64)
	v.SetDefault("MAIL_MAX_RETRIES", 2)
	v.SetDefault("MAIL_RETRY_DELAY", "30s")

	v.SetDefault("HOLIDAYS_API_URL", "https://calendrier.api.gouv.fr/jours-feries/metropole")
	v.SetDefault("HOLIDAYS_API_TIMEOUT", "3s")
	v.SetDefault("AGENCY_CLOSURE_DATES", "")

	v.SetDefault("STATS_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
