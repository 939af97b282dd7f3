package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // CAFE_TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/eightonethree/cafe-api/internal/domain"
)

// Config is the process configuration, read from the environment (and optional .env files).
type Config struct {
	Env      string
	Port     string
	LogLevel string

	// StorageBackend is "memory" or "postgres".
	StorageBackend string
	DatabaseURL    string

	// RedisURL enables the Redis activity log and reset lock when set.
	RedisURL string
	// RabbitMQURL enables domain event publishing when set.
	RabbitMQURL string

	// AuthMode is "jwt" (bearer tokens) or "dev" (X-Debug-Subject header).
	AuthMode   string
	DevSubject string
	DevRole    string

	Token TokenConfig
	Cafe  CafeConfig
	Mail  MailConfig

	// SiteContentPath overrides the embedded menu/hours/contact content.
	SiteContentPath string
}

// TokenConfig configures issuing and verifying member access tokens.
type TokenConfig struct {
	Issuer string
	Secret string
	TTL    time.Duration
}

// CafeConfig holds business rules that vary per site.
type CafeConfig struct {
	Location *time.Location

	SessionCapacity         int
	BookingWindowDays       int
	VoucherDiscountPercent  int
	RequirePaidSubscription bool
	ActivityLogCap          int

	// ResetLockTTL bounds how long one instance may hold the daily reset lock.
	ResetLockTTL time.Duration
}

type MailConfig struct {
	SendGridAPIKey string
	FromName       string
	FromEmail      string
}

// Load reads .env.<env> and .env (both optional) and then the process environment.
func Load() (Config, error) {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("ENV")))
	if env == "" {
		env = "dev"
	}
	for _, f := range []string{".env." + env, ".env"} {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.Set("env", env)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("storage_backend", "memory")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("rabbitmq_url", "")
	v.SetDefault("auth_mode", "jwt")
	v.SetDefault("dev_subject", "")
	v.SetDefault("dev_role", string(domain.RoleMember))

	v.SetDefault("token_issuer", "813-cafe")
	v.SetDefault("token_secret", "")
	v.SetDefault("token_ttl", "168h")

	v.SetDefault("cafe_timezone", "Europe/Berlin")
	v.SetDefault("session_capacity", domain.DefaultSessionCapacity)
	v.SetDefault("booking_window_days", 14)
	v.SetDefault("voucher_discount_percent", 10)
	v.SetDefault("require_paid_subscription", true)
	v.SetDefault("activity_log_cap", domain.DefaultActivityLogCap)
	v.SetDefault("reset_lock_ttl", "5m")

	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("mail_from_name", "813 Café")
	v.SetDefault("mail_from_email", "hello@813cafe.local")

	v.SetDefault("site_content_path", "")
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:             v.GetString("env"),
		Port:            v.GetString("port"),
		LogLevel:        strings.ToLower(v.GetString("log_level")),
		StorageBackend:  strings.ToLower(v.GetString("storage_backend")),
		DatabaseURL:     v.GetString("database_url"),
		RedisURL:        v.GetString("redis_url"),
		RabbitMQURL:     v.GetString("rabbitmq_url"),
		AuthMode:        strings.ToLower(v.GetString("auth_mode")),
		DevSubject:      v.GetString("dev_subject"),
		DevRole:         strings.ToUpper(v.GetString("dev_role")),
		SiteContentPath: v.GetString("site_content_path"),
		Token: TokenConfig{
			Issuer: v.GetString("token_issuer"),
			Secret: v.GetString("token_secret"),
		},
		Mail: MailConfig{
			SendGridAPIKey: v.GetString("sendgrid_api_key"),
			FromName:       v.GetString("mail_from_name"),
			FromEmail:      v.GetString("mail_from_email"),
		},
		Cafe: CafeConfig{
			SessionCapacity:         v.GetInt("session_capacity"),
			BookingWindowDays:       v.GetInt("booking_window_days"),
			VoucherDiscountPercent:  v.GetInt("voucher_discount_percent"),
			RequirePaidSubscription: v.GetBool("require_paid_subscription"),
			ActivityLogCap:          v.GetInt("activity_log_cap"),
		},
	}

	ttl, err := time.ParseDuration(v.GetString("token_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("TOKEN_TTL must be a duration (e.g. 168h): %w", err)
	}
	cfg.Token.TTL = ttl

	lockTTL, err := time.ParseDuration(v.GetString("reset_lock_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("RESET_LOCK_TTL must be a duration (e.g. 5m): %w", err)
	}
	cfg.Cafe.ResetLockTTL = lockTTL

	loc, err := time.LoadLocation(v.GetString("cafe_timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("CAFE_TIMEZONE must be an IANA zone name: %w", err)
	}
	cfg.Cafe.Location = loc

	switch cfg.StorageBackend {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be memory or postgres, got %q", cfg.StorageBackend)
	}

	switch cfg.AuthMode {
	case "dev":
	case "jwt":
		if cfg.Token.Secret == "" {
			return Config{}, fmt.Errorf("missing required env var: TOKEN_SECRET")
		}
	default:
		return Config{}, fmt.Errorf("AUTH_MODE must be jwt or dev, got %q", cfg.AuthMode)
	}

	if cfg.Cafe.SessionCapacity < 1 {
		return Config{}, fmt.Errorf("SESSION_CAPACITY must be >= 1")
	}
	if cfg.Cafe.VoucherDiscountPercent < 1 || cfg.Cafe.VoucherDiscountPercent > 100 {
		return Config{}, fmt.Errorf("VOUCHER_DISCOUNT_PERCENT must be between 1 and 100")
	}
	if cfg.Cafe.ActivityLogCap < 1 {
		return Config{}, fmt.Errorf("ACTIVITY_LOG_CAP must be >= 1")
	}
	return cfg, nil
}

func (c Config) IsDevelopment() bool { return c.Env == "dev" }
