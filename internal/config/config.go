package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Supabase SupabaseConfig
	Cache    CacheConfig
	Audit    AuditConfig
	Security SecurityConfig
	Exchange ExchangeConfig
	Jobs     JobsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"marketplace-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	SiteURL     string `envconfig:"APP_SITE_URL" default:"http://localhost:3000"`
}

// SupabaseConfig holds the hosted database/auth/storage platform settings.
type SupabaseConfig struct {
	URL            string        `envconfig:"SUPABASE_URL" required:"true"`
	AnonKey        string        `envconfig:"SUPABASE_ANON_KEY" required:"true"`
	ServiceRoleKey string        `envconfig:"SUPABASE_SERVICE_ROLE_KEY" default:""`
	JWTSecret      string        `envconfig:"SUPABASE_JWT_SECRET" default:""`
	Timeout        time.Duration `envconfig:"SUPABASE_TIMEOUT" default:"10s"`
	StorageBucket  string        `envconfig:"SUPABASE_STORAGE_BUCKET" default:"listing-images"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"marketplace"`

	ReviewCacheSize int           `envconfig:"REVIEW_CACHE_SIZE" default:"500"`
	ReviewCacheTTL  time.Duration `envconfig:"REVIEW_CACHE_TTL" default:"5m"`
}

// AuditConfig holds the audit log store settings.
type AuditConfig struct {
	Type string `envconfig:"AUDIT_STORE_TYPE" default:"supabase"` // supabase, sqlite, postgres, mysql, mongodb
	Path string `envconfig:"AUDIT_DB_PATH" default:"./data/audit.db"`
	// SQL server settings
	Host     string `envconfig:"AUDIT_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"AUDIT_DB_PORT" default:"5432"`
	Name     string `envconfig:"AUDIT_DB_NAME" default:"marketplace"`
	User     string `envconfig:"AUDIT_DB_USER" default:"postgres"`
	Password string `envconfig:"AUDIT_DB_PASS" default:""`
	SSLMode  string `envconfig:"AUDIT_DB_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI        string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"marketplace"`
	MongoCollection string `envconfig:"MONGODB_COLLECTION" default:"audit_logs"`
}

// SecurityConfig holds auth-adjacent settings.
type SecurityConfig struct {
	CronSecret           string  `envconfig:"CRON_SECRET" default:""`
	AllowedAvatarDomains string  `envconfig:"ALLOWED_AVATAR_DOMAINS" default:"lh3.googleusercontent.com,avatars.githubusercontent.com"`
	CORSAllowedOrigins   string  `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RateLimitRPS         float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst       int     `envconfig:"RATE_LIMIT_BURST" default:"10"`
	CookieSecure         bool    `envconfig:"COOKIE_SECURE" default:"true"`
	MFARequiredForAdmin  bool    `envconfig:"MFA_REQUIRED_FOR_ADMIN" default:"false"`
	// Comma-separated proxy addresses or CIDRs whose forwarding headers are honored.
	TrustedProxies string `envconfig:"TRUSTED_PROXIES" default:""`
}

// ExchangeConfig holds the currency exchange-rate API settings.
type ExchangeConfig struct {
	APIURL   string        `envconfig:"EXCHANGE_API_URL" default:"https://open.er-api.com/v6/latest"`
	APIKey   string        `envconfig:"EXCHANGE_API_KEY" default:""`
	CacheTTL time.Duration `envconfig:"EXCHANGE_CACHE_TTL" default:"1h"`
	Timeout  time.Duration `envconfig:"EXCHANGE_TIMEOUT" default:"5s"`
}

// JobsConfig holds in-process scheduled job settings.
type JobsConfig struct {
	ExpirySchedule string `envconfig:"EXPIRY_SCHEDULE" default:""` // cron spec, e.g. "@every 1h"
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the data source name for the SQL audit backends.
func (a *AuditConfig) DSN() string {
	switch strings.ToLower(a.Type) {
	case "postgres", "postgresql":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			a.User, a.Password, a.Host, a.Port, a.Name, a.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			a.User, a.Password, a.Host, a.Port, a.Name)
	default:
		return a.Path
	}
}

// AvatarDomains returns the allowed avatar hostnames.
func (s *SecurityConfig) AvatarDomains() []string {
	return splitList(s.AllowedAvatarDomains)
}

// CORSOrigins returns the allowed CORS origins.
func (s *SecurityConfig) CORSOrigins() []string {
	origins := splitList(s.CORSAllowedOrigins)
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// TrustedProxyList returns the configured proxy addresses and ranges.
func (s *SecurityConfig) TrustedProxyList() []string {
	return splitList(s.TrustedProxies)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Audit.Type = strings.ToLower(strings.TrimSpace(cfg.Audit.Type))
	cfg.Cache.Type = strings.ToLower(strings.TrimSpace(cfg.Cache.Type))

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
