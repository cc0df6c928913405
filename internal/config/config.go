package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Auth      AuthConfig
	Profiles  ProfilesConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	MinIO     MinIOConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FirebaseConfig describes the hosted identity provider and document store.
type FirebaseConfig struct {
	ProjectID       string
	APIKey          string
	CredentialsFile string
	// Verifier selects ID token verification: "firebase" (Admin SDK) or "oidc".
	Verifier string
	// Endpoint overrides the Identity Toolkit base URL (emulator, tests).
	Endpoint string
	// TokenEndpoint overrides the Secure Token refresh URL.
	TokenEndpoint string
	// ContinueURL is passed along with verification emails.
	ContinueURL string
}

type AuthConfig struct {
	MinPasswordLength    int
	RequireVerifiedEmail bool
	CookieName           string
	CookieSecure         bool
	AllowInsecureToken   bool
	// SessionTTL caps how long a session survives via refresh.
	SessionTTL time.Duration
}

type ProfilesConfig struct {
	// Backend is one of firestore|mongo|postgres|memory.
	Backend    string
	Collection string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicURL is the externally reachable base for avatar links, e.g. a CDN
	// or reverse proxy. Empty means the MinIO endpoint itself.
	PublicURL string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("FIREBASE_VERIFIER", "firebase")
	v.SetDefault("AUTH_MIN_PASSWORD_LENGTH", 6)
	v.SetDefault("AUTH_COOKIE_NAME", "accountdesk_session")
	v.SetDefault("AUTH_SESSION_TTL_HOURS", 24*7)
	v.SetDefault("PROFILES_COLLECTION", "users")
	v.SetDefault("MONGODB_DATABASE", "accountdesk")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("MINIO_BUCKET", "accountdesk-avatars")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Firebase: FirebaseConfig{
			ProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
			APIKey:          v.GetString("FIREBASE_API_KEY"),
			CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
			Verifier:        strings.ToLower(v.GetString("FIREBASE_VERIFIER")),
			Endpoint:        v.GetString("FIREBASE_AUTH_ENDPOINT"),
			TokenEndpoint:   v.GetString("FIREBASE_TOKEN_ENDPOINT"),
			ContinueURL:     v.GetString("FIREBASE_CONTINUE_URL"),
		},
		Auth: AuthConfig{
			MinPasswordLength:    v.GetInt("AUTH_MIN_PASSWORD_LENGTH"),
			RequireVerifiedEmail: v.GetBool("AUTH_REQUIRE_VERIFIED_EMAIL"),
			CookieName:           v.GetString("AUTH_COOKIE_NAME"),
			CookieSecure:         v.GetBool("AUTH_COOKIE_SECURE"),
			AllowInsecureToken:   v.GetBool("ALLOW_INSECURE_TOKEN"),
			SessionTTL:           time.Duration(v.GetInt("AUTH_SESSION_TTL_HOURS")) * time.Hour,
		},
		Profiles: ProfilesConfig{
			Backend:    strings.ToLower(v.GetString("PROFILES_BACKEND")),
			Collection: v.GetString("PROFILES_COLLECTION"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Postgres: PostgresConfig{
			DSN: v.GetString("POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			PublicURL: v.GetString("MINIO_PUBLIC_URL"),
		},
	}

	if cfg.Profiles.Backend == "" {
		cfg.Profiles.Backend = defaultBackend(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultBackend(cfg *Config) string {
	if cfg.Firebase.ProjectID != "" {
		return "firestore"
	}
	return "memory"
}

// Validate checks combinations that cannot work at runtime.
func (c *Config) Validate() error {
	switch c.Profiles.Backend {
	case "firestore":
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("PROFILES_BACKEND=firestore requires FIREBASE_PROJECT_ID")
		}
	case "mongo":
		if c.MongoDB.URI == "" {
			return fmt.Errorf("PROFILES_BACKEND=mongo requires MONGODB_URI")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("PROFILES_BACKEND=postgres requires POSTGRES_DSN")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown PROFILES_BACKEND %q", c.Profiles.Backend)
	}
	switch c.Firebase.Verifier {
	case "firebase", "oidc":
	default:
		return fmt.Errorf("unknown FIREBASE_VERIFIER %q", c.Firebase.Verifier)
	}
	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("AUTH_MIN_PASSWORD_LENGTH must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("AUTH_SESSION_TTL_HOURS must be positive")
	}
	return nil
}

// RedisAddr returns host:port, or "" when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return c.Redis.Host + ":" + c.Redis.Port
}
