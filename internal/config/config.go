package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Object store drivers understood by Load.
const (
	DriverMinIO  = "minio"
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// Config aggregates runtime configuration for the back-office API.
type Config struct {
	Server      ServerConfig
	Postgres    PostgresConfig
	ObjectStore ObjectStoreConfig
	Auth        AuthConfig
	Files       FilesConfig
	NATS        NATSConfig
	ClamAV      ClamAVConfig
	Metrics     MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	SSLMode       string
	RunMigrations bool
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// ObjectStoreConfig selects and configures the blob backend.
type ObjectStoreConfig struct {
	Driver  string
	Timeout time.Duration
	MinIO   MinIOConfig
	S3      S3Config
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// S3Config carries settings for an S3-compatible endpoint.
type S3Config struct {
	BaseEndpoint    string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	BcryptCost         int
	OIDCIssuerURL      string
	OIDCClientID       string
	OIDCOrgClaim       string
}

// FilesConfig governs the attachment pipeline.
type FilesConfig struct {
	// PublicBaseURL is the externally reachable origin, e.g. https://erp.example.com.
	PublicBaseURL string
	// PublicPrefix is prepended to a grant id to form a file reference URL.
	PublicPrefix       string
	GrantTTL           time.Duration
	MaxUploadBytes     int64
	MaxBatch           int
	PresignRequireAuth bool
	ReaperInterval     time.Duration
	ReaperBatch        int
	CacheMaxAge        time.Duration
	DownloadURLTTL     time.Duration
}

// NATSConfig configures file lifecycle event publishing. Empty URL disables it.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// ClamAVConfig configures upload scanning. Empty address disables it.
type ClamAVConfig struct {
	Address string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	baseURL := strings.TrimRight(getString("APP_PUBLIC_BASE_URL", "http://localhost:8080"), "/")

	cfg := Config{
		Server: ServerConfig{
			Host:         getString("APP_API_HOST", "0.0.0.0"),
			Port:         getInt("APP_API_PORT", 8080),
			ReadTimeout:  getDuration("APP_API_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("APP_API_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDuration("APP_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:          getString("POSTGRES_HOST", "localhost"),
			Port:          getInt("POSTGRES_PORT", 5432),
			User:          getString("POSTGRES_USER", "backoffice_app"),
			Password:      getString("POSTGRES_PASSWORD", "change-me"),
			Database:      getString("POSTGRES_DB", "backoffice"),
			SSLMode:       strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
			RunMigrations: getBool("POSTGRES_RUN_MIGRATIONS", true),
		},
		ObjectStore: ObjectStoreConfig{
			Driver:  strings.ToLower(getString("OBJECT_STORE_DRIVER", DriverMinIO)),
			Timeout: getDuration("OBJECT_STORE_TIMEOUT", 30*time.Second),
			MinIO: MinIOConfig{
				Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
				AccessKeyID:     getString("MINIO_ROOT_USER", "backoffice"),
				SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
				Bucket:          getString("MINIO_BUCKET", "backoffice-files"),
				UseSSL:          getBool("MINIO_USE_SSL", false),
				Region:          getString("MINIO_REGION", ""),
			},
			S3: S3Config{
				BaseEndpoint:    getString("S3_BASE_ENDPOINT", ""),
				Region:          getString("S3_REGION", "ap-southeast-1"),
				AccessKeyID:     getString("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getString("S3_SECRET_ACCESS_KEY", ""),
				Bucket:          getString("S3_BUCKET", "backoffice-files"),
				UsePathStyle:    getBool("S3_USE_PATH_STYLE", true),
			},
		},
		Auth: loadAuthConfig(),
		Files: FilesConfig{
			PublicBaseURL:      baseURL,
			PublicPrefix:       getString("FILES_PUBLIC_PREFIX", baseURL+"/api/file/"),
			GrantTTL:           getDuration("FILES_GRANT_TTL", 24*time.Hour),
			MaxUploadBytes:     int64(getInt("FILES_MAX_UPLOAD_BYTES", 25*1024*1024)),
			MaxBatch:           getInt("FILES_MAX_BATCH", 20),
			PresignRequireAuth: getBool("FILES_PRESIGN_REQUIRE_AUTH", true),
			ReaperInterval:     getDuration("FILES_REAPER_INTERVAL", time.Hour),
			ReaperBatch:        getInt("FILES_REAPER_BATCH", 200),
			CacheMaxAge:        getDuration("FILES_CACHE_MAX_AGE", 24*time.Hour),
			DownloadURLTTL:     getDuration("FILES_DOWNLOAD_URL_TTL", 15*time.Minute),
		},
		NATS: NATSConfig{
			URL:           getString("NATS_URL", ""),
			SubjectPrefix: getString("NATS_SUBJECT_PREFIX", "files"),
		},
		ClamAV: ClamAVConfig{
			Address: getString("CLAMAV_ADDRESS", ""),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("APP_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.ObjectStore.Driver {
	case DriverMinIO, DriverS3, DriverMemory:
	default:
		return fmt.Errorf("unknown object store driver %q", c.ObjectStore.Driver)
	}
	if c.Files.PublicBaseURL == "" {
		return errors.New("APP_PUBLIC_BASE_URL must not be empty")
	}
	if !strings.HasSuffix(c.Files.PublicPrefix, "/") {
		return fmt.Errorf("FILES_PUBLIC_PREFIX %q must end with a slash", c.Files.PublicPrefix)
	}
	if c.Files.GrantTTL <= 0 {
		return errors.New("FILES_GRANT_TTL must be positive")
	}
	if c.Files.MaxBatch <= 0 {
		return errors.New("FILES_MAX_BATCH must be positive")
	}
	return nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadAuthConfig() AuthConfig {
	cost := getInt("APP_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		AccessTokenSecret:  getString("APP_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		RefreshTokenSecret: getString("APP_JWT_REFRESH_SECRET", "change-me-to-a-64-byte-secret"),
		AccessTokenTTL:     getDuration("APP_AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:    getDuration("APP_AUTH_REFRESH_TOKEN_TTL", 720*time.Hour),
		BcryptCost:         cost,
		OIDCIssuerURL:      getString("OIDC_ISSUER_URL", ""),
		OIDCClientID:       getString("OIDC_CLIENT_ID", ""),
		OIDCOrgClaim:       getString("OIDC_ORG_CLAIM", "org_id"),
	}
}
