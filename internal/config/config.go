package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Session tokens. A zero TokenTTL issues tokens without an exp claim.
	JWTSecret string
	TokenTTL  time.Duration

	// Credentials
	BcryptCost          int
	UsernameMaxAttempts int

	// Call budgets
	StoreTimeout    time.Duration
	VerifierTimeout time.Duration

	// Federated identity (Firebase ID tokens)
	FirebaseProjectID string
	FirebaseJWKSURL   string

	// Blob storage
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSBucketName      string
	UploadURLExpiry    time.Duration

	// Optional infrastructure
	RedisAddr string
	NATSURL   string

	// Logging
	LogFile      string
	LogRetention time.Duration

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string
}

// Load reads configuration from the environment. When CONFIG_FILE names a
// YAML file of KEY: value pairs, those values fill keys the environment
// leaves unset.
func Load() (*Config, error) {
	file := map[string]string{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		file, err = loadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return fromLookup(func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return file[key]
	}), nil
}

func loadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return values, nil
}

func fromLookup(lookup func(string) string) *Config {
	get := func(key, fallback string) string {
		if val := lookup(key); val != "" {
			return val
		}
		return fallback
	}

	return &Config{
		DBHost:     get("DB_HOST", "localhost"),
		DBPort:     get("DB_PORT", "5432"),
		DBUser:     get("DB_USER", "postgres"),
		DBPassword: get("DB_PASSWORD", ""),
		DBName:     get("DB_NAME", "blogging_db"),
		DBSSLMode:  get("DB_SSLMODE", "disable"),

		JWTSecret: get("JWT_SECRET", ""),
		TokenTTL:  parseDuration(get("TOKEN_TTL", "0"), 0),

		BcryptCost:          parseInt(get("BCRYPT_COST", "10"), 10),
		UsernameMaxAttempts: parseInt(get("USERNAME_MAX_ATTEMPTS", "10"), 10),

		StoreTimeout:    parseDuration(get("STORE_TIMEOUT", "5s"), 5*time.Second),
		VerifierTimeout: parseDuration(get("VERIFIER_TIMEOUT", "10s"), 10*time.Second),

		FirebaseProjectID: get("FIREBASE_PROJECT_ID", ""),
		FirebaseJWKSURL:   get("FIREBASE_JWKS_URL", "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"),

		AWSRegion:          get("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     get("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: get("AWS_SECRET_ACCESS_KEY", ""),
		AWSBucketName:      get("AWS_BUCKET_NAME", ""),
		UploadURLExpiry:    parseDuration(get("UPLOAD_URL_EXPIRY", "1000s"), 1000*time.Second),

		RedisAddr: get("REDIS_ADDR", ""),
		NATSURL:   get("NATS_URL", ""),

		LogFile:      get("LOG_FILE", ""),
		LogRetention: parseDuration(get("LOG_RETENTION", "720h"), 30*24*time.Hour),

		Port:        get("PORT", "3000"),
		CORSOrigins: get("CORS_ORIGINS", "*"),
		AppEnv:      get("APP_ENV", "development"),
		SentryDSN:   get("SENTRY_DSN", ""),
	}
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

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
