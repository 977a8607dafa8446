package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	devJWTSecret = "playvault-dev-signing-key"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set outside development")

type Config struct {
	Env                  string
	Port                 string
	Database             Database
	RedisURL             string
	JWTSecret            []byte
	CORSOrigins          []string
	XPRateLimitPerMinute int
	FulfillmentKeyHash   string
	Export               Export
	CronProvisionSpec    string
	CronWarmCacheSpec    string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq key=value connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Export holds the object storage target for fulfillment exports.
type Export struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func Load() *Config {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")

	env := getEnv("APP_ENV", EnvProduction)

	return &Config{
		Env:  env,
		Port: getEnv("PORT", "8080"),
		Database: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "playvault"),
			Password: getEnv("DB_PASSWORD", "playvault"),
			Name:     getEnv("DB_NAME", "playvault"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisURL:             getEnv("REDIS_URL", ""),
		JWTSecret:            jwtSecret(env),
		CORSOrigins:          splitList(getEnv("CORS_ORIGINS", "*")),
		XPRateLimitPerMinute: getEnvInt("XP_RATE_LIMIT_PER_MINUTE", 60),
		FulfillmentKeyHash:   getEnv("FULFILLMENT_KEY_HASH", ""),
		Export: Export{
			Bucket:          getEnv("EXPORT_BUCKET", ""),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("EXPORT_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("EXPORT_SECRET_ACCESS_KEY", ""),
		},
		CronProvisionSpec: getEnv("CRON_PROVISION_SPEC", "@every 1h"),
		CronWarmCacheSpec: getEnv("CRON_WARM_CACHE_SPEC", "@every 5m"),
	}
}

// Validate reports settings the API cannot safely run without.
func (c *Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return ErrMissingJWTSecret
	}
	return nil
}

// jwtSecret only falls back to the shared dev key in development.
func jwtSecret(env string) []byte {
	secret := getEnv("JWT_SECRET", "")
	if secret == "" && env == EnvDevelopment {
		secret = devJWTSecret
	}
	return []byte(secret)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
