package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Sub-configs group the optional knobs of the
// realtime channel, the message broker and the Redis-backed middleware.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	JWTSecret     string        // secret used to verify access tokens
	CommitTimeout time.Duration // upper bound on a single booking commit
	Lock          LockConfig
	Queue         QueueConfig
	RateLimit     RateLimitConfig
	Cache         CacheConfig
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"), // empty allowed
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		CommitTimeout: envDur("BOOKING_COMMIT_TIMEOUT", 10*time.Second),
		Lock:          LoadLockConfig(),
		Queue:         LoadQueueConfig(),
		RateLimit:     LoadRateLimitConfig(),
		Cache:         LoadCacheConfig(),
	}
}

// IsProd reports whether the service runs in the production environment.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
