// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default; production overrides
// via the environment.
package config

import (
	"os"
	"strconv"
	"time"

	id "custodia/pkg/domain"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// DatabaseURL selects the Postgres-backed registry and event sink when
	// set; empty means in-memory stores (development, tests).
	DatabaseURL string

	Redis   Redis
	Custody Custody
}

// Redis captures connection settings for the optional Redis event stream.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Custody captures the engine's policy constants. All durations are logical
// ticks, not wall-clock time.
type Custody struct {
	// EngineAccount is the custodial account holding deposited funds.
	EngineAccount id.AccountID
	// OverseerAccount holds override authority on every container.
	OverseerAccount id.AccountID

	// DefaultLifespan is added to the inception tick to produce the initial
	// termination tick of a new container.
	DefaultLifespan id.Tick
	// CoolingPeriod is the minimum age before time-locked recovery opens.
	CoolingPeriod id.Tick
	// LockdownWindow sizes the advisory expiry returned by lockdown.
	LockdownWindow id.Tick
	// ExtensionCap bounds a single duration extension.
	ExtensionCap id.Tick
	// ConfirmThreshold is the minimum quantity eligible for secondary
	// authorization.
	ConfirmThreshold int64

	// TickInterval maps wall-clock time onto logical ticks for deployments
	// without an external height source.
	TickInterval time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          getEnv("CUSTODIA_ADDR", ":8080"),
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getEnv("JWT_ISSUER", "custodia"),
		JWTAudience:   getEnv("JWT_AUDIENCE", "custodia-api"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Custody: Custody{
			EngineAccount:    id.AccountID(getEnv("CUSTODY_ENGINE_ACCOUNT", "custodia-vault")),
			OverseerAccount:  id.AccountID(getEnv("CUSTODY_OVERSEER_ACCOUNT", "custodia-overseer")),
			DefaultLifespan:  id.Tick(getEnvUint("CUSTODY_DEFAULT_LIFESPAN", 10_000)),
			CoolingPeriod:    id.Tick(getEnvUint("CUSTODY_COOLING_PERIOD", 1_000)),
			LockdownWindow:   id.Tick(getEnvUint("CUSTODY_LOCKDOWN_WINDOW", 500)),
			ExtensionCap:     id.Tick(getEnvUint("CUSTODY_EXTENSION_CAP", 5_000)),
			ConfirmThreshold: int64(getEnvUint("CUSTODY_CONFIRM_THRESHOLD", 1_000)),
			TickInterval:     getEnvDuration("CUSTODY_TICK_INTERVAL", time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
