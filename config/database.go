package config

import "time"

// DBConfig contains PostgreSQL database configuration for the chat history store.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"raggw"`
	Password string `env:"PASSWORD"                envDefault:"raggw"`
	Name     string `env:"NAME"                    envDefault:"raggw"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis connection configuration.
// The same Redis instance hosts both the result/binding cache and the
// message bus streams.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}

// CacheConfig contains TTL configuration for the result and binding caches.
type CacheConfig struct {
	// ResultTTL bounds how long a worker result stays pollable.
	ResultTTL time.Duration `env:"CACHE_RESULT_TTL" envDefault:"10m"`

	// BindingTTL bounds how long a request-to-session binding stays routable.
	BindingTTL time.Duration `env:"CACHE_BINDING_TTL" envDefault:"30m"`
}

// Sanitize applies guardrails to cache TTL values.
func (c *CacheConfig) Sanitize() {
	if c.ResultTTL <= 0 {
		c.ResultTTL = 10 * time.Minute
	}
	if c.BindingTTL <= 0 {
		c.BindingTTL = 30 * time.Minute
	}
}
