// config/config.go
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// R2 holds the Cloudflare R2 settings used for reconciliation reports.
// Uploads are disabled when AccountID or Bucket is empty.
type R2 struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

func (r R2) Enabled() bool {
	return r.AccountID != "" && r.Bucket != ""
}

type Config struct {
	DatabaseURL    string   `env:"DATABASE_URL,required,notEmpty"`
	ServiceToken   string   `env:"MISSION_SERVICE_TOKEN,required,notEmpty"`
	EventsToken    string   `env:"EVENTS_SERVICE_TOKEN,required,notEmpty"`
	Port           int      `env:"PORT" envDefault:"5300"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	AuthServiceURL string `env:"AUTH_SERVICE_URL" envDefault:"https://auth.musterbox.org"`

	SyncServiceURL      string        `env:"SYNC_SERVICE_URL"`
	SyncProfilesPath    string        `env:"SYNC_PROFILES_PATH" envDefault:"/api/v1/public/profiles"`
	ProfileSyncInterval time.Duration `env:"PROFILE_SYNC_INTERVAL" envDefault:"1m"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"24h"`
	MaxClockSkew      time.Duration `env:"MAX_CLOCK_SKEW" envDefault:"5m"`

	R2 R2
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Origins joins AllowedOrigins for the fiber cors middleware.
func (c *Config) Origins() string {
	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return strings.Join(origins, ",")
}

// ParseEnv fills target from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.ProfileSyncInterval <= 0 {
		return nil, fmt.Errorf("parse env: PROFILE_SYNC_INTERVAL must be positive")
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("parse env: RECONCILE_INTERVAL must be positive")
	}
	return &cfg, nil
}
