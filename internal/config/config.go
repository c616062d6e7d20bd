package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the service configuration. Environment variables are parsed
// from the CORNERSTONE_ prefix; empty backend URLs disable that backend and
// the service runs against the local file store alone.
type Config struct {
	Addr       string `envconfig:"ADDR" default:":8686"`
	DataDir    string `envconfig:"DATA_DIR" default:"./data"`
	CORSOrigin string `envconfig:"CORS_ORIGIN" default:"*"`

	// Remote document store. Postgres wins when both are configured.
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	RedisURL    string `envconfig:"REDIS_URL" default:""`

	// Auth
	JWTSecret         string `envconfig:"JWT_SECRET" default:"cornerstone-dev-secret"`
	AccessTTLSeconds  int    `envconfig:"ACCESS_TTL_SECONDS" default:"900"`
	RefreshTTLSeconds int    `envconfig:"REFRESH_TTL_SECONDS" default:"2592000"`
	ProbeTimeoutMS    int    `envconfig:"PROBE_TIMEOUT_MS" default:"3000"`

	// Search (optional)
	MeiliURL       string `envconfig:"MEILI_URL" default:""`
	MeiliMasterKey string `envconfig:"MEILI_MASTER_KEY" default:""`

	// File content storage (optional)
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT" default:""`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY" default:""`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY" default:""`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"cornerstone-files"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("CORNERSTONE", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	return cfg, nil
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLSeconds) * time.Second
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLSeconds) * time.Second
}

func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMS) * time.Millisecond
}
