package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Store and storage drivers
const (
	DriverMongoDB = "mongodb"
	DriverMemory  = "memory"
	DriverGCS     = "gcs"
)

// StoreConfig selects and locates the admin and public document databases.
type StoreConfig struct {
	Driver         string `env:"STORE_DRIVER" envDefault:"mongodb"`
	AdminMongoURI  string `env:"ADMIN_MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	AdminDatabase  string `env:"ADMIN_DATABASE" envDefault:"blog_admin"`
	PublicMongoURI string `env:"PUBLIC_MONGODB_URI"`
	PublicDatabase string `env:"PUBLIC_DATABASE" envDefault:"blog_public"`
}

// RedisConfig locates the Redis server used for locks and topics. An empty
// address keeps both in-process.
type RedisConfig struct {
	Addr            string        `env:"REDIS_ADDR"`
	Password        string        `env:"REDIS_PASSWORD"`
	Database        int           `env:"REDIS_DB" envDefault:"0"`
	MaxRetries      int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS       bool          `env:"REDIS_TLS" envDefault:"false"`
	ConnMaxIdleTime time.Duration `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	ConnMaxLifetime time.Duration `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h"`
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// StorageConfig selects the object storage holding post images.
type StorageConfig struct {
	Driver             string `env:"STORAGE_DRIVER" envDefault:"memory"`
	GCSBucket          string `env:"GCS_BUCKET"`
	GCSCredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
	PublicAssetBaseURL string `env:"PUBLIC_ASSET_BASE_URL"`
	ImageWidths        []int  `env:"IMAGE_WIDTHS" envSeparator:"," envDefault:"300,600,900,1200,1800"`
	MaxUploadBytes     int    `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
}

// EmailConfig configures SendGrid. Without an API key email is logged instead of sent.
type EmailConfig struct {
	SendgridAPIKey           string `env:"SENDGRID_API_KEY"`
	SendgridFromEmail        string `env:"SENDGRID_FROM_EMAIL" envDefault:"no-reply@localhost"`
	SendgridFromName         string `env:"SENDGRID_FROM_NAME" envDefault:"Blog Admin"`
	SendgridSubscriberListID string `env:"SENDGRID_SUBSCRIBER_LIST_ID"`
	AdminEmail               string `env:"ADMIN_EMAIL"`
}

// SchedulerConfig secures the scheduler endpoint and drives the in-process ticker.
type SchedulerConfig struct {
	Audience            string        `env:"SCHEDULER_AUDIENCE"`
	ServiceAccount      string        `env:"SCHEDULER_SERVICE_ACCOUNT"`
	AutopublishInterval time.Duration `env:"AUTOPUBLISH_INTERVAL" envDefault:"0s"`
	AutopublishLockTTL  time.Duration `env:"AUTOPUBLISH_LOCK_TTL" envDefault:"2m"`
}

// Config holds all configuration for the cms module.
type Config struct {
	Store     StoreConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Email     EmailConfig
	Scheduler SchedulerConfig
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load cms configuration from environment: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver names and the settings each driver needs.
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(c.Store.Driver)
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)

	switch c.Store.Driver {
	case DriverMongoDB:
		if c.Store.AdminMongoURI == "" {
			return errors.New("ADMIN_MONGODB_URI is required for the mongodb store driver")
		}
		if c.Store.PublicMongoURI == "" {
			c.Store.PublicMongoURI = c.Store.AdminMongoURI
		}
		if c.Store.AdminDatabase == c.Store.PublicDatabase && c.Store.AdminMongoURI == c.Store.PublicMongoURI {
			return errors.New("admin and public stores must be different databases")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Storage.Driver {
	case DriverGCS:
		if c.Storage.GCSBucket == "" {
			return errors.New("GCS_BUCKET is required for the gcs storage driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if len(c.Storage.ImageWidths) == 0 {
		return errors.New("IMAGE_WIDTHS must list at least one width")
	}
	for _, w := range c.Storage.ImageWidths {
		if w <= 0 {
			return fmt.Errorf("invalid image width %d", w)
		}
	}
	if c.Scheduler.AutopublishInterval < 0 {
		return errors.New("AUTOPUBLISH_INTERVAL cannot be negative")
	}
	return nil
}

// DefaultConfig returns an in-memory development configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:         DriverMemory,
			AdminDatabase:  "blog_admin",
			PublicDatabase: "blog_public",
		},
		Storage: StorageConfig{
			Driver:         DriverMemory,
			ImageWidths:    []int{300, 600, 900, 1200, 1800},
			MaxUploadBytes: 20 << 20,
		},
		Email: EmailConfig{
			SendgridFromEmail: "no-reply@localhost",
			SendgridFromName:  "Blog Admin",
		},
		Scheduler: SchedulerConfig{
			AutopublishLockTTL: 2 * time.Minute,
		},
	}
}
