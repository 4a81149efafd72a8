package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/wildfrostsss/Blood-pressure/internal/offline"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig      `yaml:"app"`
	Storage StorageConfig          `yaml:"storage"`
	Cache   CacheConfig            `yaml:"cache"`
	Assets  AssetsConfig           `yaml:"assets"`
	Diary   DiaryConfig            `yaml:"diary"`
	Vendor  []offline.VendorScript `yaml:"vendor"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Assets.Validate(); err != nil {
		return err
	}
	if err := c.Diary.Validate(); err != nil {
		return err
	}
	for _, v := range c.Vendor {
		if v.Name == "" || v.URL == "" {
			return fmt.Errorf("vendor: every script needs a name and a url")
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig holds the path to the diary data directory.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CacheConfig holds the offline cache configuration.
//
// AutoActivate controls what happens when an updated asset version is
// installed while an old one is active: true swaps immediately, false
// keeps the new version waiting until a skip-waiting request arrives.
type CacheConfig struct {
	Path         string `yaml:"path"`
	BucketPrefix string `yaml:"bucket_prefix"`
	AutoActivate bool   `yaml:"auto_activate"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	if c.BucketPrefix == "" {
		c.BucketPrefix = offline.DefaultBucketPrefix
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AssetsConfig holds the path to the static web assets directory.
type AssetsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the assets configuration.
func (c *AssetsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// DiaryConfig holds diary behavior configuration.
//
// Timezone is an IANA zone name used to interpret the minute-precision
// timestamps; empty means the host's local zone.
type DiaryConfig struct {
	Timezone string `yaml:"timezone"`
}

// Validate validates the diary configuration.
func (c *DiaryConfig) Validate() error {
	if c.Timezone == "" {
		return nil
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("diary: unknown timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone.
func (c *DiaryConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Path: "./data",
		},
		Cache: CacheConfig{
			Path:         "./cache.db",
			BucketPrefix: offline.DefaultBucketPrefix,
			AutoActivate: false,
		},
		Assets: AssetsConfig{
			Path: "./web",
		},
	}
}
