package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nodepad/internal/assets"
	"github.com/starford/nodepad/internal/backup"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Pages   PagesConfig       `yaml:"pages"`
	Backup  BackupConfig      `yaml:"backup"`
	Index   IndexConfig       `yaml:"index"`
	CORS    CORSConfig        `yaml:"cors"`
	Uploads UploadsConfig     `yaml:"uploads"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Pages.Validate(); err != nil {
		return fmt.Errorf("pages: %w", err)
	}
	if err := c.Backup.Validate(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := c.CORS.Validate(); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	return c.Uploads.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogDir, when set, receives a copy of the logs in timestamped files.
	LogDir      string     `yaml:"log_dir"`
	LogMaxFiles int        `yaml:"log_max_files"`
	HTTP        HTTPConfig `yaml:"http"`
	// StaticDir, when set, is served at / (the browser UI).
	StaticDir string `yaml:"static_dir"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogMaxFiles, validation.When(c.LogDir != "", validation.Required, validation.Min(1))),
	); err != nil {
		return err
	}
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

// PagesConfig holds the path to the pages directory.
type PagesConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the pages configuration.
func (c *PagesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// BackupConfig controls zip snapshots of the pages directory.
//
// Interval is the period of scheduled snapshots (0 disables them); saves
// additionally request a snapshot, at most one per Cooldown.
type BackupConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Path      string        `yaml:"path"`
	Interval  time.Duration `yaml:"interval"`
	Cooldown  time.Duration `yaml:"cooldown"`
	Retention int           `yaml:"retention"`
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Interval, validation.Min(time.Duration(0))),
		validation.Field(&c.Cooldown, validation.Min(time.Duration(0))),
		validation.Field(&c.Retention, validation.When(c.Enabled, validation.Required, validation.Min(1))),
	)
}

// IndexConfig holds the SQLite tag cache configuration.
type IndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Validate validates the CORS configuration.
func (c *CORSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AllowedOrigins, validation.Each(validation.By(origin))),
	)
}

func origin(value any) error {
	s, _ := value.(string)
	if s == "*" || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return nil
	}
	return errors.New(`must be "*" or an http(s) origin`)
}

// UploadsConfig limits image uploads.
type UploadsConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// Validate validates the uploads configuration.
func (c *UploadsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Min(int64(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:    slog.LevelInfo,
			LogMaxFiles: 10,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Pages: PagesConfig{
			Path: "./pages",
		},
		Backup: BackupConfig{
			Enabled:   true,
			Path:      "./backups",
			Interval:  time.Hour,
			Cooldown:  backup.DefaultCooldown,
			Retention: backup.DefaultRetention,
		},
		Index: IndexConfig{
			Enabled: true,
			Path:    "./nodepad.db",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{},
		},
		Uploads: UploadsConfig{
			MaxBytes: assets.DefaultMaxBytes,
		},
	}
}
