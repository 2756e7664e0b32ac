// Package config loads settings for the photo filter server.
//
// Values are resolved in order, later sources winning:
//
//  1. built-in defaults
//  2. a YAML file, when a path is given
//  3. environment variables (PHOTO_FILTER_*), including any loaded from a
//     .env file in the working directory
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultMaxDimension  = 1024
	DefaultThumbnailSize = 70
	DefaultLibraryDir    = "photos"
	DefaultSaveFormat    = "jpeg"
	DefaultJPEGQuality   = 90
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"

	// DefaultMaxRequestBytes bounds one JSON-RPC request line. Inline
	// imports carry base64 photos, so this is far above the protocol's
	// usual message size.
	DefaultMaxRequestBytes = 64 << 20
)

// Environment variable names
const (
	EnvMaxDimension  = "PHOTO_FILTER_MAX_DIMENSION"
	EnvThumbnailSize = "PHOTO_FILTER_THUMBNAIL_SIZE"
	EnvLibraryDir    = "PHOTO_FILTER_LIBRARY_DIR"
	EnvDatabasePath  = "PHOTO_FILTER_DATABASE_PATH"
	EnvSaveFormat    = "PHOTO_FILTER_SAVE_FORMAT"
	EnvJPEGQuality   = "PHOTO_FILTER_JPEG_QUALITY"
	EnvMaxRequest    = "PHOTO_FILTER_MAX_REQUEST_BYTES"
	EnvLogLevel      = "PHOTO_FILTER_LOG_LEVEL"
	EnvLogFormat     = "PHOTO_FILTER_LOG_FORMAT"
)

// Config holds all server settings.
type Config struct {
	// MaxDimension bounds the longer side of an imported photo.
	MaxDimension int `yaml:"max_dimension"`

	// ThumbnailSize is the edge length of the square thumbnail sample.
	ThumbnailSize int `yaml:"thumbnail_size"`

	// LibraryDir is where saved photos are written.
	LibraryDir string `yaml:"library_dir"`

	// DatabasePath is the SQLite index of saved photos.
	// Empty means library.db inside LibraryDir.
	DatabasePath string `yaml:"database_path"`

	// SaveFormat is "jpeg" or "png".
	SaveFormat string `yaml:"save_format"`

	// JPEGQuality is 1-100; ignored for PNG.
	JPEGQuality int `yaml:"jpeg_quality"`

	// MaxRequestBytes is the largest request line the server accepts.
	MaxRequestBytes int `yaml:"max_request_bytes"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxDimension:    DefaultMaxDimension,
		ThumbnailSize:   DefaultThumbnailSize,
		LibraryDir:      DefaultLibraryDir,
		SaveFormat:      DefaultSaveFormat,
		JPEGQuality:     DefaultJPEGQuality,
		MaxRequestBytes: DefaultMaxRequestBytes,
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
	}
}

// Load resolves the configuration. path may be empty.
//
// A missing .env file is ignored; a missing YAML file named by path is an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.LibraryDir, "library.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{EnvMaxDimension, &c.MaxDimension},
		{EnvThumbnailSize, &c.ThumbnailSize},
		{EnvJPEGQuality, &c.JPEGQuality},
		{EnvMaxRequest, &c.MaxRequestBytes},
	}
	for _, v := range ints {
		raw, ok := os.LookupEnv(v.key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", v.key, raw)
		}
		*v.dst = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{EnvLibraryDir, &c.LibraryDir},
		{EnvDatabasePath, &c.DatabasePath},
		{EnvSaveFormat, &c.SaveFormat},
		{EnvLogLevel, &c.LogLevel},
		{EnvLogFormat, &c.LogFormat},
	}
	for _, v := range strs {
		if raw := strings.TrimSpace(os.Getenv(v.key)); raw != "" {
			*v.dst = raw
		}
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string

	if c.MaxDimension <= 0 {
		problems = append(problems, fmt.Sprintf("max_dimension must be positive, got %d", c.MaxDimension))
	}
	if c.ThumbnailSize <= 0 {
		problems = append(problems, fmt.Sprintf("thumbnail_size must be positive, got %d", c.ThumbnailSize))
	}
	if c.LibraryDir == "" {
		problems = append(problems, "library_dir is required")
	}
	switch c.SaveFormat {
	case "jpeg", "jpg", "png":
	default:
		problems = append(problems, fmt.Sprintf("save_format must be jpeg or png, got %q", c.SaveFormat))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		problems = append(problems, fmt.Sprintf("jpeg_quality must be 1-100, got %d", c.JPEGQuality))
	}
	if c.MaxRequestBytes < 1024 {
		problems = append(problems, fmt.Sprintf("max_request_bytes must be at least 1024, got %d", c.MaxRequestBytes))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
