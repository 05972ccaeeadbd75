// Package config loads the nd2catalog configuration from YAML with
// environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
)

// Config represents the application configuration.
type Config struct {
	LogLevel          slog.Level     `yaml:"log_level"`
	CameraPixelSizeUm float64        `yaml:"camera_pixel_size_um"`
	Reader            ReaderConfig   `yaml:"reader"`
	Catalog           CatalogConfig  `yaml:"catalog"`
	Registry          RegistryConfig `yaml:"registry"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.CameraPixelSizeUm, validation.Required, validation.Min(0.0).Exclusive()),
	); err != nil {
		return err
	}
	if err := c.Reader.Validate(); err != nil {
		return fmt.Errorf("reader: %w", err)
	}
	return c.Catalog.Validate()
}

// ReaderConfig holds the helper commands that decode ND2 files.
type ReaderConfig struct {
	// Command prints the metadata and pixels of a file, e.g.
	// ["python3", "nd2helper.py"].
	Command []string `yaml:"command"`
	// ExposureCommand prints the exposure times of a file. If empty,
	// Command is used.
	ExposureCommand []string `yaml:"exposure_command"`
}

// Validate validates the reader configuration.
func (c *ReaderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Command, validation.Required),
	)
}

// Exposure returns the command answering exposure-time queries.
func (c *ReaderConfig) Exposure() []string {
	if len(c.ExposureCommand) > 0 {
		return c.ExposureCommand
	}
	return c.Command
}

// CatalogConfig holds the catalog build options.
type CatalogConfig struct {
	Schema           string `yaml:"schema"`
	ReadFileNameInfo bool   `yaml:"read_file_name_info"`
	ReadTimeSteps    bool   `yaml:"read_time_steps"`
	ReadXYPos        bool   `yaml:"read_xy_pos"`
	ZProjection      bool   `yaml:"z_projection"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	if c.Schema == "" {
		c.Schema = string(models.SchemaWaves)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Schema, validation.In(
			string(models.SchemaWaves), string(models.SchemaDLD), string(models.SchemaPlain),
		)),
	)
}

// RegistryConfig holds the experiment registry database. An empty path
// disables the registry.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// NewDefaultConfig returns a new Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:          slog.LevelInfo,
		CameraPixelSizeUm: models.DefaultCameraPixelSizeUm,
		Reader: ReaderConfig{
			Command: []string{"nd2helper"},
		},
		Catalog: CatalogConfig{
			Schema:           string(models.SchemaWaves),
			ReadFileNameInfo: true,
		},
		Registry: RegistryConfig{
			Path: "./nd2catalog.db",
		},
	}
}

// Load reads filename over the defaults and validates the result. A
// missing file yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := NewDefaultConfig()

	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
