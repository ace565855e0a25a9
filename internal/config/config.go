// Package config provides YAML-based configuration for the backend.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pedro-visualizer/backend/internal/models"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Field      FieldConfig      `yaml:"field"`
	Processing ProcessingConfig `yaml:"processing"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                 int      `yaml:"port"`
	BindAddress          string   `yaml:"bindAddress"`
	EnableCORS           bool     `yaml:"enableCors"`
	AllowOrigins         []string `yaml:"allowOrigins"`
	BodyLimit            string   `yaml:"bodyLimit"`
	EnableRequestLogging bool     `yaml:"enableRequestLogging"`
	GzipLevel            int      `yaml:"gzipLevel"`
}

// StorageConfig contains file storage settings.
type StorageConfig struct {
	DataDirectory  string `yaml:"dataDirectory"`
	PathsDirectory string `yaml:"pathsDirectory"`
	WatchPaths     bool   `yaml:"watchPaths"`
}

// FieldConfig describes the competition field. Origin is the coordinate an
// "origin" transform pivot resolves to.
type FieldConfig struct {
	OriginX float64 `yaml:"originX"`
	OriginY float64 `yaml:"originY"`
}

// ProcessingConfig contains project lifecycle settings.
type ProcessingConfig struct {
	ProjectTimeoutMinutes  int `yaml:"projectTimeoutMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                 8090,
			BindAddress:          "0.0.0.0",
			EnableCORS:           true,
			AllowOrigins:         []string{"*"},
			BodyLimit:            "16M",
			EnableRequestLogging: true,
			GzipLevel:            5,
		},
		Storage: StorageConfig{
			DataDirectory:  "./data",
			PathsDirectory: "./data/paths",
			WatchPaths:     true,
		},
		Field: FieldConfig{
			// Center of the 144x144 inch field.
			OriginX: 72,
			OriginY: 72,
		},
		Processing: ProcessingConfig{
			ProjectTimeoutMinutes:  60,
			CleanupIntervalMinutes: 10,
		},
	}
}

// Load reads a YAML configuration file, applying defaults for absent keys. A
// missing file returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Printf("[Config] %s not found, using defaults\n", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Origin returns the field origin as a coordinate.
func (c *Config) Origin() models.Vec2 {
	return models.Vec2{X: c.Field.OriginX, Y: c.Field.OriginY}
}

// EnsureDirectories creates the configured data directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.DataDirectory, c.Storage.PathsDirectory} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
