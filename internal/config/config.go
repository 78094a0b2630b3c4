package config

import (
	"fmt"
	"os"
	"path/filepath"

	"blobcache/internal/core/types"

	"github.com/goccy/go-yaml"
)

// Config is the top-level configuration structure.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Cache    CacheConfig    `yaml:"cache"`
	Transfer TransferConfig `yaml:"transfer"`
	S3       S3Config       `yaml:"s3"`
}

// CacheConfig holds the on-disk cache settings.
type CacheConfig struct {
	BasePath string `yaml:"base_path"`
}

// TransferConfig holds producer throughput settings.
type TransferConfig struct {
	RateLimit types.Bytes `yaml:"rate_limit"`
	RateBurst types.Bytes `yaml:"rate_burst"`
}

// S3Config holds settings for S3-compatible sources.
type S3Config struct {
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			BasePath: defaultBasePath(),
		},
	}
}

func defaultBasePath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "blobcache")
	}
	return filepath.Join(os.TempDir(), "blobcache")
}

// LoadConfig loads configuration from a YAML file and applies defaults.
// A missing file is not an error; the defaults are returned.
func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	if configFile != "" && fileExists(configFile) {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	if config.Cache.BasePath == "" {
		config.Cache.BasePath = defaultBasePath()
	}

	return config, nil
}

// ResolveConfigPath resolves a config file path, checking common
// locations.
func ResolveConfigPath(configFile string) string {
	if configFile != "" {
		if filepath.IsAbs(configFile) || fileExists(configFile) {
			return configFile
		}
	}

	commonPaths := []string{
		"blobcache.yaml",
		"blobcache.yml",
		"/etc/blobcache/config.yaml",
		"/etc/blobcache/config.yml",
	}
	for _, path := range commonPaths {
		if fileExists(path) {
			return path
		}
	}
	return configFile
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
