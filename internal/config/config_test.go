package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Cache.BasePath == "" {
		t.Fatalf("default cache base path is empty")
	}
	if cfg.Debug {
		t.Fatalf("debug should default to false")
	}
}

func TestLoadConfigReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
debug: true
cache:
  base_path: /var/cache/blobs
transfer:
  rate_limit: 100 MiB
s3:
  region: eu-west-1
  force_path_style: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Debug {
		t.Fatalf("debug not parsed")
	}
	if cfg.Cache.BasePath != "/var/cache/blobs" {
		t.Fatalf("base_path = %q", cfg.Cache.BasePath)
	}
	if cfg.Transfer.RateLimit.Uint64() != 100*1024*1024 {
		t.Fatalf("rate_limit = %d, want 100 MiB", cfg.Transfer.RateLimit.Uint64())
	}
	if cfg.S3.Region != "eu-west-1" || !cfg.S3.ForcePathStyle {
		t.Fatalf("s3 config not parsed: %+v", cfg.S3)
	}
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cache: ["), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
