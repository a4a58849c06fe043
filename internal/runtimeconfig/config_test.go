package runtimeconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrBaseURLRequired) {
		t.Fatalf("defaults require a base URL for sitemap and feeds, got %v", err)
	}

	cfg.Site.BaseURL = "https://blog.example.com"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with base URL should validate, got %v", err)
	}
}

func TestValidateRequiresOutputDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Generator.OutputDir = "  "
	if err := cfg.Validate(); !errors.Is(err, ErrOutputDirRequired) {
		t.Fatalf("expected ErrOutputDirRequired, got %v", err)
	}
}

func TestValidateRequiresBaseURLForFeeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Site.BaseURL = ""
	cfg.Generator.GenerateSitemap = false
	cfg.Generator.GenerateFeeds = true
	if err := cfg.Validate(); !errors.Is(err, ErrBaseURLRequired) {
		t.Fatalf("expected ErrBaseURLRequired, got %v", err)
	}

	cfg.Generator.GenerateFeeds = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("base URL should be optional without feeds or sitemap, got %v", err)
	}
}

func TestValidateDeployRequiresBucketAndRegion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Site.BaseURL = "https://blog.example.com"
	cfg.Deploy.Enabled = true
	if err := cfg.Validate(); !errors.Is(err, ErrDeployBucketRequired) {
		t.Fatalf("expected ErrDeployBucketRequired, got %v", err)
	}

	cfg.Deploy.Bucket = "blog-site"
	if err := cfg.Validate(); !errors.Is(err, ErrDeployRegionRequired) {
		t.Fatalf("expected ErrDeployRegionRequired, got %v", err)
	}

	cfg.Deploy.Region = "us-east-2"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("deploy config should validate, got %v", err)
	}
}

func TestValidateRejectsUnknownLoggingProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Site.BaseURL = "https://blog.example.com"
	cfg.Logging.Provider = "syslog"
	if err := cfg.Validate(); !errors.Is(err, ErrLoggingProviderUnknown) {
		t.Fatalf("expected ErrLoggingProviderUnknown, got %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	doc := `site:
  title: snostorm lab notes
  base_url: https://blog.example.com
generator:
  output_dir: public
  workers: 2
deploy:
  enabled: true
  bucket: blog-site
  region: us-east-2
watch:
  debounce: 500ms
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Site.Title != "snostorm lab notes" {
		t.Fatalf("unexpected title %q", cfg.Site.Title)
	}
	if cfg.Generator.OutputDir != "public" {
		t.Fatalf("unexpected output dir %q", cfg.Generator.OutputDir)
	}
	if cfg.Generator.Workers != 2 {
		t.Fatalf("unexpected workers %d", cfg.Generator.Workers)
	}
	if !cfg.Generator.GenerateSitemap {
		t.Fatal("defaults should survive partial overlay")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Fatalf("unexpected debounce %s", cfg.Watch.Debounce)
	}
	if cfg.Content.PostsDir != "content/posts" {
		t.Fatalf("unexpected posts dir %q", cfg.Content.PostsDir)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	doc := `generator:
  output_dir: ""
  generate_sitemap: false
  generate_feeds: false
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrOutputDirRequired) {
		t.Fatalf("expected ErrOutputDirRequired, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
