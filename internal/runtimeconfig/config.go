package runtimeconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrContentDirRequired      = errors.New("blog config: content directory is required")
	ErrTemplateDirRequired     = errors.New("blog config: template directory is required")
	ErrOutputDirRequired       = errors.New("blog config: generator output directory is required")
	ErrBaseURLRequired         = errors.New("blog config: site base URL is required when feeds or sitemap are enabled")
	ErrDeployBucketRequired    = errors.New("blog config: deploy bucket is required when deploy is enabled")
	ErrDeployRegionRequired    = errors.New("blog config: deploy region is required when deploy is enabled")
	ErrWorkersInvalid          = errors.New("blog config: generator workers must be zero or positive")
	ErrLoggingProviderUnknown  = errors.New("blog config: logging provider is invalid")
	ErrLoggingLevelInvalid     = errors.New("blog config: logging level is invalid")
	ErrLoggingFormatInvalid    = errors.New("blog config: logging format is invalid")
	ErrServerAddrRequired      = errors.New("blog config: server listen address is required when serving")
	ErrWatchDebounceInvalid    = errors.New("blog config: watch debounce must be zero or positive")
	ErrIndexPageSizeInvalid    = errors.New("blog config: index page size must be positive")
	ErrFeedLimitInvalid        = errors.New("blog config: feed item limit must be zero or positive")
	ErrProjectsFileUnreachable = errors.New("blog config: projects descriptor file is not readable")
)

// Config aggregates every knob the site pipeline understands. Fields use
// simple types so the whole struct round-trips through the YAML site file.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Content   ContentConfig   `yaml:"content"`
	Generator GeneratorConfig `yaml:"generator"`
	Deploy    DeployConfig    `yaml:"deploy"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
	Index     IndexConfig     `yaml:"index"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig captures site-wide metadata surfaced to templates and feeds.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	BaseURL     string `yaml:"base_url"`
}

// ContentConfig captures filesystem locations for authored inputs.
type ContentConfig struct {
	PostsDir     string `yaml:"posts_dir"`
	Pattern      string `yaml:"pattern"`
	Recursive    bool   `yaml:"recursive"`
	ProjectsFile string `yaml:"projects_file"`
	TemplateDir  string `yaml:"template_dir"`
	AssetDir     string `yaml:"asset_dir"`
	IncludeDraft bool   `yaml:"include_drafts"`
}

// GeneratorConfig captures behaviour for the static site build.
type GeneratorConfig struct {
	OutputDir       string        `yaml:"output_dir"`
	CleanBuild      bool          `yaml:"clean_build"`
	Incremental     bool          `yaml:"incremental"`
	CopyAssets      bool          `yaml:"copy_assets"`
	GenerateSitemap bool          `yaml:"generate_sitemap"`
	GenerateRobots  bool          `yaml:"generate_robots"`
	GenerateFeeds   bool          `yaml:"generate_feeds"`
	FeedLimit       int           `yaml:"feed_limit"`
	Workers         int           `yaml:"workers"`
	RenderTimeout   time.Duration `yaml:"render_timeout"`
}

// DeployConfig captures object storage sync settings. Credentials are taken
// from the environment, never from this file.
type DeployConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Prefix         string `yaml:"prefix"`
	DeleteOrphaned bool   `yaml:"delete_orphaned"`
	Concurrency    int    `yaml:"concurrency"`
	CacheControl   string `yaml:"cache_control"`
}

// ServerConfig captures the local preview server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// WatchConfig captures rebuild-on-change behaviour.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// IndexConfig captures the sqlite post index settings.
type IndexConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	PageSize int    `yaml:"page_size"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// DefaultConfig returns opinionated defaults matching the layout of the
// original content repository.
func DefaultConfig() Config {
	return Config{
		Site: SiteConfig{
			Title: "lab blog",
		},
		Content: ContentConfig{
			PostsDir:     "content/posts",
			Pattern:      "*.md",
			Recursive:    true,
			ProjectsFile: "content/projects.yaml",
			TemplateDir:  "templates",
			AssetDir:     "static",
		},
		Generator: GeneratorConfig{
			OutputDir:       "dist",
			CleanBuild:      true,
			Incremental:     false,
			CopyAssets:      true,
			GenerateSitemap: true,
			GenerateRobots:  true,
			GenerateFeeds:   true,
			FeedLimit:       100,
			Workers:         0,
		},
		Deploy: DeployConfig{
			Concurrency:  4,
			CacheControl: "public, max-age=300",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
		},
		Index: IndexConfig{
			Enabled:  true,
			Path:     ".lab-blog/index.db",
			PageSize: 50,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Load reads a YAML site file and overlays it on top of DefaultConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("blog config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("blog config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Content.PostsDir) == "" {
		return ErrContentDirRequired
	}
	if strings.TrimSpace(cfg.Content.TemplateDir) == "" {
		return ErrTemplateDirRequired
	}
	if strings.TrimSpace(cfg.Generator.OutputDir) == "" {
		return ErrOutputDirRequired
	}
	if cfg.Generator.Workers < 0 {
		return ErrWorkersInvalid
	}
	if cfg.Generator.FeedLimit < 0 {
		return ErrFeedLimitInvalid
	}
	if (cfg.Generator.GenerateFeeds || cfg.Generator.GenerateSitemap) && strings.TrimSpace(cfg.Site.BaseURL) == "" {
		return ErrBaseURLRequired
	}
	if cfg.Deploy.Enabled {
		if strings.TrimSpace(cfg.Deploy.Bucket) == "" {
			return ErrDeployBucketRequired
		}
		if strings.TrimSpace(cfg.Deploy.Region) == "" {
			return ErrDeployRegionRequired
		}
	}
	if cfg.Watch.Debounce < 0 {
		return ErrWatchDebounceInvalid
	}
	if cfg.Index.Enabled && cfg.Index.PageSize <= 0 {
		return ErrIndexPageSizeInvalid
	}
	if provider := normalizeProvider(cfg.Logging.Provider); provider != "" {
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
