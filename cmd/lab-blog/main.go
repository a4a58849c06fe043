// Command lab-blog builds, previews, and deploys the blog. Subcommands:
//
//	build   render the site into the output directory
//	clean   remove generated artifacts
//	deploy  sync the output directory to object storage
//	serve   run the local preview server
//	watch   rebuild on content or template changes
//	posts   query the post index
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/ssnover/lab-blog/internal/commands"
	staticcmd "github.com/ssnover/lab-blog/internal/commands/static"
	"github.com/ssnover/lab-blog/internal/content"
	"github.com/ssnover/lab-blog/internal/deploy"
	"github.com/ssnover/lab-blog/internal/generator"
	"github.com/ssnover/lab-blog/internal/index"
	"github.com/ssnover/lab-blog/internal/logging"
	"github.com/ssnover/lab-blog/internal/logging/console"
	"github.com/ssnover/lab-blog/internal/logging/gologger"
	"github.com/ssnover/lab-blog/internal/markdown"
	"github.com/ssnover/lab-blog/internal/runtimeconfig"
	"github.com/ssnover/lab-blog/internal/server"
	"github.com/ssnover/lab-blog/internal/templates"
	"github.com/ssnover/lab-blog/internal/watch"
	"github.com/ssnover/lab-blog/pkg/interfaces"
)

const defaultConfigFile = "site.yaml"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lab-blog: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("missing subcommand")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "build":
		return runBuild(ctx, args[1:])
	case "clean":
		return runClean(ctx, args[1:])
	case "deploy":
		return runDeploy(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	case "watch":
		return runWatch(ctx, args[1:])
	case "posts":
		return runPosts(ctx, args[1:])
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: lab-blog <command> [flags]

commands:
  build    render the site into the output directory
  clean    remove generated artifacts
  deploy   sync the output directory to object storage
  serve    run the local preview server
  watch    rebuild on content or template changes
  posts    query the post index

run "lab-blog <command> -h" for command flags`)
}

// app bundles the services shared by the subcommands.
type app struct {
	cfg      runtimeconfig.Config
	provider interfaces.LoggerProvider
	markdown interfaces.MarkdownService
}

func newApp(configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	provider, err := newLoggerProvider(cfg.Logging)
	if err != nil {
		return nil, err
	}
	md, err := markdown.NewService(markdown.Config{
		BasePath:  cfg.Content.PostsDir,
		Pattern:   cfg.Content.Pattern,
		Recursive: cfg.Content.Recursive,
	}, nil)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, provider: provider, markdown: md}, nil
}

func loadConfig(path string) (runtimeconfig.Config, error) {
	if path == defaultConfigFile {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg := runtimeconfig.DefaultConfig()
			if err := cfg.Validate(); err != nil {
				return runtimeconfig.Config{}, fmt.Errorf("no %s found and the built-in defaults are incomplete: %w", path, err)
			}
			return cfg, nil
		}
	}
	return runtimeconfig.Load(path)
}

func newLoggerProvider(cfg runtimeconfig.LoggingConfig) (interfaces.LoggerProvider, error) {
	switch cfg.Provider {
	case "", "console":
		level := console.ParseLevel(cfg.Level)
		return console.NewProvider(console.Options{MinLevel: &level}), nil
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("%w: %s", runtimeconfig.ErrLoggingProviderUnknown, cfg.Provider)
	}
}

func (a *app) generatorService() (generator.Service, error) {
	renderer, err := templates.NewRenderer(templates.Config{Dir: a.cfg.Content.TemplateDir})
	if err != nil {
		return nil, err
	}
	return generator.NewService(a.generatorConfig(), generator.Dependencies{
		Markdown: a.markdown,
		Renderer: renderer,
		Logger:   logging.GeneratorLogger(a.provider),
	}), nil
}

func (a *app) generatorConfig() generator.Config {
	return generator.Config{
		OutputDir:       a.cfg.Generator.OutputDir,
		BaseURL:         a.cfg.Site.BaseURL,
		SiteTitle:       a.cfg.Site.Title,
		SiteDescription: a.cfg.Site.Description,
		SiteAuthor:      a.cfg.Site.Author,
		ProjectsFile:    a.cfg.Content.ProjectsFile,
		AssetDir:        a.cfg.Content.AssetDir,
		CleanBuild:      a.cfg.Generator.CleanBuild,
		Incremental:     a.cfg.Generator.Incremental,
		CopyAssets:      a.cfg.Generator.CopyAssets,
		GenerateSitemap: a.cfg.Generator.GenerateSitemap,
		GenerateRobots:  a.cfg.Generator.GenerateRobots,
		GenerateFeeds:   a.cfg.Generator.GenerateFeeds,
		FeedLimit:       a.cfg.Generator.FeedLimit,
		Workers:         a.cfg.Generator.Workers,
		IncludeDrafts:   a.cfg.Content.IncludeDraft,
	}
}

func (a *app) openIndex(ctx context.Context) (*index.Service, func(), error) {
	if !a.cfg.Index.Enabled {
		return nil, func() {}, nil
	}
	path := a.cfg.Index.Path
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create index directory: %w", err)
		}
	}
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open index database: %w", err)
	}
	bunDB := bun.NewDB(sqlDB, sqlitedialect.New())
	svc := index.NewService(bunDB, logging.IndexLogger(a.provider))
	if err := svc.EnsureSchema(ctx); err != nil {
		bunDB.Close()
		return nil, nil, err
	}
	return svc, func() { _ = bunDB.Close() }, nil
}

// syncIndex refreshes the sqlite index from the content tree. Drafts are
// always indexed; queries decide whether to show them.
func (a *app) syncIndex(ctx context.Context) error {
	idx, closeIdx, err := a.openIndex(ctx)
	if err != nil {
		return err
	}
	if idx == nil {
		return nil
	}
	defer closeIdx()

	buildCtx, err := generator.CollectContent(ctx, a.markdown, a.generatorConfig(), generator.BuildOptions{
		IncludeDrafts: true,
	})
	if err != nil {
		return err
	}
	_, err = idx.Sync(ctx, buildCtx.Posts, nil)
	return err
}

func runBuild(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigFile, "site configuration file")
	force := fs.Bool("force", false, "rebuild every page even when unchanged")
	dryRun := fs.Bool("dry-run", false, "report what would be built without writing")
	drafts := fs.Bool("drafts", false, "include draft posts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	svc, err := a.generatorService()
	if err != nil {
		return err
	}

	logger := commands.CommandLogger(a.provider, "static")
	handler := staticcmd.NewBuildSiteHandler(svc, logger, staticcmd.FeatureGates{
		GeneratorEnabled: func() bool { return true },
	})

	var result *generator.BuildResult
	cmd := staticcmd.BuildSiteCommand{
		Force:         *force,
		DryRun:        *dryRun,
		IncludeDrafts: *drafts,
		ResultCallback: func(env staticcmd.BuildResultEnvelope) {
			result = env.Result
		},
	}
	if err := handler.Execute(ctx, cmd); err != nil {
		return err
	}
	if result != nil {
		fmt.Printf("built %d pages (%d skipped, %d drafts excluded) in %s\n",
			result.PagesBuilt, result.PagesSkipped, result.DraftsExcluded, result.Duration.Round(time.Millisecond))
	}

	if *dryRun {
		return nil
	}
	return a.syncIndex(ctx)
}

func runClean(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigFile, "site configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	svc, err := a.generatorService()
	if err != nil {
		return err
	}

	handler := staticcmd.NewCleanSiteHandler(svc, commands.CommandLogger(a.provider, "static"), staticcmd.FeatureGates{
		GeneratorEnabled: func() bool { return true },
	})
	if err := handler.Execute(ctx, staticcmd.CleanSiteCommand{}); err != nil {
		return err
	}
	fmt.Printf("cleaned %s\n", a.cfg.Generator.OutputDir)
	return nil
}

func runDeploy(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigFile, "site configuration file")
	dryRun := fs.Bool("dry-run", false, "plan the sync without uploading")
	force := fs.Bool("force", false, "upload every file regardless of checksums")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	if !a.cfg.Deploy.Enabled {
		return errors.New("deploy is not enabled in the site configuration")
	}

	svc, err := deploy.NewService(deploy.Config{
		Bucket:         a.cfg.Deploy.Bucket,
		Region:         a.cfg.Deploy.Region,
		Prefix:         a.cfg.Deploy.Prefix,
		Concurrency:    a.cfg.Deploy.Concurrency,
		DeleteOrphaned: a.cfg.Deploy.DeleteOrphaned,
		CacheControl:   a.cfg.Deploy.CacheControl,
	}, deploy.WithLogger(logging.DeployLogger(a.provider)))
	if err != nil {
		return err
	}

	handler := staticcmd.NewDeploySiteHandler(svc, commands.CommandLogger(a.provider, "static"), staticcmd.FeatureGates{
		DeployEnabled: func() bool { return true },
	})

	var result *deploy.Result
	cmd := staticcmd.DeploySiteCommand{
		SourceDir: a.cfg.Generator.OutputDir,
		DryRun:    *dryRun,
		Force:     *force,
		ResultCallback: func(env staticcmd.DeployResultEnvelope) {
			result = env.Result
		},
	}
	if err := handler.Execute(ctx, cmd); err != nil {
		return err
	}
	if result != nil {
		verb := "deployed"
		if result.DryRun {
			verb = "would deploy"
		}
		fmt.Printf("%s %d files (%d skipped, %d deleted) to s3://%s\n",
			verb, result.Uploaded, result.Skipped, result.Deleted, a.cfg.Deploy.Bucket)
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigFile, "site configuration file")
	addr := fs.String("addr", "", "listen address (overrides configuration)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}

	idx, closeIdx, err := a.openIndex(ctx)
	if err != nil {
		return err
	}
	defer closeIdx()

	listen := a.cfg.Server.Addr
	if *addr != "" {
		listen = *addr
	}

	srv, err := server.New(server.Config{
		Addr:    listen,
		SiteDir: a.cfg.Generator.OutputDir,
	}, idx,
		server.WithLogger(logging.ServerLogger(a.provider)),
		server.WithProjectSource(a.projectSource()),
	)
	if err != nil {
		return err
	}

	err = srv.ListenAndServe(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigFile, "site configuration file")
	drafts := fs.Bool("drafts", true, "include draft posts in watch builds")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}

	renderer, err := templates.NewRenderer(templates.Config{
		Dir:    a.cfg.Content.TemplateDir,
		Reload: true,
	})
	if err != nil {
		return err
	}
	svc := generator.NewService(a.generatorConfig(), generator.Dependencies{
		Markdown: a.markdown,
		Renderer: renderer,
		Logger:   logging.GeneratorLogger(a.provider),
	})

	logger := logging.WatchLogger(a.provider)
	rebuild := func(ctx context.Context, paths []string) {
		result, err := svc.Build(ctx, generator.BuildOptions{IncludeDrafts: *drafts})
		if err != nil {
			logger.Error("rebuild failed", "error", err)
			return
		}
		logger.Info("rebuilt",
			"pages", result.PagesBuilt,
			"skipped", result.PagesSkipped,
			"trigger_count", len(paths),
		)
	}

	// initial build before watching
	rebuild(ctx, nil)

	paths := []string{a.cfg.Content.PostsDir, a.cfg.Content.TemplateDir}
	if a.cfg.Content.AssetDir != "" {
		if _, err := os.Stat(a.cfg.Content.AssetDir); err == nil {
			paths = append(paths, a.cfg.Content.AssetDir)
		}
	}
	if a.cfg.Content.ProjectsFile != "" {
		if _, err := os.Stat(a.cfg.Content.ProjectsFile); err == nil {
			paths = append(paths, a.cfg.Content.ProjectsFile)
		}
	}

	watcher, err := watch.New(watch.Config{
		Paths:    paths,
		Debounce: a.cfg.Watch.Debounce,
	}, rebuild, logger)
	if err != nil {
		return err
	}

	err = watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runPosts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("posts", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigFile, "site configuration file")
	tag := fs.String("tag", "", "filter by tag")
	project := fs.String("project", "", "filter by project slug")
	drafts := fs.Bool("drafts", false, "include draft posts")
	limit := fs.Int("limit", 0, "maximum number of posts (0 uses the configured page size)")
	offset := fs.Int("offset", 0, "number of posts to skip")
	asJSON := fs.Bool("json", false, "emit JSON instead of a table")
	sync := fs.Bool("sync", false, "refresh the index from the content tree first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	if !a.cfg.Index.Enabled {
		return errors.New("the post index is disabled in the site configuration")
	}

	if *sync {
		if err := a.syncIndex(ctx); err != nil {
			return err
		}
	}

	idx, closeIdx, err := a.openIndex(ctx)
	if err != nil {
		return err
	}
	defer closeIdx()

	pageSize := *limit
	if pageSize <= 0 {
		pageSize = a.cfg.Index.PageSize
	}
	records, total, err := idx.List(ctx, index.ListOptions{
		Tag:           *tag,
		Project:       *project,
		IncludeDrafts: *drafts,
		Limit:         pageSize,
		Offset:        *offset,
	})
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"posts": records, "total": total})
	}

	for _, record := range records {
		marker := " "
		if record.Draft {
			marker = "*"
		}
		fmt.Printf("%s %s  %-30s  %s\n", marker, record.Date.Format("2006-01-02"), record.Slug, record.Title)
	}
	fmt.Printf("%d of %d posts\n", len(records), total)
	return nil
}

func (a *app) projectSource() server.ProjectSource {
	file := a.cfg.Content.ProjectsFile
	if file == "" {
		return nil
	}
	return func() ([]content.Project, error) {
		return content.LoadProjects(file)
	}
}
