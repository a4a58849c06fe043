package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ssnover/lab-blog/internal/logging"
	"github.com/ssnover/lab-blog/pkg/interfaces"
)

var (
	// ErrServiceDisabled indicates the generator feature is disabled.
	ErrServiceDisabled  = errors.New("generator: service disabled")
	errRendererRequired = errors.New("generator: template renderer is required")
	errMarkdownRequired = errors.New("generator: markdown service is required")
)

// Service describes the static site generator contract.
type Service interface {
	Build(ctx context.Context, opts BuildOptions) (*BuildResult, error)
	Clean(ctx context.Context) error
}

// Config captures runtime behaviour toggles for the generator.
type Config struct {
	OutputDir       string
	BaseURL         string
	SiteTitle       string
	SiteDescription string
	SiteAuthor      string
	ProjectsFile    string
	AssetDir        string
	CleanBuild      bool
	Incremental     bool
	CopyAssets      bool
	GenerateSitemap bool
	GenerateRobots  bool
	GenerateFeeds   bool
	FeedLimit       int
	Workers         int
	IncludeDrafts   bool

	// Template names for the collection pages. Post pages take their
	// template from front matter.
	IndexTemplate    string
	TagTemplate      string
	ProjectsTemplate string
}

// BuildOptions narrows the scope of a generator run.
type BuildOptions struct {
	DryRun        bool
	Force         bool
	IncludeDrafts bool
}

// BuildResult reports aggregated build metadata.
type BuildResult struct {
	PagesBuilt     int
	PagesSkipped   int
	AssetsBuilt    int
	AssetsSkipped  int
	DraftsExcluded int
	FeedsWritten   int
	Duration       time.Duration
	Rendered       []RenderedPage
	Diagnostics    []RenderDiagnostic
	Errors         []error
	DryRun         bool
}

// Dependencies lists the services required by the generator.
type Dependencies struct {
	Markdown interfaces.MarkdownService
	Renderer interfaces.TemplateRenderer
	Logger   interfaces.Logger

	// writer overrides the output destination, used by tests.
	writer artifactWriter
}

// NewService wires a generator implementation with the provided configuration and dependencies.
func NewService(cfg Config, deps Dependencies) Service {
	if deps.Logger == nil {
		deps.Logger = logging.NoOp()
	}
	applyTemplateDefaults(&cfg)
	return &service{
		cfg:  cfg,
		deps: deps,
		now:  time.Now,
	}
}

// NewDisabledService returns a Service that fails all operations with ErrServiceDisabled.
func NewDisabledService() Service {
	return disabledService{}
}

func applyTemplateDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.IndexTemplate) == "" {
		cfg.IndexTemplate = "index"
	}
	if strings.TrimSpace(cfg.TagTemplate) == "" {
		cfg.TagTemplate = "tag"
	}
	if strings.TrimSpace(cfg.ProjectsTemplate) == "" {
		cfg.ProjectsTemplate = "projects"
	}
}

type service struct {
	cfg  Config
	deps Dependencies
	now  func() time.Time
}

type disabledService struct{}

func (s *service) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.deps.Renderer == nil {
		return nil, errRendererRequired
	}
	if s.deps.Markdown == nil {
		return nil, errMarkdownRequired
	}

	start := time.Now()
	buildCtx, err := s.loadContext(ctx, opts)
	if err != nil {
		return nil, err
	}

	s.deps.Logger.Debug("build context loaded",
		"posts", len(buildCtx.Posts),
		"projects", len(buildCtx.Projects),
		"tags", len(buildCtx.Tags),
		"drafts_excluded", buildCtx.DraftsExcluded,
	)

	result := &BuildResult{
		DryRun:         opts.DryRun,
		DraftsExcluded: buildCtx.DraftsExcluded,
		Diagnostics:    make([]RenderDiagnostic, 0, len(buildCtx.Pages)),
	}

	writer := s.writer()
	if s.cfg.CleanBuild && !opts.DryRun {
		if err := writer.RemoveAll(ctx, "."); err != nil {
			return nil, fmt.Errorf("generator: clean output: %w", err)
		}
	}

	manifest, manifestErr := s.loadManifest(ctx, writer)
	if manifestErr != nil {
		s.deps.Logger.Warn("manifest unreadable, starting fresh", "error", manifestErr)
		manifest = newBuildManifest()
	}
	if s.cfg.CleanBuild || opts.Force {
		manifest = newBuildManifest()
	}

	var (
		mu          sync.Mutex
		rendered    = make([]RenderedPage, 0, len(buildCtx.Pages))
		errorsSlice []error
		pageKeys    = map[string]struct{}{}
	)

	collect := func(outcome renderOutcome) {
		mu.Lock()
		defer mu.Unlock()
		result.Diagnostics = append(result.Diagnostics, outcome.diagnostic)
		pageKeys[pageManifestKey(outcome.diagnostic.Kind, outcome.diagnostic.Slug, outcome.diagnostic.Route)] = struct{}{}
		if outcome.err != nil {
			errorsSlice = append(errorsSlice, outcome.err)
			return
		}
		if outcome.skipped {
			result.PagesSkipped++
			return
		}
		result.PagesBuilt++
		rendered = append(rendered, outcome.page)
	}

	workerCount := s.effectiveWorkerCount(len(buildCtx.Pages))
	if workerCount <= 1 || len(buildCtx.Pages) <= 1 {
		for _, job := range buildCtx.Pages {
			if err := ctx.Err(); err != nil {
				errorsSlice = append(errorsSlice, err)
				break
			}
			collect(s.renderPage(ctx, job, manifest, opts))
		}
	} else {
		s.renderConcurrently(ctx, buildCtx.Pages, workerCount, manifest, opts, collect)
	}

	if opts.DryRun {
		result.Rendered = rendered
		result.Duration = time.Since(start)
		if len(errorsSlice) > 0 {
			result.Errors = append(result.Errors, errorsSlice...)
			return result, errors.Join(errorsSlice...)
		}
		return result, nil
	}

	if err := s.persistPages(ctx, writer, rendered); err != nil {
		errorsSlice = append(errorsSlice, err)
	}

	if s.cfg.CopyAssets {
		assetSummary, err := s.copyAssets(ctx, writer, manifest)
		if err != nil {
			errorsSlice = append(errorsSlice, err)
		} else {
			result.AssetsBuilt += assetSummary.Built
			result.AssetsSkipped += assetSummary.Skipped
		}
	}

	if s.cfg.GenerateSitemap {
		sitemapPages := s.mergeRenderedForSitemap(buildCtx, rendered, manifest)
		if err := s.writeSitemap(ctx, writer, buildCtx, sitemapPages); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	if s.cfg.GenerateRobots {
		if err := s.writeRobots(ctx, writer); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	if s.cfg.GenerateFeeds {
		items := s.buildFeedItems(buildCtx)
		written, err := s.writeFeeds(ctx, writer, buildCtx, items)
		if err != nil {
			errorsSlice = append(errorsSlice, err)
		}
		result.FeedsWritten = written
	}

	if len(errorsSlice) == 0 {
		manifest.GeneratedAt = buildCtx.GeneratedAt
		for _, page := range rendered {
			manifest.setPage(manifestPage{
				Kind:         string(page.Kind),
				Slug:         page.Slug,
				Route:        page.Route,
				Output:       page.Output,
				Template:     page.Template,
				Hash:         page.Hash,
				Checksum:     page.Checksum,
				LastModified: page.LastModified,
				RenderedAt:   buildCtx.GeneratedAt,
			})
		}
		manifest.prunePages(pageKeys)
		if err := s.persistManifest(ctx, writer, manifest); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	result.Rendered = rendered
	result.Duration = time.Since(start)
	s.deps.Logger.Info("build finished",
		"pages_built", result.PagesBuilt,
		"pages_skipped", result.PagesSkipped,
		"assets_built", result.AssetsBuilt,
		"duration", result.Duration,
		"dry_run", result.DryRun,
	)
	if len(errorsSlice) > 0 {
		result.Errors = append(result.Errors, errorsSlice...)
		return result, errors.Join(errorsSlice...)
	}
	return result, nil
}

// Clean removes the output directory.
func (s *service) Clean(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	target := strings.TrimSpace(s.cfg.OutputDir)
	if target == "" {
		return errors.New("generator: output directory not configured")
	}
	if err := s.writer().RemoveAll(ctx, "."); err != nil {
		return fmt.Errorf("generator: clean %s: %w", target, err)
	}
	s.deps.Logger.Info("output cleaned", "dir", target)
	return nil
}

func (s *service) writer() artifactWriter {
	if s.deps.writer != nil {
		return s.deps.writer
	}
	return newLocalWriter(s.cfg.OutputDir)
}

func (s *service) renderConcurrently(
	ctx context.Context,
	jobs []pageJob,
	workers int,
	manifest *buildManifest,
	opts BuildOptions,
	collect func(renderOutcome),
) {
	queue := make(chan pageJob)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				select {
				case <-ctx.Done():
					collect(renderOutcome{
						diagnostic: RenderDiagnostic{
							Kind:  job.Kind,
							Slug:  job.Slug,
							Route: job.Route,
							Err:   ctx.Err(),
						},
						err: ctx.Err(),
					})
				default:
					collect(s.renderPage(ctx, job, manifest, opts))
				}
			}
		}()
	}

	for _, job := range jobs {
		select {
		case <-ctx.Done():
			close(queue)
			wg.Wait()
			return
		case queue <- job:
		}
	}
	close(queue)
	wg.Wait()
}

func (s *service) renderPage(ctx context.Context, job pageJob, manifest *buildManifest, opts BuildOptions) renderOutcome {
	outcome := renderOutcome{
		diagnostic: RenderDiagnostic{
			Kind:     job.Kind,
			Slug:     job.Slug,
			Route:    job.Route,
			Template: job.Template,
		},
	}

	select {
	case <-ctx.Done():
		outcome.err = ctx.Err()
		outcome.diagnostic.Err = ctx.Err()
		return outcome
	default:
	}

	output := routeOutputPath(job.Route)
	if s.cfg.Incremental && !opts.Force && manifest != nil && manifest.shouldSkipPage(job, output) {
		outcome.skipped = true
		outcome.diagnostic.Skipped = true
		return outcome
	}

	start := time.Now()
	rendered, err := s.deps.Renderer.RenderTemplate(job.Template, job.Context)
	duration := time.Since(start)
	outcome.diagnostic.Duration = duration
	if err != nil {
		wrapped := fmt.Errorf("generator: render template %q for %s: %w", job.Template, job.Route, err)
		outcome.err = wrapped
		outcome.diagnostic.Err = wrapped
		return outcome
	}

	outcome.page = RenderedPage{
		Kind:         job.Kind,
		Slug:         job.Slug,
		Route:        job.Route,
		Output:       output,
		Template:     job.Template,
		HTML:         rendered,
		Hash:         job.Hash,
		LastModified: job.LastModified,
		Duration:     duration,
	}
	return outcome
}

func (s *service) persistPages(ctx context.Context, writer artifactWriter, pages []RenderedPage) error {
	for i := range pages {
		checksum := computeHashFromString(pages[i].HTML)
		pages[i].Checksum = checksum

		metadata := map[string]string{
			"kind":     string(pages[i].Kind),
			"route":    pages[i].Route,
			"template": pages[i].Template,
		}
		if s.cfg.Incremental {
			metadata["incremental"] = "true"
		}
		if err := writer.WriteFile(ctx, writeFileRequest{
			Path:        pages[i].Output,
			Content:     strings.NewReader(pages[i].HTML),
			Size:        int64(len(pages[i].HTML)),
			Category:    categoryPage,
			ContentType: "text/html; charset=utf-8",
			Checksum:    checksum,
			Metadata:    metadata,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) mergeRenderedForSitemap(
	buildCtx *BuildContext,
	rendered []RenderedPage,
	manifest *buildManifest,
) []RenderedPage {
	renderedByKey := make(map[string]RenderedPage, len(rendered))
	for _, page := range rendered {
		renderedByKey[pageManifestKey(page.Kind, page.Slug, page.Route)] = page
	}

	sitemap := make([]RenderedPage, 0, len(buildCtx.Pages))
	for _, job := range buildCtx.Pages {
		key := pageManifestKey(job.Kind, job.Slug, job.Route)
		if page, ok := renderedByKey[key]; ok {
			sitemap = append(sitemap, page)
			continue
		}
		if manifest != nil {
			if entry, ok := manifest.lookupPage(job.Kind, job.Slug, job.Route); ok {
				sitemap = append(sitemap, RenderedPage{
					Kind:         job.Kind,
					Slug:         job.Slug,
					Route:        entry.Route,
					Output:       entry.Output,
					Template:     entry.Template,
					Hash:         entry.Hash,
					Checksum:     entry.Checksum,
					LastModified: entry.LastModified,
				})
				continue
			}
		}
		sitemap = append(sitemap, RenderedPage{
			Kind:         job.Kind,
			Slug:         job.Slug,
			Route:        job.Route,
			Template:     job.Template,
			Hash:         job.Hash,
			LastModified: job.LastModified,
		})
	}
	return sitemap
}

func (s *service) loadManifest(ctx context.Context, writer artifactWriter) (*buildManifest, error) {
	data, err := writer.ReadFile(ctx, manifestFileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newBuildManifest(), nil
		}
		return nil, fmt.Errorf("generator: read manifest: %w", err)
	}
	return parseManifest(data)
}

func (s *service) persistManifest(ctx context.Context, writer artifactWriter, manifest *buildManifest) error {
	data, err := manifest.marshal()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return writer.WriteFile(ctx, writeFileRequest{
		Path:        manifestFileName,
		Content:     strings.NewReader(string(data)),
		Size:        int64(len(data)),
		Category:    categoryManifest,
		ContentType: "application/json",
		Checksum:    computeHash(data),
		Metadata: map[string]string{
			"generated_at": manifest.GeneratedAt.UTC().Format(time.RFC3339),
		},
	})
}

func (s *service) writeSitemap(ctx context.Context, writer artifactWriter, buildCtx *BuildContext, pages []RenderedPage) error {
	content := buildSitemap(s.cfg.BaseURL, pages, buildCtx.GeneratedAt)
	return writer.WriteFile(ctx, writeFileRequest{
		Path:        "sitemap.xml",
		Content:     strings.NewReader(content),
		Size:        int64(len(content)),
		Category:    categorySitemap,
		ContentType: "application/xml",
		Checksum:    computeHashFromString(content),
		Metadata: map[string]string{
			"generated_at": buildCtx.GeneratedAt.UTC().Format(time.RFC3339),
		},
	})
}

func (s *service) writeRobots(ctx context.Context, writer artifactWriter) error {
	content := buildRobots(s.cfg.BaseURL, s.cfg.GenerateSitemap)
	return writer.WriteFile(ctx, writeFileRequest{
		Path:        "robots.txt",
		Content:     strings.NewReader(content),
		Size:        int64(len(content)),
		Category:    categoryRobots,
		ContentType: "text/plain; charset=utf-8",
		Checksum:    computeHashFromString(content),
	})
}

func (s *service) effectiveWorkerCount(jobCount int) int {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	if jobCount > 0 && workers > jobCount {
		return jobCount
	}
	return workers
}

func computeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func computeHashFromString(content string) string {
	return computeHash([]byte(content))
}

func (disabledService) Build(context.Context, BuildOptions) (*BuildResult, error) {
	return nil, ErrServiceDisabled
}

func (disabledService) Clean(context.Context) error {
	return ErrServiceDisabled
}
