package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ssnover/lab-blog/internal/content"
	"github.com/ssnover/lab-blog/internal/markdown"
	"github.com/ssnover/lab-blog/pkg/interfaces"
)

type memWriter struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemWriter() *memWriter {
	return &memWriter{files: map[string][]byte{}}
}

func (w *memWriter) EnsureDir(context.Context, string) error { return nil }

func (w *memWriter) WriteFile(_ context.Context, req writeFileRequest) error {
	data, err := io.ReadAll(req.Content)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[req.Path] = data
	return nil
}

func (w *memWriter) ReadFile(_ context.Context, path string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, ok := w.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (w *memWriter) RemoveAll(_ context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if path == "." || path == "" {
		w.files = map[string][]byte{}
		return nil
	}
	for key := range w.files {
		if strings.HasPrefix(key, strings.Trim(path, "/")) {
			delete(w.files, key)
		}
	}
	return nil
}

func (w *memWriter) has(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[path]
	return ok
}

type stubRenderer struct{}

func (stubRenderer) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	return fmt.Sprintf("<html><!-- %s --></html>", name), nil
}

func (stubRenderer) RenderString(source string, data any, out ...io.Writer) (string, error) {
	return source, nil
}

func newTestService(tb testing.TB, contentDir string, mutate func(*Config)) (*service, *memWriter) {
	tb.Helper()

	md, err := markdown.NewService(markdown.Config{
		BasePath:  contentDir,
		Recursive: true,
	}, nil)
	if err != nil {
		tb.Fatalf("markdown.NewService: %v", err)
	}

	cfg := Config{
		OutputDir:       "dist",
		BaseURL:         "https://blog.example.com",
		SiteTitle:       "lab blog",
		SiteAuthor:      "Shane",
		ProjectsFile:    filepath.Join("testdata", "site", "projects.yaml"),
		AssetDir:        filepath.Join("testdata", "site", "static"),
		CopyAssets:      true,
		GenerateSitemap: true,
		GenerateRobots:  true,
		GenerateFeeds:   true,
		Workers:         2,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	writer := newMemWriter()
	svc := NewService(cfg, Dependencies{
		Markdown: md,
		Renderer: stubRenderer{},
		writer:   writer,
	}).(*service)
	return svc, writer
}

func TestBuildRendersSite(t *testing.T) {
	svc, writer := newTestService(t, filepath.Join("testdata", "site", "posts"), nil)

	result, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// 2 posts + index + 2 tags + projects
	if result.PagesBuilt != 6 {
		t.Fatalf("expected 6 pages, got %d", result.PagesBuilt)
	}
	if result.DraftsExcluded != 1 {
		t.Fatalf("expected 1 excluded draft, got %d", result.DraftsExcluded)
	}
	for _, path := range []string{
		"index.html",
		"posts/rack-build/index.html",
		"posts/vlan-setup/index.html",
		"tags/homelab/index.html",
		"tags/networking/index.html",
		"projects/index.html",
		"assets/css/site.css",
		"sitemap.xml",
		"robots.txt",
		"feed.xml",
		"feed.atom.xml",
		manifestFileName,
	} {
		if !writer.has(path) {
			t.Fatalf("expected output %s", path)
		}
	}
	if writer.has("posts/draft-idea/index.html") {
		t.Fatal("draft should not render by default")
	}

	sitemap, _ := writer.ReadFile(context.Background(), "sitemap.xml")
	if !strings.Contains(string(sitemap), "https://blog.example.com/posts/vlan-setup/") {
		t.Fatalf("sitemap missing post URL:\n%s", sitemap)
	}

	feed, _ := writer.ReadFile(context.Background(), "feed.xml")
	if !strings.Contains(string(feed), "<title>VLAN Setup</title>") {
		t.Fatalf("feed missing post title:\n%s", feed)
	}
}

func TestBuildIncludesDraftsOnRequest(t *testing.T) {
	svc, writer := newTestService(t, filepath.Join("testdata", "site", "posts"), nil)

	result, err := svc.Build(context.Background(), BuildOptions{IncludeDrafts: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.DraftsExcluded != 0 {
		t.Fatalf("expected no excluded drafts, got %d", result.DraftsExcluded)
	}
	if !writer.has("posts/draft-idea/index.html") {
		t.Fatal("draft should render when requested")
	}
}

func TestBuildIncrementalSkips(t *testing.T) {
	svc, _ := newTestService(t, filepath.Join("testdata", "site", "posts"), func(cfg *Config) {
		cfg.Incremental = true
	})

	first, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	if first.PagesSkipped != 0 {
		t.Fatalf("first build should not skip, got %d", first.PagesSkipped)
	}

	second, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if second.PagesBuilt != 0 {
		t.Fatalf("second build should skip everything, built %d", second.PagesBuilt)
	}
	if second.PagesSkipped != first.PagesBuilt {
		t.Fatalf("expected %d skipped, got %d", first.PagesBuilt, second.PagesSkipped)
	}

	// Force re-renders everything.
	forced, err := svc.Build(context.Background(), BuildOptions{Force: true})
	if err != nil {
		t.Fatalf("forced build: %v", err)
	}
	if forced.PagesBuilt != first.PagesBuilt {
		t.Fatalf("forced build should rebuild all pages, built %d", forced.PagesBuilt)
	}
}

func TestBuildDryRun(t *testing.T) {
	svc, writer := newTestService(t, filepath.Join("testdata", "site", "posts"), nil)

	result, err := svc.Build(context.Background(), BuildOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !result.DryRun {
		t.Fatal("expected dry run result")
	}
	if len(writer.files) != 0 {
		t.Fatalf("dry run should not write files, wrote %d", len(writer.files))
	}
}

func TestBuildRejectsDuplicateSlugs(t *testing.T) {
	svc, _ := newTestService(t, filepath.Join("testdata", "dupes"), func(cfg *Config) {
		cfg.ProjectsFile = ""
	})

	if _, err := svc.Build(context.Background(), BuildOptions{}); !errors.Is(err, content.ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}
}

func TestBuildEmptyContentTree(t *testing.T) {
	svc, _ := newTestService(t, t.TempDir(), func(cfg *Config) {
		cfg.ProjectsFile = ""
	})

	if _, err := svc.Build(context.Background(), BuildOptions{}); !errors.Is(err, content.ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestCleanRemovesOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "dist")
	if err := os.MkdirAll(filepath.Join(out, "posts"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(out, "index.html"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	svc := NewService(Config{OutputDir: out}, Dependencies{
		Markdown: stubMarkdown{},
		Renderer: stubRenderer{},
	})
	if err := svc.Clean(context.Background()); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected output removed, got %v", err)
	}
}

type stubMarkdown struct{}

func (stubMarkdown) Load(context.Context, string, interfaces.LoadOptions) (*interfaces.Document, error) {
	return nil, errors.New("not implemented")
}

func (stubMarkdown) LoadDirectory(context.Context, string, interfaces.LoadOptions) ([]*interfaces.Document, error) {
	return nil, errors.New("not implemented")
}

func (stubMarkdown) Render(context.Context, []byte, interfaces.ParseOptions) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (stubMarkdown) RenderDocument(context.Context, *interfaces.Document, interfaces.ParseOptions) ([]byte, error) {
	return nil, errors.New("not implemented")
}
