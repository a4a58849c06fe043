package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type writeCategory string

const (
	categoryPage     writeCategory = "page"
	categoryAsset    writeCategory = "asset"
	categorySitemap  writeCategory = "sitemap"
	categoryRobots   writeCategory = "robots"
	categoryFeed     writeCategory = "feed"
	categoryManifest writeCategory = "manifest"
)

// writeFileRequest describes a file write operation routed through the artifact writer.
type writeFileRequest struct {
	Path        string
	Content     io.Reader
	Size        int64
	Category    writeCategory
	ContentType string
	Checksum    string
	Metadata    map[string]string
}

// artifactWriter abstracts filesystem specifics for generator outputs so tests
// can capture writes without touching disk.
type artifactWriter interface {
	EnsureDir(ctx context.Context, path string) error
	WriteFile(ctx context.Context, req writeFileRequest) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	RemoveAll(ctx context.Context, path string) error
}

// newLocalWriter returns an artifact writer rooted at dir. All request paths
// are interpreted relative to that root.
func newLocalWriter(dir string) artifactWriter {
	return &localWriter{root: filepath.Clean(dir)}
}

type localWriter struct {
	root string
}

func (w *localWriter) EnsureDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" || path == "." {
		return nil
	}
	return os.MkdirAll(w.resolve(path), 0o755)
}

func (w *localWriter) WriteFile(ctx context.Context, req writeFileRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Content == nil {
		return errors.New("generator: write requires content reader")
	}
	if strings.TrimSpace(req.Path) == "" {
		return errors.New("generator: write requires path")
	}
	target := w.resolve(req.Path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("generator: ensure dir for %s: %w", req.Path, err)
	}
	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("generator: create %s: %w", req.Path, err)
	}
	if _, err := io.Copy(file, req.Content); err != nil {
		file.Close()
		return fmt.Errorf("generator: write %s: %w", req.Path, err)
	}
	return file.Close()
}

func (w *localWriter) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(w.resolve(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("generator: read %s: %w", path, err)
	}
	return data, nil
}

func (w *localWriter) RemoveAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.RemoveAll(w.resolve(path))
}

func (w *localWriter) resolve(path string) string {
	return filepath.Join(w.root, filepath.FromSlash(strings.TrimLeft(path, "/")))
}
