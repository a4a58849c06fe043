// Package templates renders site layouts with the pongo2 template engine.
// Layout names map to files under the configured template directory, so a
// front matter `layout: post` resolves to post.html.
package templates

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

var ErrTemplateNotFound = errors.New("templates: template not found")

// Config controls template discovery and caching.
type Config struct {
	// Dir is the root directory containing layout files.
	Dir string
	// Extension is appended to bare layout names (defaults to ".html").
	Extension string
	// Reload disables the compiled template cache. Useful under watch mode
	// where layouts change between builds.
	Reload bool
}

// Renderer implements interfaces.TemplateRenderer backed by pongo2.
type Renderer struct {
	cfg Config
	set *pongo2.TemplateSet

	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

// NewRenderer constructs a renderer rooted at cfg.Dir.
func NewRenderer(cfg Config) (*Renderer, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("templates: template directory is required")
	}
	if _, err := os.Stat(cfg.Dir); err != nil {
		return nil, fmt.Errorf("templates: stat %s: %w", cfg.Dir, err)
	}
	if strings.TrimSpace(cfg.Extension) == "" {
		cfg.Extension = ".html"
	}

	loader, err := pongo2.NewLocalFileSystemLoader(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("templates: loader for %s: %w", cfg.Dir, err)
	}

	return &Renderer{
		cfg:   cfg,
		set:   pongo2.NewSet("lab-blog", loader),
		cache: map[string]*pongo2.Template{},
	}, nil
}

// RenderTemplate renders the named layout with the provided data. When an
// io.Writer is supplied the output is streamed to it and the returned string
// is empty.
func (r *Renderer) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	tpl, err := r.template(name)
	if err != nil {
		return "", err
	}

	ctx, err := toContext(data)
	if err != nil {
		return "", err
	}

	if len(out) > 0 && out[0] != nil {
		if err := tpl.ExecuteWriter(ctx, out[0]); err != nil {
			return "", fmt.Errorf("templates: render %s: %w", name, err)
		}
		return "", nil
	}

	rendered, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("templates: render %s: %w", name, err)
	}
	return rendered, nil
}

// RenderString renders an inline template source with the provided data.
func (r *Renderer) RenderString(source string, data any, out ...io.Writer) (string, error) {
	tpl, err := r.set.FromString(source)
	if err != nil {
		return "", fmt.Errorf("templates: compile inline template: %w", err)
	}

	ctx, err := toContext(data)
	if err != nil {
		return "", err
	}

	if len(out) > 0 && out[0] != nil {
		if err := tpl.ExecuteWriter(ctx, out[0]); err != nil {
			return "", fmt.Errorf("templates: render inline template: %w", err)
		}
		return "", nil
	}

	rendered, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("templates: render inline template: %w", err)
	}
	return rendered, nil
}

// Has reports whether the named layout resolves to a template file.
func (r *Renderer) Has(name string) bool {
	_, err := r.template(name)
	return err == nil
}

func (r *Renderer) template(name string) (*pongo2.Template, error) {
	filename := r.filename(name)

	if !r.cfg.Reload {
		r.mu.RLock()
		tpl, ok := r.cache[filename]
		r.mu.RUnlock()
		if ok {
			return tpl, nil
		}
	}

	tpl, err := r.set.FromFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, filename, err)
	}

	if !r.cfg.Reload {
		r.mu.Lock()
		r.cache[filename] = tpl
		r.mu.Unlock()
	}
	return tpl, nil
}

func (r *Renderer) filename(name string) string {
	trimmed := strings.TrimSpace(name)
	if strings.Contains(trimmed, ".") {
		return trimmed
	}
	return trimmed + r.cfg.Extension
}

func toContext(data any) (pongo2.Context, error) {
	switch typed := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return typed, nil
	case map[string]any:
		return pongo2.Context(typed), nil
	default:
		return nil, fmt.Errorf("templates: unsupported context type %T", data)
	}
}
