package templates

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderTemplate(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.RenderTemplate("post", map[string]any{
		"site": map[string]any{"title": "lab blog"},
		"post": map[string]any{
			"title":   "Rack Build",
			"date":    "2024-03-10",
			"content": "<p>hello</p>",
		},
	})
	if err != nil {
		t.Fatalf("RenderTemplate: %v", err)
	}

	if !strings.Contains(out, "<title>Rack Build | lab blog</title>") {
		t.Fatalf("expected title block, got %q", out)
	}
	if !strings.Contains(out, "<p>hello</p>") {
		t.Fatalf("expected safe HTML passthrough, got %q", out)
	}
}

func TestRenderTemplateToWriter(t *testing.T) {
	r := newTestRenderer(t)

	var buf bytes.Buffer
	out, err := r.RenderTemplate("base", map[string]any{
		"site": map[string]any{"title": "lab blog"},
	}, &buf)
	if err != nil {
		t.Fatalf("RenderTemplate: %v", err)
	}
	if out != "" {
		t.Fatalf("writer mode should return empty string, got %q", out)
	}
	if !strings.Contains(buf.String(), "lab blog") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderTemplateMissing(t *testing.T) {
	r := newTestRenderer(t)

	_, err := r.RenderTemplate("missing", nil)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if r.Has("missing") {
		t.Fatal("Has should report missing templates")
	}
	if !r.Has("post") {
		t.Fatal("Has should report existing templates")
	}
}

func TestRenderString(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.RenderString("Hi {{ name }}", map[string]any{"name": "Shane"})
	if err != nil {
		t.Fatalf("RenderString: %v", err)
	}
	if out != "Hi Shane" {
		t.Fatalf("unexpected output %q", out)
	}
}

func newTestRenderer(tb testing.TB) *Renderer {
	tb.Helper()

	r, err := NewRenderer(Config{Dir: filepath.Join("testdata", "layouts")})
	if err != nil {
		tb.Fatalf("NewRenderer: %v", err)
	}
	return r
}
