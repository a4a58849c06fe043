package markdown

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ssnover/lab-blog/pkg/interfaces"
)

func TestServiceLoad(t *testing.T) {
	svc := newTestService(t, true)

	doc, err := svc.Load(context.Background(), "posts/first-post.md", interfaces.LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if doc.FrontMatter.Title != "First Post" {
		t.Fatalf("expected title First Post, got %q", doc.FrontMatter.Title)
	}
	if len(doc.BodyHTML) == 0 {
		t.Fatalf("expected BodyHTML to be populated")
	}
	if len(doc.Checksum) == 0 {
		t.Fatalf("expected checksum to be populated")
	}
}

func TestServiceLoadDirectory(t *testing.T) {
	svc := newTestService(t, true)

	docs, err := svc.LoadDirectory(context.Background(), "posts", interfaces.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}

	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}

	var foundNested bool
	for _, doc := range docs {
		if filepath.Ext(doc.FilePath) != ".md" {
			t.Fatalf("expected markdown file, got %s", doc.FilePath)
		}
		if len(doc.Checksum) == 0 {
			t.Fatalf("expected checksum set for %s", doc.FilePath)
		}
		if doc.FilePath == "posts/networking/vlan-setup.md" {
			foundNested = true
		}
	}
	if !foundNested {
		t.Fatalf("expected to include posts/networking/vlan-setup.md")
	}
}

func TestServiceLoadDirectory_NonRecursiveOverride(t *testing.T) {
	svc := newTestService(t, true)

	no := false
	docs, err := svc.LoadDirectory(context.Background(), "posts", interfaces.LoadOptions{
		Recursive: &no,
	})
	if err != nil {
		t.Fatalf("LoadDirectory override: %v", err)
	}

	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	for _, doc := range docs {
		if filepath.Dir(doc.FilePath) != "posts" {
			t.Fatalf("expected only top-level posts, got %s", doc.FilePath)
		}
	}
}

func TestServiceLoadDirectoryMalformedFrontMatter(t *testing.T) {
	root := t.TempDir()
	postsDir := filepath.Join(root, "posts")
	if err := os.MkdirAll(postsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	broken := "---\ntitle: Broken Post\ntags: [homelab\n---\nbody\n"
	if err := os.WriteFile(filepath.Join(postsDir, "broken.md"), []byte(broken), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	svc, err := NewService(Config{
		BasePath:  root,
		Pattern:   "*.md",
		Recursive: true,
	}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.LoadDirectory(context.Background(), "posts", interfaces.LoadOptions{})
	if err == nil {
		t.Fatal("expected error for malformed front matter")
	}
	if !strings.Contains(err.Error(), "frontmatter") {
		t.Fatalf("expected front matter parse error, got %v", err)
	}
}

func newTestService(tb testing.TB, recursive bool) *Service {
	tb.Helper()

	svc, err := NewService(Config{
		BasePath:  filepath.Join("testdata", "site"),
		Pattern:   "*.md",
		Recursive: recursive,
	}, nil)
	if err != nil {
		tb.Fatalf("NewService: %v", err)
	}
	return svc
}
