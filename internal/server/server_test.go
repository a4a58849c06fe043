package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/ssnover/lab-blog/internal/content"
	"github.com/ssnover/lab-blog/internal/index"
)

func newTestIndex(t *testing.T) *index.Service {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	bunDB := bun.NewDB(sqlDB, sqlitedialect.New())
	bunDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = bunDB.Close() })

	svc := index.NewService(bunDB, nil)
	ctx := context.Background()
	if err := svc.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	posts := []content.Post{
		{
			Title:      "Rack Build",
			Slug:       "rack-build",
			Date:       time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
			Tags:       []string{"homelab"},
			Projects:   []string{"home-lab"},
			SourcePath: "content/posts/rack-build.md",
			Checksum:   "sum-rack",
		},
		{
			Title:      "VLAN Setup",
			Slug:       "vlan-setup",
			Date:       time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
			Tags:       []string{"networking"},
			SourcePath: "content/posts/vlan-setup.md",
			Checksum:   "sum-vlan",
		},
	}
	if _, err := svc.Sync(ctx, posts, nil); err != nil {
		t.Fatalf("sync: %v", err)
	}
	return svc
}

func newTestServer(t *testing.T, idx *index.Service, opts ...Option) *httptest.Server {
	t.Helper()

	siteDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(siteDir, "index.html"), []byte("<html>home</html>"), 0o644); err != nil {
		t.Fatalf("write site fixture: %v", err)
	}

	srv, err := New(Config{Addr: ":0", SiteDir: siteDir}, idx, opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestListPosts(t *testing.T) {
	ts := newTestServer(t, newTestIndex(t))

	var payload postListResponse
	if status := getJSON(t, ts.URL+"/api/posts", &payload); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if payload.Total != 2 || len(payload.Posts) != 2 {
		t.Fatalf("expected 2 posts, got total=%d len=%d", payload.Total, len(payload.Posts))
	}
	if payload.Posts[0].Slug != "vlan-setup" {
		t.Fatalf("expected newest first, got %q", payload.Posts[0].Slug)
	}

	if status := getJSON(t, ts.URL+"/api/posts?tag=networking", &payload); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if len(payload.Posts) != 1 || payload.Posts[0].Slug != "vlan-setup" {
		t.Fatalf("unexpected tag filter result: %+v", payload.Posts)
	}
}

func TestGetPost(t *testing.T) {
	ts := newTestServer(t, newTestIndex(t))

	var record index.PostRecord
	if status := getJSON(t, ts.URL+"/api/posts/rack-build", &record); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if record.Title != "Rack Build" {
		t.Fatalf("unexpected title %q", record.Title)
	}

	if status := getJSON(t, ts.URL+"/api/posts/missing", nil); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestListProjects(t *testing.T) {
	source := func() ([]content.Project, error) {
		return []content.Project{{Slug: "home-lab", Name: "Home Lab", Summary: "rack and network"}}, nil
	}
	ts := newTestServer(t, newTestIndex(t), WithProjectSource(source))

	var payload struct {
		Projects []content.Project `json:"projects"`
	}
	if status := getJSON(t, ts.URL+"/api/projects", &payload); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if len(payload.Projects) != 1 || payload.Projects[0].Slug != "home-lab" {
		t.Fatalf("unexpected projects payload: %+v", payload.Projects)
	}
}

func TestProjectsUnconfigured(t *testing.T) {
	ts := newTestServer(t, newTestIndex(t))

	if status := getJSON(t, ts.URL+"/api/projects", nil); status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
}

func TestAPIWithoutIndex(t *testing.T) {
	ts := newTestServer(t, nil)

	if status := getJSON(t, ts.URL+"/api/posts", nil); status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
}

func TestServesSiteFiles(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get site root: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for site root, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)

	var payload map[string]string
	if status := getJSON(t, ts.URL+"/healthz", &payload); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", payload)
	}
}
