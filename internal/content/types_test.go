package content

import (
	"testing"
	"time"
)

func TestSortPostsByDate(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
	}
	posts := []Post{
		{Slug: "undated"},
		{Slug: "beta", Date: day(10)},
		{Slug: "alpha", Date: day(10)},
		{Slug: "newest", Date: day(20)},
	}

	SortPostsByDate(posts)

	want := []string{"newest", "alpha", "beta", "undated"}
	for i, slug := range want {
		if posts[i].Slug != slug {
			t.Fatalf("position %d: got %q, want %q", i, posts[i].Slug, slug)
		}
	}
}

func TestPostValidateRequiresCoreFields(t *testing.T) {
	post := Post{
		Title:      "Rack Build",
		Slug:       "rack-build",
		Date:       time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		Template:   "post",
		SourcePath: "posts/rack-build.md",
	}
	if err := post.Validate(); err != nil {
		t.Fatalf("valid post rejected: %v", err)
	}

	post.Title = ""
	if err := post.Validate(); err == nil {
		t.Fatal("expected validation error for missing title")
	}
}

func TestPostValidateRejectsBadSlug(t *testing.T) {
	post := Post{
		Title:      "Rack Build",
		Slug:       "Rack Build",
		Date:       time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		Template:   "post",
		SourcePath: "posts/rack-build.md",
	}
	if err := post.Validate(); err == nil {
		t.Fatal("expected validation error for malformed slug")
	}
}

func TestNormalizeSlug(t *testing.T) {
	got, err := NormalizeSlug("Rack Build")
	if err != nil {
		t.Fatalf("NormalizeSlug: %v", err)
	}
	if got != "rack-build" {
		t.Fatalf("got %q, want %q", got, "rack-build")
	}
	if !IsValidSlug(got) {
		t.Fatalf("normalized slug %q reported invalid", got)
	}
}

func TestHasTag(t *testing.T) {
	post := Post{Tags: []string{"Networking", "home-lab"}}
	if !post.HasTag("networking") {
		t.Fatal("expected case-insensitive tag match")
	}
	if post.HasTag("storage") {
		t.Fatal("unexpected tag match")
	}
}
