package content

import (
	"errors"
	"testing"
	"time"
)

func TestParseProjects(t *testing.T) {
	doc := []byte(`- slug: home-lab
  name: Home Lab
  summary: Rack, network, and services at home.
  repo: https://github.com/ssnover/home-lab
  url: https://lab.ssnover.dev
  status: active
  tags: [networking, kubernetes]
  year: 2023
  featured: true
- slug: firmware-tools
  name: Firmware Tools
  summary: Helpers for embedded builds.
`)
	projects, err := ParseProjects(doc)
	if err != nil {
		t.Fatalf("parse projects: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].Slug != "firmware-tools" {
		t.Fatalf("projects should be sorted by slug, got %q first", projects[0].Slug)
	}
	if projects[1].Repo != "https://github.com/ssnover/home-lab" {
		t.Fatalf("unexpected repo %q", projects[1].Repo)
	}
	if projects[1].Year != 2023 || !projects[1].Featured {
		t.Fatalf("expected year and featured to round-trip, got %+v", projects[1])
	}
}

func TestParseProjectsRejectsMissingFields(t *testing.T) {
	doc := []byte(`- slug: home-lab
  name: Home Lab
`)
	_, err := ParseProjects(doc)
	if !errors.Is(err, ErrProjectValidation) {
		t.Fatalf("expected ErrProjectValidation, got %v", err)
	}
	var descriptorErr *DescriptorValidationError
	if !errors.As(err, &descriptorErr) {
		t.Fatalf("expected DescriptorValidationError, got %T", err)
	}
	if len(descriptorErr.Issues) == 0 {
		t.Fatal("expected at least one issue")
	}
}

func TestParseProjectsRejectsUnknownKeys(t *testing.T) {
	doc := []byte(`- slug: home-lab
  name: Home Lab
  summary: ok
  homepage: https://example.com
`)
	if _, err := ParseProjects(doc); !errors.Is(err, ErrProjectValidation) {
		t.Fatalf("expected ErrProjectValidation, got %v", err)
	}
}

func TestParseProjectsRejectsDuplicateSlugs(t *testing.T) {
	doc := []byte(`- slug: home-lab
  name: Home Lab
  summary: one
- slug: home-lab
  name: Home Lab Again
  summary: two
`)
	if _, err := ParseProjects(doc); !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}
}

func TestParseProjectsRejectsBadStatus(t *testing.T) {
	doc := []byte(`- slug: home-lab
  name: Home Lab
  summary: ok
  status: abandoned
`)
	if _, err := ParseProjects(doc); err == nil {
		t.Fatal("expected status validation error")
	}
}

func TestParseProjectsEmptyDocument(t *testing.T) {
	projects, err := ParseProjects([]byte(""))
	if err != nil {
		t.Fatalf("empty document should parse, got %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("expected no projects, got %d", len(projects))
	}
}

func TestResolveProjectRefs(t *testing.T) {
	projects := []Project{{Slug: "home-lab", Name: "Home Lab", Summary: "ok"}}
	posts := []Post{
		{Slug: "rack-build", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Projects: []string{"home-lab"}},
		{Slug: "vlan-setup", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Projects: []string{"home-lab"}},
		{Slug: "unrelated", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}

	grouped, err := ResolveProjectRefs(posts, projects)
	if err != nil {
		t.Fatalf("resolve refs: %v", err)
	}
	got := grouped["home-lab"]
	if len(got) != 2 {
		t.Fatalf("expected 2 posts for home-lab, got %d", len(got))
	}
	if got[0].Slug != "vlan-setup" {
		t.Fatalf("posts should be newest first, got %q", got[0].Slug)
	}

	posts[0].Projects = []string{"ghost"}
	if _, err := ResolveProjectRefs(posts, projects); !errors.Is(err, ErrUnknownProjectRef) {
		t.Fatalf("expected ErrUnknownProjectRef, got %v", err)
	}
}

func TestPostHasTag(t *testing.T) {
	post := Post{Tags: []string{"Networking", "go"}}
	if !post.HasTag("networking") {
		t.Fatal("tag match should be case-insensitive")
	}
	if post.HasTag("rust") {
		t.Fatal("unexpected tag match")
	}
}
