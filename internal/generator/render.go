package generator

import (
	"time"
)

type pageKind string

const (
	pageKindPost     pageKind = "post"
	pageKindIndex    pageKind = "index"
	pageKindTag      pageKind = "tag"
	pageKindProjects pageKind = "projects"
)

// pageJob describes a single HTML artifact the build must produce, with the
// template context already resolved.
type pageJob struct {
	Kind         pageKind
	Slug         string
	Route        string
	Template     string
	Hash         string
	LastModified time.Time
	Context      map[string]any
}

// RenderedPage captures the rendered HTML output for a page.
type RenderedPage struct {
	Kind         pageKind
	Slug         string
	Route        string
	Output       string
	Template     string
	HTML         string
	Hash         string
	Checksum     string
	LastModified time.Time
	Duration     time.Duration
}

// RenderDiagnostic records rendering timing and errors for individual pages.
type RenderDiagnostic struct {
	Kind     pageKind
	Slug     string
	Route    string
	Template string
	Duration time.Duration
	Skipped  bool
	Err      error
}

type renderOutcome struct {
	page       RenderedPage
	diagnostic RenderDiagnostic
	err        error
	skipped    bool
}
