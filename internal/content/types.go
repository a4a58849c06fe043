package content

import (
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Post is a fully parsed blog entry ready for rendering.
type Post struct {
	Title      string
	Slug       string
	Summary    string
	Author     string
	Date       time.Time
	Tags       []string
	Projects   []string
	Template   string
	Draft      bool
	SourcePath string
	Body       string
	BodyHTML   string
	Checksum   string
	Updated    time.Time
	Extra      map[string]any
}

// Validate checks the invariants every post must satisfy before it renders.
func (p Post) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Slug, validation.Required, validation.By(validateSlugValue)),
		validation.Field(&p.Date, validation.Required),
		validation.Field(&p.Template, validation.Required),
		validation.Field(&p.SourcePath, validation.Required),
	)
}

// Project describes a long-running effort that posts can reference.
type Project struct {
	Slug        string   `yaml:"slug" json:"slug"`
	Name        string   `yaml:"name" json:"name"`
	Summary     string   `yaml:"summary" json:"summary"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Repo        string   `yaml:"repo,omitempty" json:"repo,omitempty"`
	URL         string   `yaml:"url,omitempty" json:"url,omitempty"`
	Status      string   `yaml:"status,omitempty" json:"status,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Year        int      `yaml:"year,omitempty" json:"year,omitempty"`
	Featured    bool     `yaml:"featured,omitempty" json:"featured,omitempty"`
}

// ProjectStatuses enumerates the allowed project lifecycle values.
var ProjectStatuses = []string{"active", "paused", "archived"}

// Validate checks descriptor fields beyond what the JSON schema covers.
func (p Project) Validate() error {
	statuses := make([]any, 0, len(ProjectStatuses))
	for _, status := range ProjectStatuses {
		statuses = append(statuses, status)
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Slug, validation.Required, validation.By(validateSlugValue)),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Summary, validation.Required),
		validation.Field(&p.Repo, is.URL),
		validation.Field(&p.URL, is.URL),
		validation.Field(&p.Status, validation.In(statuses...)),
		validation.Field(&p.Year, validation.Min(0)),
	)
}

func validateSlugValue(value any) error {
	str, _ := value.(string)
	if strings.TrimSpace(str) == "" {
		return nil
	}
	if !IsValidSlug(str) {
		return validation.NewError("blog.content.slug_invalid", "must be a lowercase URL slug")
	}
	return nil
}

// HasTag reports whether the post carries the given tag, case-insensitively.
func (p Post) HasTag(tag string) bool {
	needle := strings.ToLower(strings.TrimSpace(tag))
	for _, candidate := range p.Tags {
		if strings.ToLower(strings.TrimSpace(candidate)) == needle {
			return true
		}
	}
	return false
}

// SortPostsByDate orders posts newest first, breaking ties by slug for
// deterministic output between runs.
func SortPostsByDate(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].Slug < posts[j].Slug
	})
}
