package content

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadProjects reads and validates the project descriptor file. Slugs are
// normalized and must be unique across the file.
func LoadProjects(path string) ([]Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read projects %s: %w", path, err)
	}
	return ParseProjects(data)
}

// ParseProjects decodes a YAML descriptor document into validated projects.
func ParseProjects(data []byte) ([]Project, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("content: parse projects: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	doc, err := normalizeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("content: normalize projects: %w", err)
	}
	if err := ValidateProjectDocument(doc); err != nil {
		return nil, err
	}

	var projects []Project
	if err := yaml.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("content: decode projects: %w", err)
	}

	seen := make(map[string]struct{}, len(projects))
	for i := range projects {
		normalized, err := NormalizeSlug(projects[i].Slug)
		if err != nil || normalized == "" {
			return nil, fmt.Errorf("content: project %q has invalid slug %q", projects[i].Name, projects[i].Slug)
		}
		projects[i].Slug = normalized
		if _, dup := seen[normalized]; dup {
			return nil, fmt.Errorf("%w: project %s", ErrDuplicateSlug, normalized)
		}
		seen[normalized] = struct{}{}
		if err := projects[i].Validate(); err != nil {
			return nil, fmt.Errorf("content: project %s: %w", normalized, err)
		}
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Slug < projects[j].Slug
	})
	return projects, nil
}

// ResolveProjectRefs checks every project reference on the posts against the
// descriptor set and returns the posts grouped by project slug.
func ResolveProjectRefs(posts []Post, projects []Project) (map[string][]Post, error) {
	known := make(map[string]struct{}, len(projects))
	for _, project := range projects {
		known[project.Slug] = struct{}{}
	}

	grouped := make(map[string][]Post)
	for _, post := range posts {
		for _, ref := range post.Projects {
			slugValue := strings.TrimSpace(ref)
			if slugValue == "" {
				continue
			}
			if _, ok := known[slugValue]; !ok {
				return nil, fmt.Errorf("%w: post %s references %s", ErrUnknownProjectRef, post.Slug, slugValue)
			}
			grouped[slugValue] = append(grouped[slugValue], post)
		}
	}
	for slugValue := range grouped {
		SortPostsByDate(grouped[slugValue])
	}
	return grouped, nil
}
