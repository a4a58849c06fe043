package generator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	manifestFileName    = ".lab-blog-manifest.json"
	manifestFileVersion = 1
)

// buildManifest stores metadata about the last successful build to support incremental runs.
type buildManifest struct {
	Version     int                      `json:"version"`
	GeneratedAt time.Time                `json:"generated_at"`
	Pages       map[string]manifestPage  `json:"pages"`
	Assets      map[string]manifestAsset `json:"assets"`
}

type manifestPage struct {
	Kind         string    `json:"kind"`
	Slug         string    `json:"slug,omitempty"`
	Route        string    `json:"route"`
	Output       string    `json:"output"`
	Template     string    `json:"template"`
	Hash         string    `json:"hash"`
	Checksum     string    `json:"checksum"`
	LastModified time.Time `json:"last_modified"`
	RenderedAt   time.Time `json:"rendered_at"`
}

type manifestAsset struct {
	Source   string    `json:"source"`
	Output   string    `json:"output"`
	Checksum string    `json:"checksum"`
	Size     int64     `json:"size"`
	CopiedAt time.Time `json:"copied_at"`
}

func newBuildManifest() *buildManifest {
	return &buildManifest{
		Version: manifestFileVersion,
		Pages:   map[string]manifestPage{},
		Assets:  map[string]manifestAsset{},
	}
}

func parseManifest(data []byte) (*buildManifest, error) {
	if len(data) == 0 {
		return newBuildManifest(), nil
	}
	var manifest buildManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("generator: parse manifest: %w", err)
	}
	if manifest.Pages == nil {
		manifest.Pages = map[string]manifestPage{}
	}
	if manifest.Assets == nil {
		manifest.Assets = map[string]manifestAsset{}
	}
	if manifest.Version == 0 {
		manifest.Version = manifestFileVersion
	}
	return &manifest, nil
}

func (m *buildManifest) marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	// Stable ordering for deterministic output.
	type orderedManifest struct {
		Version     int             `json:"version"`
		GeneratedAt time.Time       `json:"generated_at"`
		Pages       []manifestPage  `json:"pages"`
		Assets      []manifestAsset `json:"assets"`
	}
	ordered := orderedManifest{
		Version:     m.Version,
		GeneratedAt: m.GeneratedAt,
	}
	if ordered.Version == 0 {
		ordered.Version = manifestFileVersion
	}
	for _, entry := range m.Pages {
		ordered.Pages = append(ordered.Pages, entry)
	}
	sort.Slice(ordered.Pages, func(i, j int) bool {
		return ordered.Pages[i].Route < ordered.Pages[j].Route
	})
	for _, entry := range m.Assets {
		ordered.Assets = append(ordered.Assets, entry)
	}
	sort.Slice(ordered.Assets, func(i, j int) bool {
		return ordered.Assets[i].Source < ordered.Assets[j].Source
	})
	return json.MarshalIndent(ordered, "", "  ")
}

// unmarshal for the ordered form written by marshal.
func (m *buildManifest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Version     int             `json:"version"`
		GeneratedAt time.Time       `json:"generated_at"`
		Pages       json.RawMessage `json:"pages"`
		Assets      json.RawMessage `json:"assets"`
	}
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	m.Version = decoded.Version
	m.GeneratedAt = decoded.GeneratedAt
	m.Pages = map[string]manifestPage{}
	m.Assets = map[string]manifestAsset{}

	if len(decoded.Pages) > 0 {
		var pages []manifestPage
		if err := json.Unmarshal(decoded.Pages, &pages); err != nil {
			return err
		}
		for _, page := range pages {
			m.setPage(page)
		}
	}
	if len(decoded.Assets) > 0 {
		var assets []manifestAsset
		if err := json.Unmarshal(decoded.Assets, &assets); err != nil {
			return err
		}
		for _, asset := range assets {
			m.setAsset(asset)
		}
	}
	return nil
}

func pageManifestKey(kind pageKind, slug, route string) string {
	if strings.TrimSpace(slug) != "" {
		return string(kind) + "::" + strings.ToLower(strings.TrimSpace(slug))
	}
	return string(kind) + "::" + strings.TrimSpace(route)
}

func (m *buildManifest) lookupPage(kind pageKind, slug, route string) (manifestPage, bool) {
	if m == nil || len(m.Pages) == 0 {
		return manifestPage{}, false
	}
	entry, ok := m.Pages[pageManifestKey(kind, slug, route)]
	return entry, ok
}

func (m *buildManifest) setPage(entry manifestPage) {
	if m == nil {
		return
	}
	if m.Pages == nil {
		m.Pages = map[string]manifestPage{}
	}
	m.Pages[pageManifestKey(pageKind(entry.Kind), entry.Slug, entry.Route)] = entry
}

func (m *buildManifest) shouldSkipPage(job pageJob, output string) bool {
	entry, ok := m.lookupPage(job.Kind, job.Slug, job.Route)
	if !ok {
		return false
	}
	if entry.Hash != job.Hash {
		return false
	}
	return strings.TrimSpace(entry.Output) == strings.TrimSpace(output)
}

func (m *buildManifest) lookupAsset(source string) (manifestAsset, bool) {
	if m == nil || len(m.Assets) == 0 {
		return manifestAsset{}, false
	}
	entry, ok := m.Assets[strings.TrimSpace(source)]
	return entry, ok
}

func (m *buildManifest) setAsset(entry manifestAsset) {
	if m == nil {
		return
	}
	if m.Assets == nil {
		m.Assets = map[string]manifestAsset{}
	}
	m.Assets[strings.TrimSpace(entry.Source)] = entry
}

func (m *buildManifest) shouldSkipAsset(source, checksum, output string) bool {
	entry, ok := m.lookupAsset(source)
	if !ok {
		return false
	}
	if entry.Checksum != checksum {
		return false
	}
	return strings.TrimSpace(entry.Output) == strings.TrimSpace(output)
}

func (m *buildManifest) prunePages(keys map[string]struct{}) {
	if len(keys) == 0 || len(m.Pages) == 0 {
		return
	}
	for key := range m.Pages {
		if _, ok := keys[key]; !ok {
			delete(m.Pages, key)
		}
	}
}
