package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ssnover/lab-blog/internal/content"
	"github.com/ssnover/lab-blog/internal/logging"
	"github.com/ssnover/lab-blog/pkg/interfaces"
)

// BuildContext aggregates everything a build run needs: parsed posts, project
// descriptors, tag groupings, and the resolved page jobs.
type BuildContext struct {
	Posts          []content.Post
	DraftsExcluded int
	Projects       []content.Project
	PostsByProject map[string][]content.Post
	Tags           []string
	PostsByTag     map[string][]content.Post
	Pages          []pageJob
	GeneratedAt    time.Time
	Options        BuildOptions
}

// CollectContent parses the content tree and returns the resolved build
// context without rendering anything. The index sync and the posts CLI use it
// to see the same post set a build would.
func CollectContent(ctx context.Context, markdown interfaces.MarkdownService, cfg Config, opts BuildOptions) (*BuildContext, error) {
	applyTemplateDefaults(&cfg)
	svc := &service{
		cfg:  cfg,
		deps: Dependencies{Markdown: markdown, Logger: logging.NoOp()},
		now:  time.Now,
	}
	return svc.loadContext(ctx, opts)
}

func (s *service) loadContext(ctx context.Context, opts BuildOptions) (*BuildContext, error) {
	docs, err := s.deps.Markdown.LoadDirectory(ctx, ".", interfaces.LoadOptions{})
	if err != nil {
		return nil, fmt.Errorf("generator: load content: %w", err)
	}
	if len(docs) == 0 {
		return nil, content.ErrNoContent
	}

	includeDrafts := opts.IncludeDrafts || s.cfg.IncludeDrafts

	buildCtx := &BuildContext{
		PostsByProject: map[string][]content.Post{},
		PostsByTag:     map[string][]content.Post{},
		GeneratedAt:    s.now().UTC(),
		Options:        opts,
	}

	seen := map[string]string{}
	for _, doc := range docs {
		post, err := documentToPost(doc)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[post.Slug]; ok {
			return nil, fmt.Errorf("%w: %s used by %s and %s", content.ErrDuplicateSlug, post.Slug, prev, post.SourcePath)
		}
		seen[post.Slug] = post.SourcePath
		if post.Draft && !includeDrafts {
			buildCtx.DraftsExcluded++
			continue
		}
		buildCtx.Posts = append(buildCtx.Posts, post)
	}
	content.SortPostsByDate(buildCtx.Posts)

	if file := strings.TrimSpace(s.cfg.ProjectsFile); file != "" {
		projects, err := content.LoadProjects(file)
		if err != nil {
			return nil, err
		}
		buildCtx.Projects = projects
	}
	grouped, err := content.ResolveProjectRefs(buildCtx.Posts, buildCtx.Projects)
	if err != nil {
		return nil, err
	}
	buildCtx.PostsByProject = grouped

	for _, post := range buildCtx.Posts {
		for _, tag := range post.Tags {
			key := normalizeTag(tag)
			if key == "" {
				continue
			}
			buildCtx.PostsByTag[key] = append(buildCtx.PostsByTag[key], post)
		}
	}
	buildCtx.Tags = make([]string, 0, len(buildCtx.PostsByTag))
	for tag := range buildCtx.PostsByTag {
		buildCtx.Tags = append(buildCtx.Tags, tag)
	}
	sort.Strings(buildCtx.Tags)

	buildCtx.Pages = s.buildPageJobs(buildCtx)
	return buildCtx, nil
}

// documentToPost converts a parsed Markdown document into a validated post.
// The slug falls back to the normalized file name when front matter omits one.
func documentToPost(doc *interfaces.Document) (content.Post, error) {
	if doc == nil {
		return content.Post{}, fmt.Errorf("generator: nil document")
	}
	fm := doc.FrontMatter

	if strings.TrimSpace(fm.Template) == "" {
		return content.Post{}, fmt.Errorf("%w: %s", content.ErrMissingLayout, doc.FilePath)
	}
	if strings.TrimSpace(fm.Title) == "" {
		return content.Post{}, fmt.Errorf("%w: %s", content.ErrMissingTitle, doc.FilePath)
	}
	if fm.Date.IsZero() {
		return content.Post{}, fmt.Errorf("%w: %s", content.ErrMissingDate, doc.FilePath)
	}

	slugSource := fm.Slug
	if strings.TrimSpace(slugSource) == "" {
		base := path.Base(doc.FilePath)
		slugSource = strings.TrimSuffix(base, path.Ext(base))
	}
	slug, err := content.NormalizeSlug(slugSource)
	if err != nil || slug == "" {
		return content.Post{}, fmt.Errorf("generator: %s: invalid slug %q", doc.FilePath, slugSource)
	}

	projects := make([]string, 0, len(fm.Projects))
	for _, ref := range fm.Projects {
		if trimmed := strings.TrimSpace(ref); trimmed != "" {
			projects = append(projects, trimmed)
		}
	}

	return content.Post{
		Title:      fm.Title,
		Slug:       slug,
		Summary:    fm.Summary,
		Author:     fm.Author,
		Date:       fm.Date,
		Tags:       append([]string(nil), fm.Tags...),
		Projects:   projects,
		Template:   fm.Template,
		Draft:      fm.Draft,
		SourcePath: doc.FilePath,
		Body:       string(doc.Body),
		BodyHTML:   string(doc.BodyHTML),
		Checksum:   hex.EncodeToString(doc.Checksum),
		Updated:    doc.LastModified,
		Extra:      fm.Custom,
	}, nil
}

func (s *service) buildPageJobs(buildCtx *BuildContext) []pageJob {
	site := s.siteContext()
	jobs := make([]pageJob, 0, len(buildCtx.Posts)+len(buildCtx.Tags)+2)

	postList := make([]map[string]any, 0, len(buildCtx.Posts))
	for _, post := range buildCtx.Posts {
		postList = append(postList, s.postContext(post))
	}

	for i, post := range buildCtx.Posts {
		jobs = append(jobs, pageJob{
			Kind:         pageKindPost,
			Slug:         post.Slug,
			Route:        postRoute(post.Slug),
			Template:     post.Template,
			Hash:         pageHash(post.Checksum, post.Template),
			LastModified: post.Updated,
			Context: map[string]any{
				"site":  site,
				"post":  postList[i],
				"build": s.buildContextMeta(buildCtx),
			},
		})
	}

	jobs = append(jobs, pageJob{
		Kind:         pageKindIndex,
		Route:        "/",
		Template:     s.cfg.IndexTemplate,
		Hash:         collectionHash("index", buildCtx.Posts),
		LastModified: newestUpdate(buildCtx.Posts),
		Context: map[string]any{
			"site":  site,
			"posts": postList,
			"tags":  buildCtx.Tags,
			"build": s.buildContextMeta(buildCtx),
		},
	})

	for _, tag := range buildCtx.Tags {
		posts := buildCtx.PostsByTag[tag]
		tagged := make([]map[string]any, 0, len(posts))
		for _, post := range posts {
			tagged = append(tagged, s.postContext(post))
		}
		jobs = append(jobs, pageJob{
			Kind:         pageKindTag,
			Slug:         tag,
			Route:        tagRoute(tag),
			Template:     s.cfg.TagTemplate,
			Hash:         collectionHash("tag:"+tag, posts),
			LastModified: newestUpdate(posts),
			Context: map[string]any{
				"site":  site,
				"tag":   tag,
				"posts": tagged,
				"build": s.buildContextMeta(buildCtx),
			},
		})
	}

	if len(buildCtx.Projects) > 0 {
		projectList := make([]map[string]any, 0, len(buildCtx.Projects))
		var newest time.Time
		for _, project := range buildCtx.Projects {
			posts := buildCtx.PostsByProject[project.Slug]
			related := make([]map[string]any, 0, len(posts))
			for _, post := range posts {
				related = append(related, s.postContext(post))
			}
			if ts := newestUpdate(posts); ts.After(newest) {
				newest = ts
			}
			projectList = append(projectList, map[string]any{
				"slug":        project.Slug,
				"name":        project.Name,
				"summary":     project.Summary,
				"description": project.Description,
				"repo":        project.Repo,
				"url":         project.URL,
				"status":      project.Status,
				"tags":        project.Tags,
				"year":        project.Year,
				"featured":    project.Featured,
				"posts":       related,
			})
		}
		jobs = append(jobs, pageJob{
			Kind:         pageKindProjects,
			Route:        projectsRoute,
			Template:     s.cfg.ProjectsTemplate,
			Hash:         projectsHash(buildCtx.Projects, buildCtx.PostsByProject),
			LastModified: newest,
			Context: map[string]any{
				"site":     site,
				"projects": projectList,
				"build":    s.buildContextMeta(buildCtx),
			},
		})
	}

	return jobs
}

func (s *service) siteContext() map[string]any {
	return map[string]any{
		"title":       s.cfg.SiteTitle,
		"description": s.cfg.SiteDescription,
		"author":      s.cfg.SiteAuthor,
		"base_url":    strings.TrimRight(s.cfg.BaseURL, "/"),
	}
}

func (s *service) postContext(post content.Post) map[string]any {
	return map[string]any{
		"title":    post.Title,
		"slug":     post.Slug,
		"summary":  post.Summary,
		"author":   post.Author,
		"date":     post.Date,
		"tags":     post.Tags,
		"projects": post.Projects,
		"draft":    post.Draft,
		"url":      absoluteURL(s.cfg.BaseURL, postRoute(post.Slug)),
		"route":    postRoute(post.Slug),
		"content":  post.BodyHTML,
		"extra":    post.Extra,
	}
}

func (s *service) buildContextMeta(buildCtx *BuildContext) map[string]any {
	return map[string]any{
		"generated_at": buildCtx.GeneratedAt,
		"post_count":   len(buildCtx.Posts),
	}
}

func normalizeTag(tag string) string {
	normalized, err := content.NormalizeSlug(tag)
	if err != nil {
		return ""
	}
	return normalized
}

func pageHash(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func collectionHash(name string, posts []content.Post) string {
	parts := make([]string, 0, len(posts)+1)
	parts = append(parts, name)
	for _, post := range posts {
		parts = append(parts, post.Slug+"@"+post.Checksum)
	}
	return pageHash(parts...)
}

func projectsHash(projects []content.Project, grouped map[string][]content.Post) string {
	parts := make([]string, 0, len(projects)+1)
	parts = append(parts, "projects")
	for _, project := range projects {
		parts = append(parts, project.Slug)
		for _, post := range grouped[project.Slug] {
			parts = append(parts, post.Slug+"@"+post.Checksum)
		}
	}
	return pageHash(parts...)
}

func newestUpdate(posts []content.Post) time.Time {
	var newest time.Time
	for _, post := range posts {
		if post.Updated.After(newest) {
			newest = post.Updated
		}
		if post.Date.After(newest) {
			newest = post.Date
		}
	}
	return newest
}
