package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/ssnover/lab-blog/internal/content"
	"github.com/ssnover/lab-blog/internal/logging"
	"github.com/ssnover/lab-blog/pkg/interfaces"
)

// ListOptions filters and paginates post queries.
type ListOptions struct {
	Tag           string
	Project       string
	IncludeDrafts bool
	Limit         int
	Offset        int
}

// SyncResult summarises an index refresh.
type SyncResult struct {
	Created int
	Updated int
	Removed int
}

// Service maintains the post index and serves queries against it.
type Service struct {
	db     *bun.DB
	repo   repository.Repository[*PostRecord]
	logger interfaces.Logger
	now    func() time.Time
}

// NewService constructs an index service on the provided bun DB.
func NewService(db *bun.DB, logger interfaces.Logger) *Service {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Service{
		db:     db,
		repo:   NewPostRepository(db),
		logger: logger,
		now:    time.Now,
	}
}

// EnsureSchema creates the posts table when missing.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*PostRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("index: create posts table: %w", err)
	}
	return nil
}

// Sync reconciles the index with the provided post set: missing slugs are
// inserted, changed checksums updated, and records for removed posts deleted.
func (s *Service) Sync(ctx context.Context, posts []content.Post, routeFor func(content.Post) string) (*SyncResult, error) {
	if routeFor == nil {
		routeFor = func(post content.Post) string {
			return "/posts/" + post.Slug + "/"
		}
	}

	result := &SyncResult{}
	keep := make(map[string]struct{}, len(posts))
	for _, post := range posts {
		keep[post.Slug] = struct{}{}
		existing, err := s.repo.GetByIdentifier(ctx, post.Slug)
		if err != nil {
			if !goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
				return nil, fmt.Errorf("index: lookup %s: %w", post.Slug, err)
			}
			record := postToRecord(post)
			record.ID = uuid.New()
			record.Route = routeFor(post)
			record.CreatedAt = s.now().UTC()
			record.UpdatedAt = record.CreatedAt
			if _, err := s.repo.Create(ctx, record); err != nil {
				return nil, fmt.Errorf("index: create %s: %w", post.Slug, err)
			}
			result.Created++
			continue
		}
		if existing.Checksum == post.Checksum && existing.Route == routeFor(post) {
			continue
		}
		updated := postToRecord(post)
		updated.ID = existing.ID
		updated.Route = routeFor(post)
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = s.now().UTC()
		if _, err := s.repo.Update(ctx, updated); err != nil {
			return nil, fmt.Errorf("index: update %s: %w", post.Slug, err)
		}
		result.Updated++
	}

	stale, _, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: list for prune: %w", err)
	}
	for _, record := range stale {
		if _, ok := keep[record.Slug]; ok {
			continue
		}
		if err := s.repo.Delete(ctx, record); err != nil {
			return nil, fmt.Errorf("index: delete %s: %w", record.Slug, err)
		}
		result.Removed++
	}

	s.logger.Debug("index synced",
		"created", result.Created,
		"updated", result.Updated,
		"removed", result.Removed,
	)
	return result, nil
}

// GetBySlug returns a single post record.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*PostRecord, error) {
	record, err := s.repo.GetByIdentifier(ctx, strings.TrimSpace(slug))
	if err != nil {
		if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
			return nil, &NotFoundError{Slug: slug}
		}
		return nil, fmt.Errorf("index: get %s: %w", slug, err)
	}
	return record, nil
}

// List returns post records newest first, with the total count before paging.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*PostRecord, int, error) {
	criteria := []repository.SelectCriteria{
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.OrderExpr("?TableAlias.date DESC, ?TableAlias.slug ASC")
			if !opts.IncludeDrafts {
				q = q.Where("?TableAlias.draft = ?", false)
			}
			if tag := strings.TrimSpace(opts.Tag); tag != "" {
				q = q.Where("EXISTS (SELECT 1 FROM json_each(?TableAlias.tags) WHERE json_each.value = ?)", tag)
			}
			if project := strings.TrimSpace(opts.Project); project != "" {
				q = q.Where("EXISTS (SELECT 1 FROM json_each(?TableAlias.projects) WHERE json_each.value = ?)", project)
			}
			return q
		}),
	}
	if opts.Limit > 0 {
		criteria = append(criteria, repository.SelectPaginate(opts.Limit, opts.Offset))
	}

	records, total, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list: %w", err)
	}
	return records, total, nil
}

func postToRecord(post content.Post) *PostRecord {
	return &PostRecord{
		Slug:       post.Slug,
		Title:      post.Title,
		Summary:    post.Summary,
		Author:     post.Author,
		Date:       post.Date.UTC(),
		Tags:       append([]string(nil), post.Tags...),
		Projects:   append([]string(nil), post.Projects...),
		Draft:      post.Draft,
		SourcePath: post.SourcePath,
		Checksum:   post.Checksum,
	}
}
