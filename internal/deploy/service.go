// Package deploy synchronises a built site tree with an object storage
// bucket. Uploads are content-addressed: a file whose MD5 matches the remote
// ETag is skipped, so repeated deploys only touch what changed.
package deploy

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ssnover/lab-blog/internal/logging"
	"github.com/ssnover/lab-blog/pkg/interfaces"
)

// ErrServiceDisabled indicates the deploy feature is disabled.
var ErrServiceDisabled = errors.New("deploy: service disabled")

// ErrBucketRequired indicates the service was configured without a bucket.
var ErrBucketRequired = errors.New("deploy: bucket is required")

// ErrRegionRequired indicates the service was configured without a region.
var ErrRegionRequired = errors.New("deploy: region is required")

// ErrSourceDirRequired indicates no site directory was supplied.
var ErrSourceDirRequired = errors.New("deploy: source directory is required")

// Config controls a deploy run.
type Config struct {
	Bucket         string `json:"bucket" yaml:"bucket"`
	Region         string `json:"region" yaml:"region"`
	Prefix         string `json:"prefix" yaml:"prefix"`
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	Concurrency    int    `json:"concurrency" yaml:"concurrency"`
	DeleteOrphaned bool   `json:"delete_orphaned" yaml:"delete_orphaned"`
	CacheControl   string `json:"cache_control" yaml:"cache_control"`
}

// Validate reports the first configuration problem.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return ErrBucketRequired
	}
	if strings.TrimSpace(c.Region) == "" {
		return ErrRegionRequired
	}
	return nil
}

// Options tweaks a single Deploy call.
type Options struct {
	DryRun bool
	Force  bool
}

// planAction classifies one file in the sync plan.
type planAction string

const (
	actionUpload planAction = "upload"
	actionSkip   planAction = "skip"
	actionDelete planAction = "delete"
)

// planEntry pairs a key with the action the planner chose for it.
type planEntry struct {
	Key         string
	Action      planAction
	Size        int64
	ContentType string
	checksum    string
	localPath   string
}

// Result summarises a deploy run.
type Result struct {
	Uploaded int
	Skipped  int
	Deleted  int
	Bytes    int64
	Duration time.Duration
	DryRun   bool
	Plan     []planEntry
}

// Service pushes a local directory to object storage.
type Service struct {
	cfg    Config
	logger interfaces.Logger
	store  objectStore
	now    func() time.Time
}

// Option mutates the service during construction.
type Option func(*Service)

// WithLogger overrides the logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// withStore overrides the object store. Tests use it to avoid real buckets.
func withStore(store objectStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// NewService builds a deploy service for the given bucket configuration.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	svc := &Service{
		cfg:    cfg,
		logger: logging.NoOp(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Deploy syncs sourceDir into the bucket and returns the run summary.
func (s *Service) Deploy(ctx context.Context, sourceDir string, opts Options) (*Result, error) {
	if strings.TrimSpace(sourceDir) == "" {
		return nil, ErrSourceDirRequired
	}
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("deploy: stat source %s: %w", sourceDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("deploy: source %s is not a directory", sourceDir)
	}

	store := s.store
	if store == nil {
		store, err = newS3Store(ctx, s.cfg)
		if err != nil {
			return nil, err
		}
	}

	started := s.now()

	remote, err := store.List(ctx, s.cfg.Prefix)
	if err != nil {
		return nil, err
	}

	plan, err := s.buildPlan(sourceDir, remote, opts.Force)
	if err != nil {
		return nil, err
	}

	result := &Result{DryRun: opts.DryRun, Plan: plan}
	for _, entry := range plan {
		switch entry.Action {
		case actionUpload:
			result.Uploaded++
			result.Bytes += entry.Size
		case actionSkip:
			result.Skipped++
		case actionDelete:
			result.Deleted++
		}
	}

	if opts.DryRun {
		result.Duration = s.now().Sub(started)
		s.logger.Info("deploy dry run",
			"bucket", s.cfg.Bucket,
			"uploads", result.Uploaded,
			"skips", result.Skipped,
			"deletes", result.Deleted,
		)
		return result, nil
	}

	if err := s.executePlan(ctx, store, plan); err != nil {
		return nil, err
	}

	result.Duration = s.now().Sub(started)
	s.logger.Info("deploy finished",
		"bucket", s.cfg.Bucket,
		"uploaded", result.Uploaded,
		"skipped", result.Skipped,
		"deleted", result.Deleted,
		"bytes", result.Bytes,
		"duration", result.Duration.String(),
	)
	return result, nil
}

func (s *Service) buildPlan(sourceDir string, remote map[string]remoteObject, force bool) ([]planEntry, error) {
	var plan []planEntry
	seen := map[string]struct{}{}

	root := os.DirFS(sourceDir)
	err := fs.WalkDir(root, ".", func(rel string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if excludeFromDeploy(rel) {
			return nil
		}
		data, err := fs.ReadFile(root, rel)
		if err != nil {
			return fmt.Errorf("deploy: read %s: %w", rel, err)
		}
		sum := md5.Sum(data)
		checksum := hex.EncodeToString(sum[:])
		key := s.objectKey(rel)
		seen[key] = struct{}{}

		entry := planEntry{
			Key:         key,
			Action:      actionUpload,
			Size:        int64(len(data)),
			ContentType: detectContentType(rel),
			checksum:    checksum,
			localPath:   filepath.Join(sourceDir, filepath.FromSlash(rel)),
		}
		if existing, ok := remote[key]; ok && !force && existing.ETag == checksum {
			entry.Action = actionSkip
		}
		plan = append(plan, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cfg.DeleteOrphaned {
		for key := range remote {
			if _, ok := seen[key]; ok {
				continue
			}
			plan = append(plan, planEntry{Key: key, Action: actionDelete})
		}
	}

	sort.Slice(plan, func(i, j int) bool { return plan[i].Key < plan[j].Key })
	return plan, nil
}

func (s *Service) executePlan(ctx context.Context, store objectStore, plan []planEntry) error {
	uploads := make(chan planEntry)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []error
	)

	workers := s.cfg.Concurrency
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range uploads {
				data, err := os.ReadFile(entry.localPath)
				if err == nil {
					err = store.Put(ctx, putRequest{
						Key:          entry.Key,
						Body:         data,
						ContentType:  entry.ContentType,
						CacheControl: s.cfg.CacheControl,
					})
				}
				if err != nil {
					mu.Lock()
					failed = append(failed, err)
					mu.Unlock()
					continue
				}
				s.logger.Debug("uploaded", "key", entry.Key, "size", entry.Size)
			}
		}()
	}

	var deletes []string
	for _, entry := range plan {
		switch entry.Action {
		case actionUpload:
			uploads <- entry
		case actionDelete:
			deletes = append(deletes, entry.Key)
		}
	}
	close(uploads)
	wg.Wait()

	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	if len(deletes) > 0 {
		if err := store.Delete(ctx, deletes); err != nil {
			return err
		}
		for _, key := range deletes {
			s.logger.Debug("deleted", "key", key)
		}
	}
	return nil
}

func (s *Service) objectKey(rel string) string {
	key := path.Clean(filepath.ToSlash(rel))
	if prefix := strings.Trim(s.cfg.Prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

// excludeFromDeploy filters build bookkeeping out of the upload set.
func excludeFromDeploy(rel string) bool {
	base := path.Base(rel)
	if strings.HasPrefix(base, ".") {
		return true
	}
	return false
}

func detectContentType(rel string) string {
	ext := strings.ToLower(path.Ext(rel))
	switch ext {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript"
	case ".json":
		return "application/json"
	case ".xml":
		return "application/xml"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
