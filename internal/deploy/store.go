package deploy

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// remoteObject describes an object already present in the bucket.
type remoteObject struct {
	Key  string
	ETag string
	Size int64
}

// putRequest carries one upload.
type putRequest struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
}

// objectStore abstracts the bucket so the sync planner can be tested against
// an in-memory implementation.
type objectStore interface {
	List(ctx context.Context, prefix string) (map[string]remoteObject, error)
	Put(ctx context.Context, req putRequest) error
	Delete(ctx context.Context, keys []string) error
}

type s3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// newS3Store builds an object store against the configured bucket. Credentials
// come from the SDK default chain, so CI only needs the standard AWS env vars.
func newS3Store(ctx context.Context, cfg Config) (objectStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("deploy: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
	}, nil
}

func (s *s3Store) List(ctx context.Context, prefix string) (map[string]remoteObject, error) {
	objects := map[string]remoteObject{}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("deploy: list bucket %s: %w", s.bucket, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			objects[key] = remoteObject{
				Key:  key,
				ETag: strings.Trim(aws.ToString(obj.ETag), `"`),
				Size: aws.ToInt64(obj.Size),
			}
		}
	}
	return objects, nil
}

func (s *s3Store) Put(ctx context.Context, req putRequest) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(req.Key),
		Body:   bytes.NewReader(req.Body),
	}
	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}
	if req.CacheControl != "" {
		input.CacheControl = aws.String(req.CacheControl)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("deploy: upload %s: %w", req.Key, err)
	}
	return nil
}

func (s *s3Store) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	// DeleteObjects accepts at most 1000 keys per call.
	for start := 0; start < len(keys); start += 1000 {
		end := start + 1000
		if end > len(keys) {
			end = len(keys)
		}
		identifiers := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			identifiers = append(identifiers, s3types.ObjectIdentifier{Key: aws.String(key)})
		}
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{Objects: identifiers, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("deploy: delete objects: %w", err)
		}
	}
	return nil
}
