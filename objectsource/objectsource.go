// Package objectsource implements a datasource.Source over S3-compatible
// object stores (MinIO, Cloudflare R2, GCS interop) using minio-go. It
// covers deployments where the AWS SDK is the wrong fit; plain Amazon S3 is
// served by the s3source package.
package objectsource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/plugkit/plugkit/datasource"
)

// Config holds the connection settings for an S3-compatible endpoint.
type Config struct {
	// Endpoint is the host[:port] of the object store, without scheme.
	Endpoint string

	AccessKey string
	SecretKey string

	// Bucket is the bucket to browse.
	Bucket string

	// Region defaults to us-east-1.
	Region string

	UseSSL bool
}

// Source browses and downloads objects in one bucket of an S3-compatible
// store. Entry IDs are object keys.
type Source struct {
	client *minio.Client
	bucket string
}

const defaultPageSize = 100

// New creates an object-store data source.
func New(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("objectsource: endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("objectsource: bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("objectsource: init client: %w", err)
	}
	return &Source{client: client, bucket: cfg.Bucket}, nil
}

func (s *Source) Name() string { return "object-store" }

// Browse lists objects under req.Path as a key prefix, one directory level
// at a time. The cursor is the last key of the previous page; listing
// resumes after it.
func (s *Source) Browse(ctx context.Context, req datasource.BrowseRequest) (*datasource.Page, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	// Cancel the listing once the page is full so the channel goroutine
	// does not keep fetching.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := minio.ListObjectsOptions{
		Prefix:     req.Path,
		StartAfter: req.Cursor,
	}

	page := &datasource.Page{}
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("objectsource: list %s: %w", req.Path, obj.Err)
		}
		if obj.Key == "" {
			continue
		}
		entry := datasource.Entry{
			ID:         obj.Key,
			Name:       baseName(obj.Key),
			IsDir:      strings.HasSuffix(obj.Key, "/"),
			Size:       obj.Size,
			MIMEType:   obj.ContentType,
			ModifiedAt: obj.LastModified,
		}
		page.Entries = append(page.Entries, entry)
		if len(page.Entries) == limit {
			page.NextCursor = obj.Key
			break
		}
	}
	return page, nil
}

// Open downloads the object with the given key. The object's headers are
// fetched up front so a missing key fails here rather than on first read.
func (s *Source) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("objectsource: open %s: %w", id, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("objectsource: open %s: %w", id, datasource.ErrNotFound)
		}
		return nil, fmt.Errorf("objectsource: open %s: %w", id, err)
	}
	return obj, nil
}

func baseName(key string) string {
	trimmed := strings.TrimSuffix(key, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

var _ datasource.Source = (*Source)(nil)
