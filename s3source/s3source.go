// Package s3source implements a datasource.Source over Amazon S3 using
// aws-sdk-go-v2. The listing walks objects under a key prefix with
// ListObjectsV2; continuation tokens carry the browse cursor.
package s3source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/plugkit/plugkit/datasource"
)

// Client abstracts the S3 API operations used by Source.
// The s3.Client type satisfies this interface.
type Client interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source browses and downloads objects in a single S3 bucket.
//
// The caller is responsible for configuring the s3.Client with credentials,
// region, and endpoint. Entry IDs are object keys.
type Source struct {
	client Client
	bucket string
}

// New creates an S3-backed data source. The client should be
// pre-configured; any type satisfying Client is accepted.
func New(client Client, bucket string) *Source {
	return &Source{client: client, bucket: bucket}
}

func (s *Source) Name() string { return "s3" }

// Browse lists objects under req.Path as a key prefix. The "/" delimiter
// turns common prefixes into directory entries.
func (s *Source) Browse(ctx context.Context, req datasource.BrowseRequest) (*datasource.Page, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Delimiter: aws.String("/"),
	}
	if req.Path != "" {
		input.Prefix = aws.String(req.Path)
	}
	if req.Cursor != "" {
		input.ContinuationToken = aws.String(req.Cursor)
	}
	if req.Limit > 0 {
		input.MaxKeys = aws.Int32(int32(req.Limit))
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("s3source: list %s: %w", req.Path, err)
	}

	page := &datasource.Page{}
	for _, prefix := range out.CommonPrefixes {
		key := aws.ToString(prefix.Prefix)
		page.Entries = append(page.Entries, datasource.Entry{
			ID:    key,
			Name:  baseName(key),
			IsDir: true,
		})
	}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		entry := datasource.Entry{
			ID:   key,
			Name: baseName(key),
			Size: aws.ToInt64(obj.Size),
		}
		if obj.LastModified != nil {
			entry.ModifiedAt = *obj.LastModified
		}
		page.Entries = append(page.Entries, entry)
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextCursor = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

// Open downloads the object with the given key via GetObject.
func (s *Source) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3source: open %s: %w", id, datasource.ErrNotFound)
		}
		return nil, err
	}
	return out.Body, nil
}

// baseName strips the parent prefix and any trailing slash from a key.
func baseName(key string) string {
	trimmed := key
	if n := len(trimmed); n > 0 && trimmed[n-1] == '/' {
		trimmed = trimmed[:n-1]
	}
	for i := len(trimmed) - 1; i >= 0; i-- {
		if trimmed[i] == '/' {
			return trimmed[i+1:]
		}
	}
	return trimmed
}

// isNotFound reports whether err indicates the S3 object does not exist.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

var _ datasource.Source = (*Source)(nil)
