package objectsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugkit/plugkit/datasource"
)

const listResponse = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>bucket</Name>
  <Prefix>docs/</Prefix>
  <KeyCount>3</KeyCount>
  <IsTruncated>false</IsTruncated>
  <Contents>
    <Key>docs/a.md</Key>
    <Size>10</Size>
    <LastModified>2025-03-01T12:00:00.000Z</LastModified>
    <ETag>&quot;etag-a&quot;</ETag>
  </Contents>
  <Contents>
    <Key>docs/b.md</Key>
    <Size>20</Size>
    <LastModified>2025-03-02T12:00:00.000Z</LastModified>
    <ETag>&quot;etag-b&quot;</ETag>
  </Contents>
  <Contents>
    <Key>docs/c.md</Key>
    <Size>30</Size>
    <LastModified>2025-03-03T12:00:00.000Z</LastModified>
    <ETag>&quot;etag-c&quot;</ETag>
  </Contents>
</ListBucketResult>`

const notFoundResponse = `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>NoSuchKey</Code>
  <Message>The specified key does not exist.</Message>
  <Key>docs/gone.md</Key>
  <BucketName>bucket</BucketName>
</Error>`

// fakeStore speaks just enough of the S3 wire protocol for minio-go.
func fakeStore(t *testing.T) *Source {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("list-type") == "2":
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, listResponse)
		case r.URL.Path == "/bucket/docs/a.md":
			w.Header().Set("Content-Type", "text/markdown")
			w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
			fmt.Fprint(w, "hello from a")
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, notFoundResponse)
		}
	}))
	t.Cleanup(server.Close)

	src, err := New(Config{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "bucket",
	})
	require.NoError(t, err)
	return src
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Bucket: "b"})
	assert.ErrorContains(t, err, "endpoint")

	_, err = New(Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "bucket")
}

func TestBrowseListsObjects(t *testing.T) {
	src := fakeStore(t)

	page, err := src.Browse(context.Background(), datasource.BrowseRequest{Path: "docs/"})
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, "docs/a.md", page.Entries[0].ID)
	assert.Equal(t, "a.md", page.Entries[0].Name)
	assert.Equal(t, int64(10), page.Entries[0].Size)
	assert.False(t, page.Entries[0].IsDir)
	assert.Empty(t, page.NextCursor)
}

func TestBrowseLimitSetsCursor(t *testing.T) {
	src := fakeStore(t)

	page, err := src.Browse(context.Background(), datasource.BrowseRequest{Path: "docs/", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "docs/b.md", page.NextCursor)
}

func TestOpenDownloadsObject(t *testing.T) {
	src := fakeStore(t)

	body, err := src.Open(context.Background(), "docs/a.md")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello from a", string(data))
}

func TestOpenMissingKey(t *testing.T) {
	src := fakeStore(t)

	_, err := src.Open(context.Background(), "docs/gone.md")
	assert.ErrorIs(t, err, datasource.ErrNotFound)
}
