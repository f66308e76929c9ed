// Package datasource defines the contract between the host and data-source
// connectors: remote document stores the host can browse and download
// content from. Connector packages (s3source, objectsource, gitlab,
// confluence) implement Source and register themselves by name.
package datasource

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Open when the requested entry does not exist.
var ErrNotFound = errors.New("datasource: not found")

// Entry describes one item in a data source listing.
type Entry struct {
	// ID identifies the entry within its source and is the handle passed
	// to Open. Its shape is source-specific (object key, file path, page ID).
	ID string

	// Name is the display name of the entry.
	Name string

	// IsDir reports whether the entry is a container (folder, space,
	// directory) rather than downloadable content.
	IsDir bool

	// Size is the content size in bytes, when the source reports one.
	Size int64

	// MIMEType is the content type, when the source reports one.
	MIMEType string

	// ModifiedAt is the last modification time, when the source reports one.
	ModifiedAt time.Time
}

// Page is one page of a Browse listing.
type Page struct {
	Entries []Entry

	// NextCursor resumes the listing when passed to the next Browse call.
	// Empty means the listing is complete.
	NextCursor string
}

// BrowseRequest selects what to list and where to resume.
type BrowseRequest struct {
	// Path scopes the listing: an object key prefix, directory path, or
	// space key, depending on the source. Empty lists the root.
	Path string

	// Cursor resumes a listing from a previous Page.NextCursor.
	Cursor string

	// Limit caps the number of entries per page. Zero lets the source
	// pick its default.
	Limit int
}

// Source is a browsable remote document store.
type Source interface {
	// Name returns the connector name, e.g. "s3" or "gitlab".
	Name() string

	// Browse lists entries under req.Path, resuming from req.Cursor.
	Browse(ctx context.Context, req BrowseRequest) (*Page, error)

	// Open downloads the content of the entry with the given ID.
	// Returns ErrNotFound if the entry does not exist. The caller must
	// close the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}
