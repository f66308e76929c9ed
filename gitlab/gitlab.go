// Package gitlab implements a datasource.Source over the GitLab REST API:
// repository tree browsing, raw file download, and commit history. It works
// against gitlab.com and self-hosted instances.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/plugkit/plugkit/datasource"
)

const defaultBaseURL = "https://gitlab.com"

// Source browses a single GitLab project's repository. Entry IDs are file
// paths within the repository at the configured ref.
type Source struct {
	baseURL    string
	token      string
	project    string
	ref        string
	httpClient *http.Client
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURL points the source at a self-hosted GitLab instance.
func WithBaseURL(u string) Option {
	return func(s *Source) { s.baseURL = u }
}

// WithToken sets the private token used for authentication.
func WithToken(token string) Option {
	return func(s *Source) { s.token = token }
}

// WithRef selects the branch, tag, or commit to browse. Defaults to the
// project's default branch.
func WithRef(ref string) Option {
	return func(s *Source) { s.ref = ref }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.httpClient = c }
}

// New creates a GitLab data source for the given project. The project is
// either a numeric ID or a URL-encoded "group/name" path. The token falls
// back to the GITLAB_TOKEN environment variable.
func New(project string, opts ...Option) (*Source, error) {
	if project == "" {
		return nil, fmt.Errorf("gitlab: project is required")
	}
	s := &Source{
		baseURL:    defaultBaseURL,
		token:      os.Getenv("GITLAB_TOKEN"),
		project:    project,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Source) Name() string { return "gitlab" }

type treeEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "tree" or "blob"
	Path string `json:"path"`
}

// Browse lists one directory level of the repository tree. The cursor is
// the page number reported by the x-next-page response header.
func (s *Source) Browse(ctx context.Context, req datasource.BrowseRequest) (*datasource.Page, error) {
	query := url.Values{}
	if req.Path != "" {
		query.Set("path", req.Path)
	}
	if req.Cursor != "" {
		query.Set("page", req.Cursor)
	}
	if req.Limit > 0 {
		query.Set("per_page", fmt.Sprint(req.Limit))
	}
	if s.ref != "" {
		query.Set("ref", s.ref)
	}

	resp, err := s.get(ctx, s.projectURL("repository/tree"), query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var entries []treeEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("gitlab: decode tree: %w", err)
	}

	page := &datasource.Page{
		NextCursor: resp.Header.Get("x-next-page"),
	}
	for _, e := range entries {
		page.Entries = append(page.Entries, datasource.Entry{
			ID:    e.Path,
			Name:  e.Name,
			IsDir: e.Type == "tree",
		})
	}
	return page, nil
}

// Open downloads the raw content of the file at the given repository path.
func (s *Source) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	query := url.Values{}
	if s.ref != "" {
		query.Set("ref", s.ref)
	}
	endpoint := s.projectURL("repository/files/" + url.PathEscape(id) + "/raw")

	resp, err := s.get(ctx, endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("gitlab: open %s: %w", id, err)
	}
	return resp.Body, nil
}

// Commit is one entry of a project's commit history.
type Commit struct {
	ID         string    `json:"id"`
	ShortID    string    `json:"short_id"`
	Title      string    `json:"title"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Commits lists the commit history, most recent first. A non-empty path
// restricts history to commits touching that file or directory.
func (s *Source) Commits(ctx context.Context, path string, limit int) ([]Commit, error) {
	query := url.Values{}
	if path != "" {
		query.Set("path", path)
	}
	if limit > 0 {
		query.Set("per_page", fmt.Sprint(limit))
	}
	if s.ref != "" {
		query.Set("ref_name", s.ref)
	}

	resp, err := s.get(ctx, s.projectURL("repository/commits"), query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var commits []Commit
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return nil, fmt.Errorf("gitlab: decode commits: %w", err)
	}
	return commits, nil
}

func (s *Source) projectURL(suffix string) string {
	return fmt.Sprintf("%s/api/v4/projects/%s/%s", s.baseURL, url.PathEscape(s.project), suffix)
}

func (s *Source) get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("PRIVATE-TOKEN", s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, datasource.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("gitlab: unexpected status %d: %s", resp.StatusCode, body)
	}
	return resp, nil
}

var _ datasource.Source = (*Source)(nil)
