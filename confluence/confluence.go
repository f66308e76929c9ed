// Package confluence implements a datasource.Source over the Confluence
// Cloud REST API (v2). Browsing the root lists spaces; browsing a space
// lists its pages; Open fetches a page body in storage format.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/plugkit/plugkit/datasource"
)

// Source browses one Confluence Cloud site. Entry IDs are numeric space
// IDs (directories) and page IDs (documents).
type Source struct {
	baseURL    string
	email      string
	token      string
	httpClient *http.Client
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.httpClient = c }
}

// New creates a Confluence data source. baseURL is the site root, e.g.
// "https://example.atlassian.net"; email and token authenticate via basic
// auth with an Atlassian API token.
func New(baseURL, email, token string, opts ...Option) (*Source, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("confluence: base URL is required")
	}
	s := &Source{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		email:      email,
		token:      token,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Source) Name() string { return "confluence" }

type listResponse struct {
	Results []json.RawMessage `json:"results"`
	Links   struct {
		Next string `json:"next"`
	} `json:"_links"`
}

type space struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type pageSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Browse lists spaces when req.Path is empty, or the pages of the space
// whose ID is req.Path. The cursor comes from the API's _links.next URL.
func (s *Source) Browse(ctx context.Context, req datasource.BrowseRequest) (*datasource.Page, error) {
	query := url.Values{}
	if req.Cursor != "" {
		query.Set("cursor", req.Cursor)
	}
	if req.Limit > 0 {
		query.Set("limit", fmt.Sprint(req.Limit))
	}

	endpoint := "/wiki/api/v2/spaces"
	if req.Path != "" {
		endpoint = "/wiki/api/v2/spaces/" + url.PathEscape(req.Path) + "/pages"
	}

	var list listResponse
	if err := s.getJSON(ctx, endpoint, query, &list); err != nil {
		return nil, err
	}

	page := &datasource.Page{
		NextCursor: nextCursor(list.Links.Next),
	}
	for _, raw := range list.Results {
		if req.Path == "" {
			var sp space
			if err := json.Unmarshal(raw, &sp); err != nil {
				return nil, fmt.Errorf("confluence: decode space: %w", err)
			}
			page.Entries = append(page.Entries, datasource.Entry{
				ID:    sp.ID,
				Name:  sp.Name,
				IsDir: true,
			})
			continue
		}
		var pg pageSummary
		if err := json.Unmarshal(raw, &pg); err != nil {
			return nil, fmt.Errorf("confluence: decode page: %w", err)
		}
		page.Entries = append(page.Entries, datasource.Entry{
			ID:       pg.ID,
			Name:     pg.Title,
			MIMEType: "text/html",
		})
	}
	return page, nil
}

type pageBody struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

// Open fetches the body of the page with the given ID in storage format
// (Confluence's XHTML representation).
func (s *Source) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	query := url.Values{"body-format": {"storage"}}

	var page pageBody
	if err := s.getJSON(ctx, "/wiki/api/v2/pages/"+url.PathEscape(id), query, &page); err != nil {
		return nil, fmt.Errorf("confluence: open %s: %w", id, err)
	}
	return io.NopCloser(strings.NewReader(page.Body.Storage.Value)), nil
}

func (s *Source) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	u := s.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if s.email != "" || s.token != "" {
		req.SetBasicAuth(s.email, s.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return datasource.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("confluence: unexpected status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// nextCursor extracts the cursor parameter from the API's next-page link.
func nextCursor(next string) string {
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}

var _ datasource.Source = (*Source)(nil)
