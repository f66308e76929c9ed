package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebFetchExtractsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Test Page</title><style>body{}</style></head>`+
			`<body><script>alert(1)</script><h1>Heading</h1><p>Hello &amp; goodbye</p></body></html>`)
	}))
	t.Cleanup(srv.Close)

	out, err := fetchURL(context.Background(), WebFetchInput{URL: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, out.StatusCode)
	assert.Equal(t, "Test Page", out.Title)
	assert.Contains(t, out.Content, "Heading")
	assert.Contains(t, out.Content, "Hello & goodbye")
	assert.NotContains(t, out.Content, "alert")
	assert.NotContains(t, out.Content, "<p>")
}

func TestWebFetchMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<h2>Title</h2><p>See <a href="https://example.com">the docs</a> and <strong>read</strong> them.</p>`)
	}))
	t.Cleanup(srv.Close)

	out, err := fetchURL(context.Background(), WebFetchInput{URL: srv.URL, Extract: "markdown"})
	require.NoError(t, err)

	assert.Contains(t, out.Content, "## Title")
	assert.Contains(t, out.Content, "[the docs](https://example.com)")
	assert.Contains(t, out.Content, "**read**")
}

func TestJQTool(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		doc        string
		want       []any
		wantErr    bool
	}{
		{
			name:       "field access",
			expression: ".name",
			doc:        `{"name": "plugkit"}`,
			want:       []any{"plugkit"},
		},
		{
			name:       "array iteration",
			expression: ".items[].id",
			doc:        `{"items": [{"id": 1}, {"id": 2}]}`,
			want:       []any{1, 2},
		},
		{
			name:       "select filter",
			expression: `.[] | select(.ok)`,
			doc:        `[{"ok": true, "n": 1}, {"ok": false, "n": 2}]`,
			want:       []any{map[string]any{"ok": true, "n": 1}},
		},
		{
			name:       "bad expression",
			expression: ".[",
			doc:        `{}`,
			wantErr:    true,
		},
		{
			name:       "bad document",
			expression: ".",
			doc:        `not json`,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runJQ(context.Background(), JQInput{Expression: tt.expression, JSON: tt.doc})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			// normalize through JSON so numeric types compare cleanly
			gotJSON, _ := json.Marshal(out.Results)
			wantJSON, _ := json.Marshal(tt.want)
			assert.JSONEq(t, string(wantJSON), string(gotJSON))
		})
	}
}

func TestSQLiteQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE books (id INTEGER PRIMARY KEY, title TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO books (title) VALUES ('Dune'), ('Hyperion'), ('Foundation')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	t.Run("select returns rows", func(t *testing.T) {
		out, err := querySQLite(context.Background(), SQLiteQueryInput{
			Path:  path,
			Query: "SELECT id, title FROM books ORDER BY id",
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"id", "title"}, out.Columns)
		require.Equal(t, 3, out.Count)
		assert.Equal(t, "Dune", out.Rows[0]["title"])
	})

	t.Run("limit caps rows", func(t *testing.T) {
		out, err := querySQLite(context.Background(), SQLiteQueryInput{
			Path:  path,
			Query: "SELECT title FROM books",
			Limit: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Count)
	})

	t.Run("write statements rejected", func(t *testing.T) {
		_, err := querySQLite(context.Background(), SQLiteQueryInput{
			Path:  path,
			Query: "DELETE FROM books",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SELECT")
	})
}

func TestGitHubTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/widgets":
			_ = json.NewEncoder(w).Encode(GitHubRepo{
				FullName: "acme/widgets", Stars: 42, Language: "Go", DefaultRef: "main",
			})
		case "/repos/acme/widgets/issues":
			assert.Equal(t, "open", r.URL.Query().Get("state"))
			_ = json.NewEncoder(w).Encode([]GitHubIssue{
				{Number: 7, Title: "Fix the flux", State: "open"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		}
	}))
	t.Cleanup(srv.Close)

	orig := githubBaseURL
	githubBaseURL = srv.URL
	t.Cleanup(func() { githubBaseURL = orig })

	t.Run("repo summary", func(t *testing.T) {
		out, err := queryGitHub(context.Background(), GitHubInput{Action: "repo", Owner: "acme", Repo: "widgets"})
		require.NoError(t, err)
		require.NotNil(t, out.Repo)
		assert.Equal(t, "acme/widgets", out.Repo.FullName)
		assert.Equal(t, 42, out.Repo.Stars)
	})

	t.Run("open issues", func(t *testing.T) {
		out, err := queryGitHub(context.Background(), GitHubInput{Action: "issues", Owner: "acme", Repo: "widgets"})
		require.NoError(t, err)
		require.Len(t, out.Issues, 1)
		assert.Equal(t, 7, out.Issues[0].Number)
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := queryGitHub(context.Background(), GitHubInput{Action: "stars", Owner: "acme", Repo: "widgets"})
		assert.Error(t, err)
	})

	t.Run("API error surfaces status", func(t *testing.T) {
		_, err := queryGitHub(context.Background(), GitHubInput{Action: "repo", Owner: "acme", Repo: "missing"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

func TestSendEmailValidation(t *testing.T) {
	_, err := sendEmail(SMTPConfig{}, SendEmailInput{To: []string{"a@example.com"}})
	assert.ErrorContains(t, err, "SMTP not configured")

	_, err = sendEmail(SMTPConfig{Addr: "mail:25", From: "bot@example.com"}, SendEmailInput{})
	assert.ErrorContains(t, err, "recipient")
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("bot@example.com", SendEmailInput{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Status",
		Body:    "All green.",
	}))

	assert.Contains(t, msg, "From: bot@example.com\r\n")
	assert.Contains(t, msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, msg, "Subject: Status\r\n")
	assert.Contains(t, msg, "\r\n\r\nAll green.")
}

func TestToolGroups(t *testing.T) {
	names := func(group []string) map[string]bool {
		m := make(map[string]bool, len(group))
		for _, n := range group {
			m[n] = true
		}
		return m
	}

	var webNames []string
	for _, tool := range WebTools() {
		webNames = append(webNames, tool.Name())
	}
	assert.True(t, names(webNames)["web_fetch"])
	assert.True(t, names(webNames)["github"])

	var dataNames []string
	for _, tool := range DataTools() {
		dataNames = append(dataNames, tool.Name())
	}
	assert.True(t, names(dataNames)["sqlite_query"])
	assert.True(t, names(dataNames)["jq"])

	assert.Len(t, AllTools(), 5)
}
