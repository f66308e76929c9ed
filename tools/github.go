package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/plugkit/plugkit/llm"
)

const githubAPIBase = "https://api.github.com"

// GitHubInput defines the input for the github tool.
type GitHubInput struct {
	Action string `json:"action" jsonschema:"required,description=One of: repo, issues, commits"`
	Owner  string `json:"owner" jsonschema:"required,description=Repository owner"`
	Repo   string `json:"repo" jsonschema:"required,description=Repository name"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum items to return (default: 10)"`
}

// GitHubOutput defines the output of the github tool.
type GitHubOutput struct {
	Repo    *GitHubRepo    `json:"repo,omitempty"`
	Issues  []GitHubIssue  `json:"issues,omitempty"`
	Commits []GitHubCommit `json:"commits,omitempty"`
}

// GitHubRepo is a repository summary.
type GitHubRepo struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Stars       int    `json:"stargazers_count"`
	Forks       int    `json:"forks_count"`
	OpenIssues  int    `json:"open_issues_count"`
	Language    string `json:"language"`
	DefaultRef  string `json:"default_branch"`
}

// GitHubIssue is an issue summary.
type GitHubIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	URL    string `json:"html_url"`
}

// GitHubCommit is a commit summary.
type GitHubCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string `json:"name"`
			Date string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// githubBaseURL is swapped in tests.
var githubBaseURL = githubAPIBase

// GitHubTool returns the github tool. An optional GITHUB_TOKEN environment
// variable raises the unauthenticated rate limit.
func GitHubTool() (llm.Tool, error) {
	return llm.NewTool(
		"github",
		"Look up a GitHub repository: summary, open issues, or recent commits.",
		queryGitHub,
	)
}

// MustGitHub returns the github tool, panicking on error.
func MustGitHub() llm.Tool {
	tool, err := GitHubTool()
	if err != nil {
		panic(err)
	}
	return tool
}

func queryGitHub(ctx context.Context, input GitHubInput) (GitHubOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	repoPath := fmt.Sprintf("/repos/%s/%s", input.Owner, input.Repo)

	switch input.Action {
	case "repo":
		var repo GitHubRepo
		if err := githubGet(ctx, repoPath, &repo); err != nil {
			return GitHubOutput{}, err
		}
		return GitHubOutput{Repo: &repo}, nil

	case "issues":
		var issues []GitHubIssue
		path := fmt.Sprintf("%s/issues?state=open&per_page=%d", repoPath, limit)
		if err := githubGet(ctx, path, &issues); err != nil {
			return GitHubOutput{}, err
		}
		return GitHubOutput{Issues: issues}, nil

	case "commits":
		var commits []GitHubCommit
		path := fmt.Sprintf("%s/commits?per_page=%d", repoPath, limit)
		if err := githubGet(ctx, path, &commits); err != nil {
			return GitHubOutput{}, err
		}
		return GitHubOutput{Commits: commits}, nil

	default:
		return GitHubOutput{}, fmt.Errorf("unknown action %q: want repo, issues, or commits", input.Action)
	}
}

func githubGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", githubBaseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
