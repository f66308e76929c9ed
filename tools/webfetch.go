// Package tools provides built-in tool wrappers that models can invoke.
package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/plugkit/plugkit/llm"
)

const maxFetchBytes = 1024 * 1024

// WebFetchInput defines the input for the web_fetch tool.
type WebFetchInput struct {
	URL     string `json:"url" jsonschema:"required,description=URL to fetch"`
	Extract string `json:"extract,omitempty" jsonschema:"description=Extract mode: html (raw), text (stripped), or markdown (default: text)"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds (default: 30)"`
}

// WebFetchOutput defines the output of the web_fetch tool.
type WebFetchOutput struct {
	Content    string `json:"content"`
	StatusCode int    `json:"status_code"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url"`
}

// WebFetchTool returns the web_fetch tool.
func WebFetchTool() (llm.Tool, error) {
	return llm.NewTool(
		"web_fetch",
		"Fetch content from a URL. Returns the page content with optional extraction mode.",
		fetchURL,
	)
}

// MustWebFetch returns the web_fetch tool, panicking on error.
func MustWebFetch() llm.Tool {
	tool, err := WebFetchTool()
	if err != nil {
		panic(err)
	}
	return tool
}

func fetchURL(ctx context.Context, input WebFetchInput) (WebFetchOutput, error) {
	timeout := input.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	client := &http.Client{Timeout: time.Duration(timeout) * time.Second}

	req, err := http.NewRequestWithContext(ctx, "GET", input.URL, http.NoBody)
	if err != nil {
		return WebFetchOutput{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; PlugKit/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return WebFetchOutput{}, fmt.Errorf("fetching URL: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return WebFetchOutput{}, fmt.Errorf("reading response: %w", err)
	}

	content := string(body)
	title := extractTitle(content)

	switch input.Extract {
	case "html":
		// raw
	case "markdown":
		content = htmlToMarkdown(content)
	default:
		content = htmlToText(content)
	}

	return WebFetchOutput{
		Content:    content,
		StatusCode: resp.StatusCode,
		Title:      title,
		URL:        resp.Request.URL.String(),
	}, nil
}

var (
	titleRe   = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	scriptRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	commentRe = regexp.MustCompile(`<!--.*?-->`)
	blockRe   = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|br)[^>]*>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
	linkRe    = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	strongRe  = regexp.MustCompile(`(?is)<(?:strong|b)[^>]*>(.*?)</(?:strong|b)>`)
	emRe      = regexp.MustCompile(`(?is)<(?:em|i)[^>]*>(.*?)</(?:em|i)>`)
	codeRe    = regexp.MustCompile(`(?is)<code[^>]*>(.*?)</code>`)
	liRe      = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	pRe       = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	brRe      = regexp.MustCompile(`(?i)<br[^>]*>`)
)

func extractTitle(html string) string {
	matches := titleRe.FindStringSubmatch(html)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

func decodeEntities(s string) string {
	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
	)
	return replacer.Replace(s)
}

func normalizeWhitespace(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = newlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func htmlToText(html string) string {
	html = scriptRe.ReplaceAllString(html, "")
	html = styleRe.ReplaceAllString(html, "")
	html = commentRe.ReplaceAllString(html, "")
	html = blockRe.ReplaceAllString(html, "\n")
	text := tagRe.ReplaceAllString(html, "")
	return normalizeWhitespace(decodeEntities(text))
}

func htmlToMarkdown(html string) string {
	result := scriptRe.ReplaceAllString(html, "")
	result = styleRe.ReplaceAllString(result, "")

	for i := 1; i <= 6; i++ {
		headerRe := regexp.MustCompile(fmt.Sprintf(`(?is)<h%d[^>]*>(.*?)</h%d>`, i, i))
		result = headerRe.ReplaceAllString(result, strings.Repeat("#", i)+" $1\n\n")
	}

	result = linkRe.ReplaceAllString(result, "[$2]($1)")
	result = strongRe.ReplaceAllString(result, "**$1**")
	result = emRe.ReplaceAllString(result, "*$1*")
	result = codeRe.ReplaceAllString(result, "`$1`")
	result = liRe.ReplaceAllString(result, "- $1\n")
	result = pRe.ReplaceAllString(result, "$1\n\n")
	result = brRe.ReplaceAllString(result, "\n")
	result = tagRe.ReplaceAllString(result, "")

	return normalizeWhitespace(decodeEntities(result))
}
