package plugin

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParsePrompt parses a markdown prompt file with optional YAML frontmatter.
func ParsePrompt(path string) (*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt file: %w", err)
	}

	fm, content, err := parseFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt file %s: %w", path, err)
	}

	prompt := &Prompt{
		Name:     strings.TrimSuffix(filepath.Base(path), ".md"),
		Content:  content,
		FilePath: path,
	}

	if len(fm) > 0 {
		var meta promptFrontmatter
		if err := yaml.Unmarshal(fm, &meta); err != nil {
			return nil, fmt.Errorf("parsing prompt frontmatter: %w", err)
		}
		prompt.Description = meta.Description
	}

	return prompt, nil
}

// parseFrontmatter extracts YAML frontmatter from markdown content.
// Frontmatter is delimited by "---" lines at the start; missing or unclosed
// frontmatter yields the whole input as content.
func parseFrontmatter(data []byte) (frontmatter []byte, content string, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	if !scanner.Scan() {
		return nil, string(data), nil
	}
	if strings.TrimSpace(scanner.Text()) != "---" {
		return nil, string(data), nil
	}

	var fmLines []string
	foundClosing := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			foundClosing = true
			break
		}
		fmLines = append(fmLines, line)
	}
	if !foundClosing {
		return nil, string(data), nil
	}

	var contentLines []string
	for scanner.Scan() {
		contentLines = append(contentLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("scanning file: %w", err)
	}

	frontmatter = []byte(strings.Join(fmLines, "\n"))
	content = strings.TrimSpace(strings.Join(contentLines, "\n"))
	return frontmatter, content, nil
}
