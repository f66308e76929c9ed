package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file that marks a plugin directory.
const ManifestName = "plugin.yaml"

var validKinds = map[Kind]bool{
	KindProvider:   true,
	KindTool:       true,
	KindDataSource: true,
	KindEndpoint:   true,
	KindTrigger:    true,
}

// Load loads a plugin from a directory containing plugin.yaml.
func Load(path string) (*Plugin, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("accessing plugin path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("plugin path must be a directory: %s", absPath)
	}

	m, err := loadManifest(filepath.Join(absPath, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}

	p := &Plugin{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		Kind:        m.Kind,
		Settings:    m.Settings,
		RootPath:    absPath,
	}
	if m.Author != nil {
		p.Author = *m.Author
	}

	promptsDir := filepath.Join(absPath, "prompts")
	if m.Prompts != "" {
		promptsDir = filepath.Join(absPath, m.Prompts)
	}
	if prompts, err := loadPrompts(promptsDir); err == nil {
		p.Prompts = prompts
	}

	return p, nil
}

// Discover walks root for plugin.yaml manifests and loads each plugin found.
// Plugins that fail to load are skipped; the returned slice is sorted by name.
func Discover(root string) ([]*Plugin, error) {
	matches, err := doublestar.Glob(os.DirFS(root), "**/"+ManifestName)
	if err != nil {
		return nil, fmt.Errorf("scanning for manifests: %w", err)
	}

	plugins := make([]*Plugin, 0, len(matches))
	for _, match := range matches {
		p, err := Load(filepath.Join(root, filepath.Dir(match)))
		if err != nil {
			continue
		}
		plugins = append(plugins, p)
	}

	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
	return plugins, nil
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	if m.Name == "" {
		return nil, fmt.Errorf("plugin name is required in manifest")
	}
	if !validKinds[m.Kind] {
		return nil, fmt.Errorf("invalid plugin kind %q", m.Kind)
	}

	return &m, nil
}

// loadPrompts loads all prompt files from a directory.
func loadPrompts(dir string) ([]Prompt, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	prompts := make([]Prompt, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		prompt, err := ParsePrompt(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		prompts = append(prompts, *prompt)
	}

	return prompts, nil
}

// GetPrompt returns a prompt by name, or nil if not found.
func (p *Plugin) GetPrompt(name string) *Prompt {
	for i := range p.Prompts {
		if p.Prompts[i].Name == name {
			return &p.Prompts[i]
		}
	}
	return nil
}

// RequiredSettings returns the settings marked required.
func (p *Plugin) RequiredSettings() []Setting {
	var required []Setting
	for _, s := range p.Settings {
		if s.Required {
			required = append(required, s)
		}
	}
	return required
}
