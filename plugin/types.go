// Package plugin loads integration-plugin manifests. A plugin is a directory
// with a plugin.yaml describing what it contributes (a provider, tool,
// data source, endpoint, or trigger) plus optional markdown prompt files.
package plugin

// Kind classifies what a plugin contributes to the host.
type Kind string

const (
	KindProvider   Kind = "provider"
	KindTool       Kind = "tool"
	KindDataSource Kind = "datasource"
	KindEndpoint   Kind = "endpoint"
	KindTrigger    Kind = "trigger"
)

// Plugin is a loaded plugin manifest plus its prompt files.
type Plugin struct {
	Name        string
	Version     string
	Description string
	Author      Author
	Kind        Kind

	// Settings the host must collect before the plugin can run.
	Settings []Setting

	// Prompt templates shipped with the plugin.
	Prompts []Prompt

	// RootPath is the directory containing plugin.yaml.
	RootPath string
}

// Author identifies who maintains a plugin.
type Author struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email,omitempty"`
	URL   string `yaml:"url,omitempty"`
}

// Setting describes one configuration value a plugin needs.
type Setting struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"` // string, number, boolean
	Description string `yaml:"description,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	Secret      bool   `yaml:"secret,omitempty"`
	Default     any    `yaml:"default,omitempty"`
}

// Prompt is a markdown prompt template with frontmatter metadata.
type Prompt struct {
	Name        string // derived from filename
	Description string // from frontmatter
	Content     string // markdown body
	FilePath    string
}

// manifest is the raw plugin.yaml structure.
type manifest struct {
	Name        string    `yaml:"name"`
	Version     string    `yaml:"version,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Author      *Author   `yaml:"author,omitempty"`
	Kind        Kind      `yaml:"kind"`
	Settings    []Setting `yaml:"settings,omitempty"`

	// Prompts overrides the default prompts/ directory.
	Prompts string `yaml:"prompts,omitempty"`
}

// promptFrontmatter is the YAML frontmatter in prompt files.
type promptFrontmatter struct {
	Description string `yaml:"description"`
}
