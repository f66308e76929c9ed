package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantFM      string
		wantContent string
	}{
		{
			name:        "frontmatter and body",
			input:       "---\ndescription: hi\n---\nBody text",
			wantFM:      "description: hi",
			wantContent: "Body text",
		},
		{
			name:        "no frontmatter",
			input:       "Just content",
			wantFM:      "",
			wantContent: "Just content",
		},
		{
			name:        "unclosed frontmatter treated as content",
			input:       "---\ndescription: hi\nBody text",
			wantFM:      "",
			wantContent: "---\ndescription: hi\nBody text",
		},
		{
			name:        "empty input",
			input:       "",
			wantFM:      "",
			wantContent: "",
		},
		{
			name:        "body trimmed",
			input:       "---\na: 1\n---\n\n\nBody\n\n",
			wantFM:      "a: 1",
			wantContent: "Body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, content, err := parseFrontmatter([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFM, string(fm))
			assert.Equal(t, tt.wantContent, content)
		})
	}
}
