package converter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewMarkdownConverter tests converter construction
func TestNewMarkdownConverter(t *testing.T) {
	converter := NewMarkdownConverter()
	assert.NotNil(t, converter)
}

// TestMarkdownConverter_Convert tests conversion of common HTML shapes
func TestMarkdownConverter_Convert(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains string
		wantErr  bool
	}{
		{
			name:     "simple paragraph",
			html:     "<p>Hello, world!</p>",
			contains: "Hello, world!",
			wantErr:  false,
		},
		{
			name:     "heading",
			html:     "<h1>Title</h1>",
			contains: "# Title",
			wantErr:  false,
		},
		{
			name:     "link",
			html:     `<a href="https://example.com">Link</a>`,
			contains: "[Link](https://example.com)",
			wantErr:  false,
		},
		{
			name:     "code block",
			html:     "<pre><code>const x = 1;</code></pre>",
			contains: "const x = 1;",
			wantErr:  false,
		},
		{
			name:    "empty HTML",
			html:    "",
			wantErr: false,
		},
		{
			name:     "nested elements",
			html:     "<div><p>Text</p></div>",
			contains: "Text",
			wantErr:  false,
		},
		{
			name:     "bold and italic",
			html:     "<p><b>bold</b> and <i>italic</i></p>",
			contains: "**bold**",
			wantErr:  false,
		},
	}

	converter := NewMarkdownConverter()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := converter.Convert(tt.html)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			if tt.contains != "" {
				assert.Contains(t, result, tt.contains)
			}
		})
	}
}

// TestCleanMarkdown tests blank-line collapsing and trimming
func TestCleanMarkdown(t *testing.T) {
	converter := NewMarkdownConverter()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "runs of blank lines collapse",
			input:    "First\n\n\n\n\nSecond",
			expected: "First\n\n\nSecond",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "   \n  Body  ",
			expected: "Body",
		},
		{
			name:     "no cleanup needed",
			input:    "First\n\nSecond",
			expected: "First\n\nSecond",
		},
		{
			name:     "only whitespace",
			input:    "   \n   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := converter.cleanMarkdown(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestGenerateFrontmatter tests the YAML header fields
func TestGenerateFrontmatter(t *testing.T) {
	fm := &Frontmatter{
		Title:     "Quarterly Report",
		Source:    "https://docs.google.com/document/d/abc123/mobilebasic",
		FetchedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	frontmatter, err := GenerateFrontmatter(fm)
	require.NoError(t, err)

	assert.True(t, len(frontmatter) > 0)
	assert.Contains(t, frontmatter, "---")
	assert.Contains(t, frontmatter, "title: Quarterly Report")
	assert.Contains(t, frontmatter, "source: https://docs.google.com/document/d/abc123/mobilebasic")
}

// TestAddFrontmatter tests prepending frontmatter to a document
func TestAddFrontmatter(t *testing.T) {
	fm := &Frontmatter{
		Title:     "Quarterly Report",
		Source:    "https://docs.google.com/document/d/abc123/mobilebasic",
		FetchedAt: time.Now(),
	}

	markdown := "# Heading\n\nSome content"

	result, err := AddFrontmatter(markdown, fm)
	require.NoError(t, err)

	assert.Contains(t, result, markdown)
	assert.True(t, len(result) > len(markdown))
	assert.True(t, strings.HasPrefix(result, "---"), "frontmatter should lead the document")
}
