package converter

import (
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"gopkg.in/yaml.v3"
)

// MarkdownConverter turns sanitized document HTML into Markdown
type MarkdownConverter struct{}

// NewMarkdownConverter creates a converter
func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{}
}

// Convert renders HTML as Markdown and tidies the result
func (c *MarkdownConverter) Convert(html string) (string, error) {
	markdown, err := md.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}

	return c.cleanMarkdown(markdown), nil
}

// cleanMarkdown collapses runs of more than two blank lines and trims
// the edges
func (c *MarkdownConverter) cleanMarkdown(markdown string) string {
	for strings.Contains(markdown, "\n\n\n\n") {
		markdown = strings.ReplaceAll(markdown, "\n\n\n\n", "\n\n\n")
	}

	return strings.TrimSpace(markdown)
}

// Frontmatter is the YAML block prepended to exported Markdown
type Frontmatter struct {
	Title     string    `yaml:"title"`
	Source    string    `yaml:"source"`
	FetchedAt time.Time `yaml:"fetched_at"`
}

// GenerateFrontmatter renders the YAML block, delimiters included
func GenerateFrontmatter(fm *Frontmatter) (string, error) {
	data, err := yaml.Marshal(fm)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("---\n%s---\n\n", string(data)), nil
}

// AddFrontmatter prepends the YAML block to a converted document
func AddFrontmatter(markdown string, fm *Frontmatter) (string, error) {
	frontmatter, err := GenerateFrontmatter(fm)
	if err != nil {
		return "", err
	}

	return frontmatter + markdown + "\n", nil
}
