package converter

import (
	"github.com/PuerkitoBio/goquery"
)

// TagsToRemove are HTML tags that should be completely removed before
// conversion. Their text content would otherwise leak into the output.
var TagsToRemove = []string{
	"script",
	"style",
	"noscript",
	"iframe",
	"object",
	"embed",
}

// Sanitizer strips non-content markup ahead of conversion
type Sanitizer struct{}

// NewSanitizer creates a sanitizer
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// SanitizeSelection cleans a selection in place and returns it
func (s *Sanitizer) SanitizeSelection(sel *goquery.Selection) *goquery.Selection {
	if sel == nil {
		return nil
	}

	for _, tag := range TagsToRemove {
		findWithRoot(sel, tag).Remove()
	}

	// Hidden elements carry no visible content either
	findWithRoot(sel, "[style*='display:none']").Remove()
	findWithRoot(sel, "[style*='display: none']").Remove()
	findWithRoot(sel, "[hidden]").Remove()

	return sel
}

// findWithRoot matches a selector against the selection's descendants and
// the selected nodes themselves
func findWithRoot(sel *goquery.Selection, selector string) *goquery.Selection {
	return sel.Find(selector).AddSelection(sel.Filter(selector))
}
