package extractor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/docsnatch/docsnatch/internal/converter"
	"github.com/docsnatch/docsnatch/internal/domain"
	"github.com/docsnatch/docsnatch/internal/utils"
)

// Extractor fetches pages and parses them into queryable documents
type Extractor struct {
	fetcher domain.Fetcher
	logger  *utils.Logger
}

// New creates a new Extractor
func New(fetcher domain.Fetcher, logger *utils.Logger) *Extractor {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Extractor{
		fetcher: fetcher,
		logger:  logger.WithComponent("extractor"),
	}
}

// FetchPage fetches a URL and parses the body as HTML. The body is
// converted to UTF-8 first when the page declares another charset. Fetch
// failures come back unchanged so callers can distinguish an unreachable
// page from an unparseable one.
func (e *Extractor) FetchPage(ctx context.Context, url string) (*Page, error) {
	resp, err := e.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParsePage(resp)
}

// ParsePage parses a fetched response into a Page
func ParsePage(resp *domain.Response) (*Page, error) {
	body, err := converter.ConvertToUTF8(resp.Body, resp.ContentType)
	if err != nil {
		// Fall back to the raw bytes, the parser is tolerant
		body = resp.Body
	}

	html := string(body)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, domain.NewFetchError(resp.URL, resp.StatusCode, err)
	}

	return &Page{
		URL:       resp.URL,
		FromCache: resp.FromCache,
		html:      html,
		doc:       doc,
	}, nil
}

// Page is a fetched and parsed HTML page
type Page struct {
	URL       string
	FromCache bool

	html string
	doc  *goquery.Document
}

// HTML returns the page source as fetched, after UTF-8 conversion
func (p *Page) HTML() string {
	return p.html
}

// Title returns the trimmed contents of the first title element, or the
// empty string when the page has none
func (p *Page) Title() string {
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

// Find runs a CSS selector against the page
func (p *Page) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}
