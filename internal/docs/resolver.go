package docs

import (
	"context"
	"fmt"
	"time"

	"github.com/docsnatch/docsnatch/internal/converter"
	"github.com/docsnatch/docsnatch/internal/domain"
	"github.com/docsnatch/docsnatch/internal/extractor"
	"github.com/docsnatch/docsnatch/internal/utils"
)

const docURLTemplate = "https://docs.google.com/document/d/%s/mobilebasic"

// DocURL returns the public mobilebasic URL of a document
func DocURL(id string) string {
	return fmt.Sprintf(docURLTemplate, id)
}

// Resolver converts public documents fetched through their mobilebasic
// rendering. The page is reduced to its document container, cleaned, and
// re-serialized before conversion.
type Resolver struct {
	extractor *extractor.Extractor
	sanitizer *converter.Sanitizer
	docx      *converter.DocxConverter
	markdown  *converter.MarkdownConverter
	logger    *utils.Logger
}

// NewResolver creates a document resolver on top of a fetcher
func NewResolver(fetcher domain.Fetcher, logger *utils.Logger) *Resolver {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Resolver{
		extractor: extractor.New(fetcher, logger),
		sanitizer: converter.NewSanitizer(),
		docx:      converter.NewDocxConverter(),
		markdown:  converter.NewMarkdownConverter(),
		logger:    logger.WithComponent("docs"),
	}
}

// Resolve fetches the document and converts it to DOCX
func (r *Resolver) Resolve(ctx context.Context, id string) (*domain.ExportedFile, error) {
	content, err := r.content(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := r.docx.Convert(content.html)
	if err != nil {
		return nil, domain.NewResolveError(id, err)
	}
	return &domain.ExportedFile{
		Filename: content.name + ".docx",
		Data:     data,
	}, nil
}

// ResolveMarkdown fetches the document and converts it to Markdown with
// a YAML frontmatter header
func (r *Resolver) ResolveMarkdown(ctx context.Context, id string) (*domain.ExportedFile, error) {
	content, err := r.content(ctx, id)
	if err != nil {
		return nil, err
	}

	markdown, err := r.markdown.Convert(content.html)
	if err != nil {
		return nil, domain.NewResolveError(id, fmt.Errorf("%w: %v", domain.ErrConversionFailed, err))
	}

	markdown, err = converter.AddFrontmatter(markdown, &converter.Frontmatter{
		Title:     content.title,
		Source:    content.url,
		FetchedAt: content.fetchedAt,
	})
	if err != nil {
		return nil, domain.NewResolveError(id, fmt.Errorf("%w: %v", domain.ErrConversionFailed, err))
	}

	return &domain.ExportedFile{
		Filename: content.name + ".md",
		Data:     []byte(markdown),
	}, nil
}

// docContent is the cleaned document container plus naming metadata
type docContent struct {
	name      string
	title     string
	html      string
	url       string
	fetchedAt time.Time
}

// content fetches the mobilebasic page and extracts its document body:
// the first div nested inside the div.doc container. Missing either one
// means the page carries no convertible content, and unlike spreadsheets
// there is no degraded fallback.
func (r *Resolver) content(ctx context.Context, id string) (*docContent, error) {
	if err := domain.ValidateDocID(id); err != nil {
		return nil, err
	}

	url := DocURL(id)
	page, err := r.extractor.FetchPage(ctx, url)
	if err != nil {
		return nil, domain.NewResolveError(id, err)
	}

	container := page.Find("div.doc")
	if container.Length() == 0 {
		return nil, domain.NewResolveError(id, domain.ErrContentNotFound)
	}
	root := container.Find("div").First()
	if root.Length() == 0 {
		return nil, domain.NewResolveError(id, domain.ErrContentNotFound)
	}

	r.sanitizer.SanitizeSelection(root)

	name := utils.SanitizeTitle(page.Title())
	title := page.Title()
	if title == "" {
		name = "document_" + id
		title = name
	}
	r.logger.WithDocID(id).Debug().Str("title", name).Msg("document content extracted")

	return &docContent{
		name:      name,
		title:     title,
		html:      converter.RenderIndented(root),
		url:       url,
		fetchedAt: time.Now().UTC(),
	}, nil
}

var _ domain.DocumentSource = (*Resolver)(nil)
