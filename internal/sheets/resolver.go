package sheets

import (
	"bytes"
	"context"
	"fmt"

	"github.com/docsnatch/docsnatch/internal/domain"
	"github.com/docsnatch/docsnatch/internal/extractor"
	"github.com/docsnatch/docsnatch/internal/utils"
)

// Resolver exports public spreadsheets tab by tab. Tab discovery scans
// the htmlview preview page; the tab data itself comes from the CSV
// export endpoints.
type Resolver struct {
	fetcher   domain.Fetcher
	extractor *extractor.Extractor
	logger    *utils.Logger
}

// NewResolver creates a spreadsheet resolver on top of a fetcher
func NewResolver(fetcher domain.Fetcher, logger *utils.Logger) *Resolver {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Resolver{
		fetcher:   fetcher,
		extractor: extractor.New(fetcher, logger),
		logger:    logger.WithComponent("sheets"),
	}
}

// Resolve fetches the preview page once for the title and the tab list,
// then exports every tab. Tabs that fail are logged and skipped; the
// spreadsheet itself fails only when no tab exports.
func (r *Resolver) Resolve(ctx context.Context, id string) (*domain.SpreadsheetExport, error) {
	if err := domain.ValidateDocID(id); err != nil {
		return nil, err
	}

	logger := r.logger.WithDocID(id)

	page := r.fetchPreview(ctx, id)
	export := &domain.SpreadsheetExport{
		ID:    id,
		Title: titleFrom(page, id),
	}

	var lastErr error
	for _, tab := range tabsFrom(page) {
		csv, err := r.ExportTab(ctx, id, tab.GID)
		if err != nil {
			lastErr = err
			logger.Warn().Err(err).Str("gid", tab.GID).Msg("tab export failed")
			continue
		}
		export.Tabs = append(export.Tabs, domain.TabExport{GID: tab.GID, CSV: csv})
	}

	if len(export.Tabs) == 0 {
		return nil, domain.NewResolveError(id, fmt.Errorf("%w: %v", domain.ErrAllTabsFailed, lastErr))
	}
	return export, nil
}

// Title returns the sanitized spreadsheet title. An unreachable preview
// or an untitled page falls back to a name derived from the id.
func (r *Resolver) Title(ctx context.Context, id string) string {
	return titleFrom(r.fetchPreview(ctx, id), id)
}

// ListTabs returns the tabs referenced by the preview page in first-seen
// order. When the preview cannot be read the spreadsheet is assumed to
// hold only its default first tab.
func (r *Resolver) ListTabs(ctx context.Context, id string) []domain.SheetTab {
	return tabsFrom(r.fetchPreview(ctx, id))
}

// ExportTab downloads one tab as CSV, trying each export endpoint in
// order and returning the last error when all of them fail
func (r *Resolver) ExportTab(ctx context.Context, id, gid string) ([]byte, error) {
	var lastErr error
	for _, url := range ExportURLs(id, gid) {
		resp, err := r.fetcher.Get(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		if err := validCSV(resp.Body); err != nil {
			r.logger.Debug().Str("doc_id", id).Str("gid", gid).Str("url", url).Msg("endpoint returned no usable csv")
			lastErr = err
			continue
		}
		return resp.Body, nil
	}
	return nil, lastErr
}

func (r *Resolver) fetchPreview(ctx context.Context, id string) *extractor.Page {
	page, err := r.extractor.FetchPage(ctx, PreviewURL(id))
	if err != nil {
		r.logger.Debug().Err(err).Str("doc_id", id).Msg("preview page unavailable")
		return nil
	}
	return page
}

// tabsFrom scans the preview markup for gid references, keeping the
// first occurrence of each. page may be nil.
func tabsFrom(page *extractor.Page) []domain.SheetTab {
	if page == nil {
		return []domain.SheetTab{{GID: defaultTabID, Position: 0}}
	}

	seen := make(map[string]bool)
	var tabs []domain.SheetTab
	for _, match := range gidPattern.FindAllStringSubmatch(page.HTML(), -1) {
		gid := match[1]
		if seen[gid] {
			continue
		}
		seen[gid] = true
		tabs = append(tabs, domain.SheetTab{GID: gid, Position: len(tabs)})
	}

	if len(tabs) == 0 {
		return []domain.SheetTab{{GID: defaultTabID, Position: 0}}
	}
	return tabs
}

func titleFrom(page *extractor.Page, id string) string {
	if page == nil {
		return "spreadsheet_" + id
	}
	title := page.Title()
	if title == "" {
		return "spreadsheet_" + id
	}
	return utils.SanitizeTitle(title)
}

// validCSV rejects empty bodies and the HTML error pages the export
// endpoints serve with status 200
func validCSV(body []byte) error {
	if len(body) == 0 {
		return domain.ErrEmptyExport
	}
	if bytes.HasPrefix(body, []byte("<!DOCTYPE")) {
		return domain.ErrEmptyExport
	}
	return nil
}

var _ domain.SpreadsheetSource = (*Resolver)(nil)
