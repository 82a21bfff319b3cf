package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docsnatch/docsnatch/internal/converter"
	"github.com/docsnatch/docsnatch/internal/domain"
	"github.com/docsnatch/docsnatch/internal/utils"
)

// BuilderOptions configures archive assembly
type BuilderOptions struct {
	// Workers is the number of ids resolved concurrently
	Workers int
	// IncludeManifest adds a manifest.json entry describing the build
	IncludeManifest bool
	// OnItem runs after each id resolves, before archive assembly, so
	// entry names are not filled in yet. It may be called concurrently
	// when Workers > 1.
	OnItem func(report domain.ItemReport)
	Logger *utils.Logger
}

// DefaultBuilderOptions returns the default build configuration
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		Workers:         1,
		IncludeManifest: false,
	}
}

// Builder turns batches of document ids into download archives. Failed
// ids are recorded and skipped; the archive is produced regardless, empty
// if need be.
type Builder struct {
	docs   domain.DocumentSource
	sheets domain.SpreadsheetSource
	xlsx   *converter.XlsxConverter
	opts   BuilderOptions
	logger *utils.Logger
}

// NewBuilder creates a builder over the two resolvers
func NewBuilder(docs domain.DocumentSource, sheets domain.SpreadsheetSource, opts BuilderOptions) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Builder{
		docs:   docs,
		sheets: sheets,
		xlsx:   converter.NewXlsxConverter(),
		opts:   opts,
		logger: logger.WithComponent("archive"),
	}
}

// itemResult pairs an item report with its payload. Exactly one of file
// and export is set on success.
type itemResult struct {
	report domain.ItemReport
	file   *domain.ExportedFile
	export *domain.SpreadsheetExport
}

// Build resolves every id and assembles the archive in request order.
// The report lists every id with its outcome; the returned error covers
// only archive assembly itself, never individual ids.
func (b *Builder) Build(ctx context.Context, docType domain.DocType, ids []string) ([]byte, *domain.BuildReport, error) {
	if !docType.IsDocument() && !docType.IsSpreadsheet() {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidDocType, docType)
	}

	start := time.Now()
	report := &domain.BuildReport{
		BuildID:   uuid.New().String(),
		Type:      docType,
		StartedAt: start,
	}
	logger := b.logger.WithBuildID(report.BuildID)
	logger.Info().
		Str("doc_type", string(docType)).
		Int("ids", len(ids)).
		Int("workers", b.workers()).
		Msg("build started")

	results := make([]*itemResult, len(ids))
	utils.ParallelForEach(ctx, len(ids), b.workers(), func(ctx context.Context, i int) {
		results[i] = b.resolveItem(ctx, logger, docType, ids[i])
	})

	w := NewWriter()
	for i, res := range results {
		if res == nil {
			// never scheduled, the context was cancelled first
			cause := context.Cause(ctx)
			if cause == nil {
				cause = context.Canceled
			}
			res = &itemResult{report: domain.ItemReport{
				ID:     ids[i],
				Type:   docType,
				Status: domain.ItemFailed,
				Error:  cause.Error(),
			}}
		}

		rep := res.report
		if rep.Status == domain.ItemOK {
			entries, err := b.addToArchive(w, res)
			if err != nil {
				return nil, nil, err
			}
			rep.Entries = entries
		}

		report.Items = append(report.Items, rep)
		if rep.Status == domain.ItemOK {
			report.Succeeded++
			report.Entries += len(rep.Entries)
		} else {
			report.Failed++
		}
	}

	report.Duration = time.Since(start)
	if b.opts.IncludeManifest {
		manifest, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, nil, fmt.Errorf("marshal manifest: %w", err)
		}
		if err := w.Add(w.Reserve("manifest.json"), manifest); err != nil {
			return nil, nil, err
		}
	}

	data, err := w.Bytes()
	if err != nil {
		return nil, nil, err
	}

	logger.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("entries", report.Entries).
		Int("bytes", len(data)).
		Dur("duration", report.Duration).
		Msg("build complete")
	return data, report, nil
}

func (b *Builder) workers() int {
	if b.opts.Workers < 1 {
		return 1
	}
	return b.opts.Workers
}

func (b *Builder) resolveItem(ctx context.Context, logger *utils.Logger, docType domain.DocType, id string) *itemResult {
	start := time.Now()
	res := &itemResult{report: domain.ItemReport{
		ID:     id,
		Type:   docType,
		Status: domain.ItemOK,
	}}

	var err error
	switch docType {
	case domain.DocTypeDocx:
		res.file, err = b.docs.Resolve(ctx, id)
	case domain.DocTypeMarkdown:
		res.file, err = b.docs.ResolveMarkdown(ctx, id)
	case domain.DocTypeCSV:
		res.export, err = b.sheets.Resolve(ctx, id)
	case domain.DocTypeXLSX:
		res.file, err = b.resolveWorkbook(ctx, id)
	}

	res.report.Duration = time.Since(start)
	if err != nil {
		res.report.Status = domain.ItemFailed
		res.report.Error = err.Error()
		res.file = nil
		res.export = nil
		logger.Warn().Err(err).Str("doc_id", id).Msg("item failed")
	} else {
		logger.Debug().Str("doc_id", id).Dur("duration", res.report.Duration).Msg("item resolved")
	}

	if b.opts.OnItem != nil {
		b.opts.OnItem(res.report)
	}
	return res
}

func (b *Builder) resolveWorkbook(ctx context.Context, id string) (*domain.ExportedFile, error) {
	export, err := b.sheets.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := b.xlsx.Convert(export)
	if err != nil {
		return nil, domain.NewResolveError(id, err)
	}
	return &domain.ExportedFile{
		Filename: export.Title + ".xlsx",
		Data:     data,
	}, nil
}

// addToArchive writes one resolved item and returns its entry names.
// Spreadsheets become a directory of per-tab CSV files; everything else
// is a single flat file.
func (b *Builder) addToArchive(w *Writer, res *itemResult) ([]string, error) {
	if res.file != nil {
		name := w.Reserve(res.file.Filename)
		if err := w.Add(name, res.file.Data); err != nil {
			return nil, err
		}
		return []string{name}, nil
	}

	dir := w.Reserve(res.export.Title)
	entries := make([]string, 0, len(res.export.Tabs))
	for _, tab := range res.export.Tabs {
		entry := dir + "/" + tab.GID + ".csv"
		if err := w.Add(entry, tab.CSV); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
