package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/docsnatch/docsnatch/internal/domain"
	"github.com/docsnatch/docsnatch/internal/mocks"
)

func exportedFile(name, body string) *domain.ExportedFile {
	return &domain.ExportedFile{Filename: name, Data: []byte(body)}
}

func sheetExport(id, title string, gids ...string) *domain.SpreadsheetExport {
	export := &domain.SpreadsheetExport{ID: id, Title: title}
	for _, gid := range gids {
		export.Tabs = append(export.Tabs, domain.TabExport{GID: gid, CSV: []byte("a,b\n1,2\n")})
	}
	return export
}

// readArchive returns entry contents by name plus the entry order
func readArchive(t *testing.T, data []byte) (map[string]string, []string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	contents := make(map[string]string)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		contents[f.Name] = string(body)
	}
	return contents, names
}

// TestNewBuilder tests builder construction
func TestNewBuilder(t *testing.T) {
	ctrl := gomock.NewController(t)
	builder := NewBuilder(mocks.NewMockDocumentSource(ctrl), mocks.NewMockSpreadsheetSource(ctrl), DefaultBuilderOptions())
	assert.NotNil(t, builder)
}

// TestDefaultBuilderOptions tests the default build configuration
func TestDefaultBuilderOptions(t *testing.T) {
	opts := DefaultBuilderOptions()
	assert.Equal(t, 1, opts.Workers)
	assert.False(t, opts.IncludeManifest)
	assert.Nil(t, opts.OnItem)
}

// TestBuilder_Build_EmptyBatch tests that no ids still produce a valid
// empty archive
func TestBuilder_Build_EmptyBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	builder := NewBuilder(mocks.NewMockDocumentSource(ctrl), mocks.NewMockSpreadsheetSource(ctrl), DefaultBuilderOptions())

	data, report, err := builder.Build(context.Background(), domain.DocTypeDocx, nil)
	require.NoError(t, err)

	_, names := readArchive(t, data)
	assert.Empty(t, names)
	assert.NotEmpty(t, report.BuildID)
	assert.Zero(t, report.Succeeded)
	assert.Zero(t, report.Failed)
	assert.False(t, report.AllFailed())
}

// TestBuilder_Build_Documents tests document batches
func TestBuilder_Build_Documents(t *testing.T) {
	t.Run("one failure does not stop the batch", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		docsSrc := mocks.NewMockDocumentSource(ctrl)
		sheetsSrc := mocks.NewMockSpreadsheetSource(ctrl)

		docsSrc.EXPECT().Resolve(gomock.Any(), "one").Return(exportedFile("One.docx", "d1"), nil)
		docsSrc.EXPECT().Resolve(gomock.Any(), "bad").
			Return(nil, domain.NewResolveError("bad", domain.ErrContentNotFound))
		docsSrc.EXPECT().Resolve(gomock.Any(), "three").Return(exportedFile("Three.docx", "d3"), nil)

		builder := NewBuilder(docsSrc, sheetsSrc, DefaultBuilderOptions())
		data, report, err := builder.Build(context.Background(), domain.DocTypeDocx, []string{"one", "bad", "three"})
		require.NoError(t, err)

		contents, names := readArchive(t, data)
		assert.Equal(t, []string{"One.docx", "Three.docx"}, names)
		assert.Equal(t, "d1", contents["One.docx"])

		assert.Equal(t, 2, report.Succeeded)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, []string{"bad"}, report.FailedIDs())
		assert.False(t, report.AllFailed())
		require.Len(t, report.Items, 3)
		assert.Equal(t, domain.ItemFailed, report.Items[1].Status)
		assert.Contains(t, report.Items[1].Error, "content not found")
	})

	t.Run("markdown batches use the markdown resolver", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		docsSrc := mocks.NewMockDocumentSource(ctrl)
		docsSrc.EXPECT().ResolveMarkdown(gomock.Any(), "one").Return(exportedFile("One.md", "# One"), nil)

		builder := NewBuilder(docsSrc, mocks.NewMockSpreadsheetSource(ctrl), DefaultBuilderOptions())
		data, report, err := builder.Build(context.Background(), domain.DocTypeMarkdown, []string{"one"})
		require.NoError(t, err)

		contents, _ := readArchive(t, data)
		assert.Equal(t, "# One", contents["One.md"])
		assert.Equal(t, []string{"One.md"}, report.Items[0].Entries)
	})

	t.Run("identical filenames get suffixes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		docsSrc := mocks.NewMockDocumentSource(ctrl)
		docsSrc.EXPECT().Resolve(gomock.Any(), "a").Return(exportedFile("Plan.docx", "first"), nil)
		docsSrc.EXPECT().Resolve(gomock.Any(), "b").Return(exportedFile("Plan.docx", "second"), nil)

		builder := NewBuilder(docsSrc, mocks.NewMockSpreadsheetSource(ctrl), DefaultBuilderOptions())
		data, _, err := builder.Build(context.Background(), domain.DocTypeDocx, []string{"a", "b"})
		require.NoError(t, err)

		contents, names := readArchive(t, data)
		assert.Equal(t, []string{"Plan.docx", "Plan_2.docx"}, names)
		assert.Equal(t, "first", contents["Plan.docx"])
		assert.Equal(t, "second", contents["Plan_2.docx"])
	})
}

// TestBuilder_Build_Spreadsheets tests spreadsheet batches
func TestBuilder_Build_Spreadsheets(t *testing.T) {
	t.Run("csv tabs land in a directory per spreadsheet", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sheetsSrc := mocks.NewMockSpreadsheetSource(ctrl)
		sheetsSrc.EXPECT().Resolve(gomock.Any(), "sheet1").Return(sheetExport("sheet1", "My_Sheet", "0", "7"), nil)

		builder := NewBuilder(mocks.NewMockDocumentSource(ctrl), sheetsSrc, DefaultBuilderOptions())
		data, report, err := builder.Build(context.Background(), domain.DocTypeCSV, []string{"sheet1"})
		require.NoError(t, err)

		contents, names := readArchive(t, data)
		assert.Equal(t, []string{"My_Sheet/0.csv", "My_Sheet/7.csv"}, names)
		assert.Equal(t, "a,b\n1,2\n", contents["My_Sheet/0.csv"])

		require.Len(t, report.Items, 1)
		assert.Equal(t, []string{"My_Sheet/0.csv", "My_Sheet/7.csv"}, report.Items[0].Entries)
		assert.Equal(t, 2, report.Entries)
	})

	t.Run("identical titles get suffixed directories", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sheetsSrc := mocks.NewMockSpreadsheetSource(ctrl)
		sheetsSrc.EXPECT().Resolve(gomock.Any(), "a").Return(sheetExport("a", "Report", "0"), nil)
		sheetsSrc.EXPECT().Resolve(gomock.Any(), "b").Return(sheetExport("b", "Report", "0"), nil)

		builder := NewBuilder(mocks.NewMockDocumentSource(ctrl), sheetsSrc, DefaultBuilderOptions())
		data, _, err := builder.Build(context.Background(), domain.DocTypeCSV, []string{"a", "b"})
		require.NoError(t, err)

		_, names := readArchive(t, data)
		assert.Equal(t, []string{"Report/0.csv", "Report_2/0.csv"}, names)
	})

	t.Run("xlsx batches convert tabs into one workbook", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sheetsSrc := mocks.NewMockSpreadsheetSource(ctrl)
		sheetsSrc.EXPECT().Resolve(gomock.Any(), "sheet1").Return(sheetExport("sheet1", "Inventory", "0", "7"), nil)

		builder := NewBuilder(mocks.NewMockDocumentSource(ctrl), sheetsSrc, DefaultBuilderOptions())
		data, report, err := builder.Build(context.Background(), domain.DocTypeXLSX, []string{"sheet1"})
		require.NoError(t, err)

		contents, names := readArchive(t, data)
		assert.Equal(t, []string{"Inventory.xlsx"}, names)
		assert.True(t, bytes.HasPrefix([]byte(contents["Inventory.xlsx"]), []byte("PK")))
		assert.Equal(t, 1, report.Entries)
	})

	t.Run("all ids failing still yields a valid archive", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sheetsSrc := mocks.NewMockSpreadsheetSource(ctrl)
		sheetsSrc.EXPECT().Resolve(gomock.Any(), gomock.Any()).
			Return(nil, domain.NewResolveError("x", domain.ErrAllTabsFailed)).
			Times(2)

		builder := NewBuilder(mocks.NewMockDocumentSource(ctrl), sheetsSrc, DefaultBuilderOptions())
		data, report, err := builder.Build(context.Background(), domain.DocTypeCSV, []string{"x", "y"})
		require.NoError(t, err)

		_, names := readArchive(t, data)
		assert.Empty(t, names)
		assert.True(t, report.AllFailed())
		assert.Equal(t, []string{"x", "y"}, report.FailedIDs())
	})
}

// TestBuilder_Build_InvalidType tests the unknown doc type guard
func TestBuilder_Build_InvalidType(t *testing.T) {
	ctrl := gomock.NewController(t)
	builder := NewBuilder(mocks.NewMockDocumentSource(ctrl), mocks.NewMockSpreadsheetSource(ctrl), DefaultBuilderOptions())

	_, _, err := builder.Build(context.Background(), domain.DocType("pdf"), []string{"one"})
	assert.ErrorIs(t, err, domain.ErrInvalidDocType)
}

// TestBuilder_Build_Manifest tests the opt-in manifest entry
func TestBuilder_Build_Manifest(t *testing.T) {
	t.Run("manifest describes the build", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		docsSrc := mocks.NewMockDocumentSource(ctrl)
		docsSrc.EXPECT().Resolve(gomock.Any(), "one").Return(exportedFile("One.docx", "d1"), nil)

		opts := DefaultBuilderOptions()
		opts.IncludeManifest = true
		builder := NewBuilder(docsSrc, mocks.NewMockSpreadsheetSource(ctrl), opts)

		data, report, err := builder.Build(context.Background(), domain.DocTypeDocx, []string{"one"})
		require.NoError(t, err)

		contents, _ := readArchive(t, data)
		require.Contains(t, contents, "manifest.json")

		var manifest domain.BuildReport
		require.NoError(t, json.Unmarshal([]byte(contents["manifest.json"]), &manifest))
		assert.Equal(t, report.BuildID, manifest.BuildID)
		assert.Equal(t, 1, manifest.Succeeded)
	})

	t.Run("manifest is absent by default", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		docsSrc := mocks.NewMockDocumentSource(ctrl)
		docsSrc.EXPECT().Resolve(gomock.Any(), "one").Return(exportedFile("One.docx", "d1"), nil)

		builder := NewBuilder(docsSrc, mocks.NewMockSpreadsheetSource(ctrl), DefaultBuilderOptions())
		data, _, err := builder.Build(context.Background(), domain.DocTypeDocx, []string{"one"})
		require.NoError(t, err)

		contents, _ := readArchive(t, data)
		assert.NotContains(t, contents, "manifest.json")
	})
}

// TestBuilder_Build_Parallel tests that workers do not change the
// archive layout
func TestBuilder_Build_Parallel(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f"}

	ctrl := gomock.NewController(t)
	docsSrc := mocks.NewMockDocumentSource(ctrl)
	for _, id := range ids {
		docsSrc.EXPECT().Resolve(gomock.Any(), id).Return(exportedFile(id+".docx", "data "+id), nil)
	}

	opts := DefaultBuilderOptions()
	opts.Workers = 4
	builder := NewBuilder(docsSrc, mocks.NewMockSpreadsheetSource(ctrl), opts)

	data, report, err := builder.Build(context.Background(), domain.DocTypeDocx, ids)
	require.NoError(t, err)

	_, names := readArchive(t, data)
	assert.Equal(t, []string{"a.docx", "b.docx", "c.docx", "d.docx", "e.docx", "f.docx"}, names)
	assert.Equal(t, 6, report.Succeeded)
}

// TestBuilder_Build_OnItem tests the per-item callback
func TestBuilder_Build_OnItem(t *testing.T) {
	ctrl := gomock.NewController(t)
	docsSrc := mocks.NewMockDocumentSource(ctrl)
	docsSrc.EXPECT().Resolve(gomock.Any(), "one").Return(exportedFile("One.docx", "d1"), nil)
	docsSrc.EXPECT().Resolve(gomock.Any(), "bad").
		Return(nil, domain.NewResolveError("bad", domain.ErrContentNotFound))

	var mu sync.Mutex
	var seen []domain.ItemReport
	opts := DefaultBuilderOptions()
	opts.OnItem = func(report domain.ItemReport) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, report)
	}

	builder := NewBuilder(docsSrc, mocks.NewMockSpreadsheetSource(ctrl), opts)
	_, _, err := builder.Build(context.Background(), domain.DocTypeDocx, []string{"one", "bad"})
	require.NoError(t, err)

	require.Len(t, seen, 2)
	statuses := map[string]domain.ItemStatus{}
	for _, item := range seen {
		statuses[item.ID] = item.Status
	}
	assert.Equal(t, domain.ItemOK, statuses["one"])
	assert.Equal(t, domain.ItemFailed, statuses["bad"])
}
