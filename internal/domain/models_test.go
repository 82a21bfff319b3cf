package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParseDocType tests mapping type strings to DocType values
func TestParseDocType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected DocType
		wantErr  bool
	}{
		{"docx", "docx", DocTypeDocx, false},
		{"csv", "csv", DocTypeCSV, false},
		{"md", "md", DocTypeMarkdown, false},
		{"markdown alias", "markdown", DocTypeMarkdown, false},
		{"xlsx", "xlsx", DocTypeXLSX, false},
		{"empty", "", "", true},
		{"unknown", "pdf", "", true},
		{"uppercase is rejected", "DOCX", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDocType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidDocType))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestDocType_Pipelines tests the pipeline classification helpers
func TestDocType_Pipelines(t *testing.T) {
	assert.True(t, DocTypeDocx.IsDocument())
	assert.True(t, DocTypeMarkdown.IsDocument())
	assert.False(t, DocTypeCSV.IsDocument())

	assert.True(t, DocTypeCSV.IsSpreadsheet())
	assert.True(t, DocTypeXLSX.IsSpreadsheet())
	assert.False(t, DocTypeDocx.IsSpreadsheet())
}

// TestValidateDocID tests document id validation
func TestValidateDocID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"typical document id", "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", false},
		{"id with underscore and dash", "a_b-C9", false},
		{"empty", "", true},
		{"path traversal", "../etc/passwd", true},
		{"slash", "abc/def", true},
		{"query injection", "abc?gid=1", true},
		{"space", "abc def", true},
		{"too long", strings.Repeat("a", MaxDocIDLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidDocID))
				return
			}
			assert.NoError(t, err)
		})
	}
}

// TestBuildReport tests report aggregation helpers
func TestBuildReport(t *testing.T) {
	t.Run("FailedIDs returns ids in item order", func(t *testing.T) {
		report := &BuildReport{
			Items: []ItemReport{
				{ID: "a", Status: ItemOK},
				{ID: "b", Status: ItemFailed},
				{ID: "c", Status: ItemFailed},
			},
			Succeeded: 1,
			Failed:    2,
		}

		assert.Equal(t, []string{"b", "c"}, report.FailedIDs())
	})

	t.Run("AllFailed requires at least one item", func(t *testing.T) {
		empty := &BuildReport{}
		assert.False(t, empty.AllFailed())

		failed := &BuildReport{
			Items:  []ItemReport{{ID: "a", Status: ItemFailed}},
			Failed: 1,
		}
		assert.True(t, failed.AllFailed())

		mixed := &BuildReport{
			Items:     []ItemReport{{ID: "a", Status: ItemOK}, {ID: "b", Status: ItemFailed}},
			Succeeded: 1,
			Failed:    1,
		}
		assert.False(t, mixed.AllFailed())
	})
}

// TestResponse_Text tests body decoding
func TestResponse_Text(t *testing.T) {
	resp := &Response{Body: []byte("gid=0")}
	assert.Equal(t, "gid=0", resp.Text())
}
