package sheets

import (
	"fmt"
	"regexp"
)

const (
	previewURLTemplate = "https://docs.google.com/spreadsheets/d/%s/htmlview"
	exportURLTemplate  = "https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s"
	gvizURLTemplate    = "https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:csv&gid=%s"

	// defaultTabID is the gid every spreadsheet carries for its first tab
	defaultTabID = "0"
)

// gidPattern matches tab references anywhere in the preview markup
var gidPattern = regexp.MustCompile(`gid=(\d+)`)

// PreviewURL returns the public htmlview URL of a spreadsheet
func PreviewURL(id string) string {
	return fmt.Sprintf(previewURLTemplate, id)
}

// ExportURLs returns the CSV endpoints for one tab in the order they
// should be tried: the export endpoint first, the gviz endpoint as the
// fallback
func ExportURLs(id, gid string) []string {
	return []string{
		fmt.Sprintf(exportURLTemplate, id, gid),
		fmt.Sprintf(gvizURLTemplate, id, gid),
	}
}
