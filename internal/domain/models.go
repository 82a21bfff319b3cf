package domain

import (
	"fmt"
	"net/http"
	"regexp"
	"time"
)

// DocType identifies the export format requested for a batch of ids.
type DocType string

const (
	// DocTypeDocx exports documents as DOCX, one flat entry per id.
	DocTypeDocx DocType = "docx"
	// DocTypeCSV exports spreadsheets as one CSV per tab under a titled directory.
	DocTypeCSV DocType = "csv"
	// DocTypeMarkdown exports documents as Markdown with front matter.
	DocTypeMarkdown DocType = "md"
	// DocTypeXLSX exports spreadsheets as a single workbook per id.
	DocTypeXLSX DocType = "xlsx"
)

// ParseDocType maps a caller-supplied type string to a DocType.
func ParseDocType(s string) (DocType, error) {
	switch s {
	case "docx":
		return DocTypeDocx, nil
	case "csv":
		return DocTypeCSV, nil
	case "md", "markdown":
		return DocTypeMarkdown, nil
	case "xlsx":
		return DocTypeXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDocType, s)
}

// IsSpreadsheet reports whether the type goes through the spreadsheet pipeline.
func (t DocType) IsSpreadsheet() bool {
	return t == DocTypeCSV || t == DocTypeXLSX
}

// IsDocument reports whether the type goes through the document pipeline.
func (t DocType) IsDocument() bool {
	return t == DocTypeDocx || t == DocTypeMarkdown
}

func (t DocType) String() string {
	return string(t)
}

// docIDPattern restricts ids to characters that cannot alter the target URL.
var docIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// MaxDocIDLength bounds caller-supplied ids; real ids are well under this.
const MaxDocIDLength = 128

// ValidateDocID checks that an id is safe to interpolate into an export URL.
func ValidateDocID(id string) error {
	if id == "" || len(id) > MaxDocIDLength || !docIDPattern.MatchString(id) {
		return NewResolveError(id, ErrInvalidDocID)
	}
	return nil
}

// DocumentRequest is one (type, id) pair supplied by the caller.
type DocumentRequest struct {
	Type DocType `json:"doc_type"`
	ID   string  `json:"id"`
}

// Response is a successful fetch result. Absence is represented by a
// *FetchError wrapping ErrUnavailable, never by a partial Response.
type Response struct {
	StatusCode  int
	Body        []byte
	Headers     http.Header
	ContentType string
	URL         string
	FetchedAt   time.Time
	FromCache   bool
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// SheetTab is one grid within a spreadsheet, in discovery order.
type SheetTab struct {
	GID      string
	Position int
}

// TabExport is one exported tab body.
type TabExport struct {
	GID string
	CSV []byte
}

// SpreadsheetExport is a fully exported spreadsheet. Tabs holds only the
// tabs that exported; discovery order is preserved.
type SpreadsheetExport struct {
	ID    string
	Title string
	Tabs  []TabExport
}

// ExportedFile is a converted artifact held until it is written into the archive.
type ExportedFile struct {
	Filename string
	Data     []byte
}

// ItemStatus is the per-id outcome inside a build report.
type ItemStatus string

const (
	ItemOK     ItemStatus = "ok"
	ItemFailed ItemStatus = "failed"
)

// ItemReport records the outcome of resolving a single id.
type ItemReport struct {
	ID       string        `json:"id"`
	Type     DocType       `json:"doc_type"`
	Status   ItemStatus    `json:"status"`
	Entries  []string      `json:"entries,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// BuildReport is the per-batch manifest returned alongside the archive bytes.
type BuildReport struct {
	BuildID   string        `json:"build_id"`
	Type      DocType       `json:"doc_type"`
	Items     []ItemReport  `json:"items"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Entries   int           `json:"entries"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// FailedIDs returns the ids that contributed nothing to the archive.
func (r *BuildReport) FailedIDs() []string {
	var ids []string
	for _, item := range r.Items {
		if item.Status == ItemFailed {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// AllFailed reports whether no id produced an archive entry. Callers that
// inspect only the archive see this as a valid but empty zip.
func (r *BuildReport) AllFailed() bool {
	return len(r.Items) > 0 && r.Succeeded == 0
}
