package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/docsnatch/docsnatch/internal/domain"
	"github.com/docsnatch/docsnatch/internal/utils"
	"github.com/docsnatch/docsnatch/pkg/version"
)

// ArchiveName is the fixed attachment filename for download responses
const ArchiveName = "docsnatch-export.zip"

// Archiver produces a zip archive and its report for a batch of ids.
// *app.App satisfies it.
type Archiver interface {
	Build(ctx context.Context, docType domain.DocType, ids []string) ([]byte, *domain.BuildReport, error)
}

// Options contains options for creating a Server
type Options struct {
	Logger         *utils.Logger
	AllowedOrigins []string
}

// Server serves the export form, the download endpoint and the
// operational endpoints around them
type Server struct {
	archiver Archiver
	logger   *utils.Logger
	metrics  *Metrics
	tmpl     *template.Template
	origins  []string
}

// New creates a server around the given archiver
func New(archiver Archiver, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	tmpl, err := template.ParseFS(assetFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		archiver: archiver,
		logger:   logger.WithComponent("server"),
		metrics:  NewMetrics(),
		tmpl:     tmpl,
		origins:  opts.AllowedOrigins,
	}, nil
}

// handleIndex renders the export form
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	data := map[string]any{
		"Types": []domain.DocType{
			domain.DocTypeDocx,
			domain.DocTypeMarkdown,
			domain.DocTypeCSV,
			domain.DocTypeXLSX,
		},
	}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render index page")
	}
}

// handleDownload builds the archive for the posted ids and streams it
// back as an attachment
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.metrics.RecordRejected("bad_form")
		writeError(w, http.StatusBadRequest, "malformed form data")
		return
	}

	docType, err := domain.ParseDocType(r.PostFormValue("doc_type"))
	if err != nil {
		s.metrics.RecordRejected("bad_type")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The form posts repeated doc_ids fields; doc_ids[] is accepted for
	// callers using the bracket convention.
	values := make([]string, 0, len(r.PostForm["doc_ids"])+len(r.PostForm["doc_ids[]"]))
	values = append(values, r.PostForm["doc_ids"]...)
	values = append(values, r.PostForm["doc_ids[]"]...)
	ids := splitIDs(values)

	s.metrics.BuildStarted()
	data, report, err := s.archiver.Build(r.Context(), docType, ids)
	s.metrics.BuildFinished()
	if err != nil {
		s.metrics.RecordBuildError(docType)
		s.logger.Error().Err(err).Str("doc_type", docType.String()).Msg("Archive build failed")
		writeError(w, http.StatusInternalServerError, "archive build failed")
		return
	}

	s.metrics.RecordBuild(report, len(data))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename="+ArchiveName)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Build-Id", report.BuildID)
	if failed := report.FailedIDs(); len(failed) > 0 {
		w.Header().Set("X-Failed-Ids", strings.Join(failed, ","))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleHealth reports service liveness and the running build
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "docsnatch",
		"version": version.Short(),
	})
}

// splitIDs flattens repeated form values, splitting each on commas and
// whitespace
func splitIDs(values []string) []string {
	var ids []string
	for _, value := range values {
		fields := strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		ids = append(ids, fields...)
	}
	return ids
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
