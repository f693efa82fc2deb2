package web

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quizpool/checker/internal/core"
)

// multipartOverhead is extra room on top of the file size limit for the
// multipart envelope around the payload.
const multipartOverhead = 64 * 1024

// handleValidate accepts a pool CSV as multipart form field "file",
// validates it, and returns the report as JSON.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Validate.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.respondError(w, r, fmt.Errorf("file too large: limit is %d bytes", maxSize), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, errors.New("no file provided"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("reading upload: %w", err), http.StatusBadRequest)
		return
	}
	if int64(len(data)) > maxSize {
		s.respondError(w, r, fmt.Errorf("file too large: limit is %d bytes", maxSize), http.StatusRequestEntityTooLarge)
		return
	}

	ctx := core.ContextWithClientIP(r.Context(), clientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())

	report, err := s.service.ValidateDocument(ctx, header.Filename, data)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleListReports returns recent validation reports, newest first.
// The optional "limit" query parameter caps the result count.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, r, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	reports, err := s.service.ListReports(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	if reports == nil {
		reports = []core.ReportSummary{}
	}

	writeJSON(w, http.StatusOK, reports)
}

// handleGetReport returns a stored report with its findings.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.GetReport(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleFindingsCSV exports a report's findings as a CSV download.
func (s *Server) handleFindingsCSV(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.GetReport(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="findings.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"line", "field", "error"})
	for _, f := range report.Findings {
		cw.Write([]string{
			strconv.Itoa(f.Line),
			strconv.Itoa(f.Field),
			f.Message,
		})
	}
	cw.Flush()
}

// handleHealth reports service liveness and the validation limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"storage": s.service.StorageEnabled(),
		"limiter": s.service.LimiterStatus(),
	})
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyValidations):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// clientIP returns the client address for report metadata, preferring the
// X-Real-IP header set by the RealIP middleware.
func clientIP(r *http.Request) string {
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
