package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"roster_parser/internal/analysis"
	"roster_parser/internal/coverage"
	"roster_parser/internal/logger"
	"roster_parser/internal/metrics"
	"roster_parser/internal/staffing"
	"roster_parser/internal/storage"
)

// AnalyzeResponse is a report plus the id it was archived under, if any.
type AnalyzeResponse struct {
	RunID string `json:"run_id,omitempty"`
	*analysis.Report
}

// BatchResponse carries one report per file, in request order.
type BatchResponse struct {
	Reports []AnalyzeResponse `json:"reports"`
}

// CalendarResponse is the staffing calendar for one file.
type CalendarResponse struct {
	FileName   string             `json:"file_name"`
	BaseFilter string             `json:"base_filter"`
	Calendar   *staffing.Calendar `json:"calendar"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"archive": s.store != nil,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analysis.Request
	if !decodeBody(w, r, &req) {
		return
	}
	opts, err := req.Options(s.thresholds)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := analysis.AnalyzeFile(req.Input(), opts)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.archive(r, report))
}

// CoverageRequest is the body of POST /coverage.
type CoverageRequest struct {
	Texts []string `json:"texts"`
	Top   int      `json:"top"`
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	var req CoverageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "texts is required")
		return
	}
	if len(req.Texts) > analysis.MaxBatchFiles {
		writeError(w, http.StatusBadRequest, analysis.ErrTooManyFiles.Error())
		return
	}
	writeJSON(w, http.StatusOK, coverage.Analyze(req.Top, req.Texts...))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req analysis.BatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	opts, err := analysis.ResolveOptions(s.thresholds, req.Base, req.Front, req.Back)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := analysis.AnalyzeBatch(r.Context(), req.Inputs(), opts)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	resp := BatchResponse{Reports: make([]AnalyzeResponse, 0, len(reports))}
	for _, rep := range reports {
		resp.Reports = append(resp.Reports, s.archive(r, rep))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	var req analysis.Request
	if !decodeBody(w, r, &req) {
		return
	}
	opts, err := req.Options(s.thresholds)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := analysis.AnalyzeFile(req.Input(), opts)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	cal, err := report.Calendar()
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CalendarResponse{
		FileName:   report.FileName,
		BaseFilter: report.Aggregate.BaseFilter,
		Calendar:   cal,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := storage.ListParams{
		FileName:    q.Get("file_name"),
		ContentHash: q.Get("content_hash"),
	}
	for key, dst := range map[string]*int{"limit": &p.Limit, "offset": &p.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "Invalid "+key)
				return
			}
			*dst = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run id")
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// archive stores report when an archive is configured. Archive failures
// are logged; the analysis is still returned.
func (s *Server) archive(r *http.Request, report *analysis.Report) AnalyzeResponse {
	resp := AnalyzeResponse{Report: report}
	if s.store == nil && s.facts == nil {
		return resp
	}
	run, err := storage.Archive(r.Context(), s.store, s.facts, report)
	if err != nil {
		logger.Error("archive run", "file", report.FileName, "err", err)
	}
	if run != nil && s.store != nil && err == nil {
		resp.RunID = run.ID.String()
	}
	return resp
}

// decodeBody decodes a JSON body of at most MaxBodyBytes into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// writeAnalysisError maps pipeline errors onto HTTP statuses.
func writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrInvalidContext),
		errors.Is(err, analysis.ErrTooManyFiles),
		errors.Is(err, analysis.ErrNoFiles),
		errors.Is(err, metrics.ErrUnknownBaseFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
