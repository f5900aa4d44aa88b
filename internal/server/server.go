// Package server exposes the fleet analyses over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/config"
	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/optimizer"
	"github.com/iwvelando/fleet-optimizer/internal/store"
	"github.com/iwvelando/fleet-optimizer/internal/vesselio"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"github.com/iwvelando/fleet-optimizer/pkg/optimization"
	"github.com/iwvelando/fleet-optimizer/pkg/output"
	"go.uber.org/zap"
)

// AnalysisAll requests every analysis in one call.
const AnalysisAll = "all"

// Options configures the HTTP handler.
type Options struct {
	MaxUploadSize int64
	Version       string
	Timeout       time.Duration
	Store         *store.Store
}

type handler struct {
	logger        *zap.Logger
	conf          *config.Configuration
	maxUploadSize int64
	version       string
	timeout       time.Duration
	store         *store.Store
}

// NewHandler constructs the HTTP handler that serves the analysis API.
func NewHandler(logger *zap.Logger, conf *config.Configuration, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if conf == nil {
		conf = config.Default()
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = constants.DefaultMaxUploadSizeBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultRequestTimeout
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		conf:          conf,
		maxUploadSize: opts.MaxUploadSize,
		version:       trimmedVersion,
		timeout:       opts.Timeout,
		store:         opts.Store,
	}

	mux := http.NewServeMux()

	// Analysis API endpoint (vessel table upload)
	mux.HandleFunc("/api/analyze", h.handleAnalyze)

	// Run archive
	mux.HandleFunc("/api/runs", h.handleRuns)
	mux.HandleFunc("/api/runs/", h.handleRun)

	// Version endpoint for client metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	return mux
}

type analyzeResponse struct {
	Analysis  string                 `json:"analysis"`
	Vessels   int                    `json:"vessels"`
	Summaries []optimization.Summary `json:"summaries"`
	Result    any                    `json:"result"`
	Duration  string                 `json:"duration"`
}

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAnalyze"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	analysis := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("analysis")))
	if analysis == "" {
		analysis = optimizer.AnalysisOptimize
	}
	analyses := []string{analysis}
	if analysis == AnalysisAll {
		analyses = nil
	}

	outputFormat := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if outputFormat == "" {
		outputFormat = constants.OutputFormatJSON
	}
	if _, err := output.NewWriter(io.Discard, outputFormat); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	table, ok := h.readTable(w, r, op)
	if !ok {
		return
	}

	runner, err := optimizer.NewRunner(h.logger, h.conf, optimizer.WithStore(h.store))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to initialize optimizer: %v", err), op)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	res, err := runner.Run(ctx, table, analyses)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, optimizer.ErrUnknownAnalysis) || errors.Is(err, fleet.ErrInvalidConfig) {
			status = http.StatusBadRequest
		}
		h.respondError(w, status, err.Error(), op)
		return
	}

	if analysis != AnalysisAll {
		if s, ok := res.Summary(analysis); ok && s.Skipped() {
			h.respondError(w, http.StatusUnprocessableEntity, strings.Join(s.Notes, "; "), op)
			return
		}
	}

	if outputFormat != constants.OutputFormatJSON {
		h.writeRendered(w, outputFormat, analysis, table, res, op)
		return
	}

	h.writeJSON(w, http.StatusOK, analyzeResponse{
		Analysis:  analysis,
		Vessels:   table.Len(),
		Summaries: res.Summaries,
		Result:    res.Payload(table, analysis),
		Duration:  time.Since(start).String(),
	})
}

// readTable parses the multipart upload into a vessel table. The table
// format follows the "format" form field or the uploaded file extension.
func (h *handler) readTable(w http.ResponseWriter, r *http.Request, op string) (*fleet.Table, bool) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing vessel table file", op)
		return nil, false
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var tableFormat vesselio.Format
	if name := strings.TrimSpace(r.FormValue("format")); name != "" {
		tableFormat, err = vesselio.ParseFormat(name)
	} else {
		tableFormat, err = vesselio.FormatFromPath(filepath.Base(header.Filename))
	}
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return nil, false
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read vessel table: %v", err), op)
		return nil, false
	}
	table, err := vesselio.Read(&buf, tableFormat)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid vessel table: %v", err), op)
		return nil, false
	}
	return table, true
}

func (h *handler) writeRendered(w http.ResponseWriter, outputFormat, analysis string, t *fleet.Table, res *optimizer.Result, op string) {
	var buf bytes.Buffer
	ow, err := output.NewWriter(&buf, outputFormat)
	if err == nil {
		err = res.Render(ow, t, analysis)
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render result: %v", err), op)
		return
	}
	w.Header().Set("Content-Type", contentTypes[outputFormat])
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("failed to write response", zap.String("op", op), zap.Error(err))
	}
}

var contentTypes = map[string]string{
	constants.OutputFormatPretty:   "text/plain; charset=utf-8",
	constants.OutputFormatCSV:      "text/csv; charset=utf-8",
	constants.OutputFormatYAML:     "application/yaml",
	constants.OutputFormatMarkdown: "text/markdown; charset=utf-8",
}

func (h *handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRuns"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.store == nil {
		h.respondError(w, http.StatusNotFound, "run archive is disabled", op)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw), op)
			return
		}
		limit = n
	}
	runs, err := h.store.ListRuns(r.Context(), r.URL.Query().Get("kind"), limit)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if runs == nil {
		runs = []store.Summary{}
	}
	h.writeJSON(w, http.StatusOK, runs)
}

func (h *handler) handleRun(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRun"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.store == nil {
		h.respondError(w, http.StatusNotFound, "run archive is disabled", op)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if id == "" || strings.Contains(id, "/") {
		h.respondError(w, http.StatusNotFound, "run not found", op)
		return
	}
	run, err := h.store.LoadRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, err.Error(), op)
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Warn("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
