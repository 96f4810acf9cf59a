package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rul-dashboard/internal/backend"
	"rul-dashboard/internal/diagnostics"
	"rul-dashboard/internal/logs"
	"rul-dashboard/internal/metrics"
	"rul-dashboard/internal/module"
	"rul-dashboard/internal/prediction"

	"github.com/gorilla/mux"
)

const (
	defaultLogLimit = 50

	// maxFormBytes bounds a predict body; the largest module has 8 fields.
	maxFormBytes = 4 << 10
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	dashboard *module.Dashboard
	metrics   *metrics.Registry
	logger    *logs.Logger
	analyzer  *diagnostics.Analyzer
	monitor   *backend.Monitor
}

// NewHandler creates a new API handler.
func NewHandler(
	dashboard *module.Dashboard,
	metrics *metrics.Registry,
	logger *logs.Logger,
	monitor *backend.Monitor,
) *Handler {
	return &Handler{
		dashboard: dashboard,
		metrics:   metrics,
		logger:    logger,
		analyzer:  diagnostics.NewAnalyzer(metrics, logger),
		monitor:   monitor,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// lookup resolves the {subsystem} route variable, writing a 404 when it
// names no module.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*module.Module, bool) {
	id := mux.Vars(r)["subsystem"]
	m, ok := h.dashboard.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown subsystem: " + id})
	}
	return m, ok
}

/* ---------------- GET /api/modules ---------------- */

func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dashboard.Views())
}

/* ---------------- GET /api/modules/{subsystem} ---------------- */

func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.View())
}

/* ---------------- POST /api/modules/{subsystem}/predict ---------------- */

// decodeForm accepts an object of field values given either as strings or
// as JSON numbers. Anything else becomes an empty value and fails
// validation on that field.
func decodeForm(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	form := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			form[k] = val
		case json.Number:
			form[k] = val.String()
		default:
			form[k] = ""
		}
	}
	return form, nil
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}

	form, err := decodeForm(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	view, err := m.Submit(r.Context(), form)
	writeJSON(w, submitStatus(err), view)
}

func submitStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, module.ErrBusy):
		return http.StatusConflict
	case prediction.KindOf(err) == prediction.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

/* ---------------- GET /api/modules/{subsystem}/assess ---------------- */

func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var rul *float64
	if raw := strings.TrimSpace(r.URL.Query().Get("rul")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "rul must be numeric"})
			return
		}
		rul = &v
	}
	writeJSON(w, http.StatusOK, m.Assess(rul))
}

/* ---------------- GET /api/modules/{subsystem}/history ---------------- */

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}

	points, err := m.History(r.Context())
	if err != nil {
		h.logger.Error("history read failed: " + err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, points)
}

/* ---------------- GET /metrics ---------------- */

func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

/* ---------------- GET /health ---------------- */

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.analyzer.Analyze())
}

/* ---------------- GET /admin/logs ---------------- */

func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	n := defaultLogLimit
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "n must be a non-negative integer"})
			return
		}
		n = v
	}
	writeJSON(w, http.StatusOK, h.logger.GetLast(n))
}

/* ---------------- GET /admin/backend ---------------- */

func (h *Handler) GetBackend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Snapshot())
}
