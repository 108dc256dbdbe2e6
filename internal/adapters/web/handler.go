package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"aegis-intel/internal/domain"
	"aegis-intel/internal/usecase/scan"
)

type scanner interface {
	Run(ctx context.Context, trigger string) scan.Report
	Active() []domain.IntelRecord
	RawItems() []domain.RawItem
	LastReport() (scan.Report, bool)
}

// Handler отдаёт разведсводку по HTTP.
type Handler struct {
	svc scanner
	log zerolog.Logger
}

// NewHandler создаёт обработчик API.
func NewHandler(svc scanner, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Mount регистрирует маршруты /api/v1.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/intel", h.listIntel)
		r.Get("/raw", h.listRaw)
		r.Post("/scan", h.runScan)
		r.Get("/status", h.status)
	})
}

type intelResponse struct {
	Count   int                  `json:"count"`
	Records []domain.IntelRecord `json:"records"`
}

type rawResponse struct {
	Count int              `json:"count"`
	Items []domain.RawItem `json:"items"`
}

type statusResponse struct {
	Records  int          `json:"records"`
	Critical int          `json:"critical"`
	Status   string       `json:"status"`
	LastScan *scan.Report `json:"last_scan,omitempty"`
}

func (h *Handler) listIntel(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "limit должен быть неотрицательным числом")
			return
		}
		limit = v
	}
	records := scan.SortByThreat(scan.FilterByLocation(h.svc.Active(), r.URL.Query().Get("loc")))
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	writeJSON(w, http.StatusOK, intelResponse{Count: len(records), Records: records})
}

func (h *Handler) listRaw(w http.ResponseWriter, r *http.Request) {
	items := h.svc.RawItems()
	writeJSON(w, http.StatusOK, rawResponse{Count: len(items), Items: items})
}

func (h *Handler) runScan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report := h.svc.Run(r.Context(), scan.TriggerManual)
	h.log.Info().Str("scan_id", report.ID).Dur("duration", time.Since(start)).Msg("web: скан по запросу")
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	records := h.svc.Active()
	resp := statusResponse{
		Records:  len(records),
		Critical: len(scan.Critical(records)),
		Status:   scan.Status(records),
	}
	if last, ok := h.svc.LastReport(); ok {
		resp.LastScan = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
