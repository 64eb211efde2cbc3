package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"drocsid/core/log"
	"drocsid/core/metrics"
	"drocsid/models"
)

// StatusSource reports the live client state
type StatusSource interface {
	Status() models.StatusReport
}

type StatusHandler struct {
	source StatusSource
}

func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

// SetupEndpoints registers the status routes on router
func (h *StatusHandler) SetupEndpoints(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/state", h.HandleState).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// HandleHealth answers 200 while the gateway is connected and 503 otherwise
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.source.Status()
	status := http.StatusOK
	if report.Gateway.State != "connected" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSONResponse(w, status, map[string]string{"status": report.Gateway.State})
}

func (h *StatusHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.source.Status())
}

func (h *StatusHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("❌ Failed to encode JSON response", "error", err)
	}
}
