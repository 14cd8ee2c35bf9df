package http

import (
	"net/http"

	"github.com/gestaozabele/clinica/internal/service"
)

// DashboardMetrics devolve contagens globais para o admin e a própria
// carteira para o colaborador.
func (h *Handler) DashboardMetrics(w http.ResponseWriter, r *http.Request) {
	dash, err := h.clinic.Dashboard(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, dash)
}

func (h *Handler) DashboardActivity(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	limit := q.int("limit")
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.Activity(r.Context(), principal(r), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	from, to := q.date("from"), q.date("to")
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	stats, err := h.clinic.GlobalStats(r.Context(), principal(r), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) StalledPatients(w http.ResponseWriter, r *http.Request) {
	list, err := h.clinic.StalledPatients(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) PerformanceRankings(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	from, to := q.date("from"), q.date("to")
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.PerformanceRankings(r.Context(), principal(r), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) UpsertPerformance(w http.ResponseWriter, r *http.Request) {
	var in service.UpsertPerformanceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	metric, err := h.clinic.UpsertPerformance(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, metric)
}
