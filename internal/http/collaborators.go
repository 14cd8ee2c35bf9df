package http

import (
	"net/http"

	"github.com/gestaozabele/clinica/internal/service"
)

func (h *Handler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	cityID := q.uuid("cityId")
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.ListCollaborators(r.Context(), principal(r), cityID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) GetCollaborator(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	collab, err := h.clinic.GetCollaborator(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, collab)
}

func (h *Handler) CreateCollaborator(w http.ResponseWriter, r *http.Request) {
	var in service.CreateCollaboratorInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	collab, err := h.clinic.CreateCollaborator(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, collab)
}

func (h *Handler) UpdateCollaborator(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var patch service.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeServiceError(w, r, err)
		return
	}
	collab, err := h.clinic.UpdateCollaborator(r.Context(), principal(r), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, collab)
}

func (h *Handler) DeleteCollaborator(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.clinic.DeleteCollaborator(r.Context(), principal(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) CollaboratorDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	dash, err := h.clinic.CollaboratorDashboard(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, dash)
}

func (h *Handler) CollaboratorMetrics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	m, err := h.clinic.CollaboratorMetrics(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) CollaboratorPerformance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	q := newQuery(r)
	from, to := q.date("from"), q.date("to")
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.ListPerformance(r.Context(), principal(r), id, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}
