package http

import (
	"net/http"

	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
)

func (h *Handler) ListProcedures(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	pq := service.ProcedureQuery{
		PatientID:          q.uuid("patientId"),
		Status:             queryEnum(q, "status", repo.ProcedureStatus.Valid),
		ExpiringWithinDays: q.int("expiringWithinDays"),
	}
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.ListProcedures(r.Context(), principal(r), pq)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateProcedure(w http.ResponseWriter, r *http.Request) {
	var in service.CreateProcedureInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	procedure, err := h.clinic.CreateProcedure(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, procedure)
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	active := q.bool("active")
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.ListTemplates(r.Context(), active != nil && *active)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	tpl, err := h.clinic.GetTemplate(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, tpl)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTemplateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	tpl, err := h.clinic.CreateTemplate(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, tpl)
}

func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
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
	tpl, err := h.clinic.UpdateTemplate(r.Context(), principal(r), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, tpl)
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.clinic.DeleteTemplate(r.Context(), principal(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
