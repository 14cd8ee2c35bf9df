package http

import (
	"net/http"

	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
)

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := repo.EventFilter{
		PatientID:      q.uuid("patientId"),
		CollaboratorID: q.uuid("collaboratorId"),
		Status:         queryEnum(q, "status", repo.EventStatus.Valid),
		Type:           queryEnum(q, "type", repo.EventType.Valid),
		From:           q.date("from"),
		To:             q.date("to"),
		Limit:          q.int("limit"),
	}
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.ListEvents(r.Context(), principal(r), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	limit := q.int("limit")
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.UpcomingEvents(r.Context(), principal(r), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) PendingEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.clinic.PendingEvents(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	event, err := h.clinic.GetEvent(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in service.CreateEventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	event, err := h.clinic.CreateEvent(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
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
	event, err := h.clinic.UpdateEvent(r.Context(), principal(r), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, event)
}

// CompleteEvent registra o desfecho da consulta numa única transação.
func (h *Handler) CompleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var in service.ConsultationResultInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.clinic.CompleteEvent(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var in service.FeedbackInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	event, err := h.clinic.RecordFeedback(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, event)
}
