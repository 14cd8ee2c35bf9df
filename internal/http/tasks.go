package http

import (
	"net/http"

	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
)

func taskFilter(q *query) repo.TaskFilter {
	return repo.TaskFilter{
		CollaboratorID: q.uuid("collaboratorId"),
		Status:         queryEnum(q, "status", repo.TaskStatus.Valid),
		Priority:       queryEnum(q, "priority", repo.TaskPriority.Valid),
	}
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := taskFilter(q)
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.ListTasks(r.Context(), principal(r), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var in service.TaskStatusInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	task, err := h.clinic.UpdateTaskStatus(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) AdminListTasks(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := taskFilter(q)
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.AdminListTasks(r.Context(), principal(r), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTaskInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	task, err := h.clinic.CreateTask(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, task)
}

func (h *Handler) AdminUpdateTask(w http.ResponseWriter, r *http.Request) {
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
	task, err := h.clinic.AdminUpdateTask(r.Context(), principal(r), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, task)
}
