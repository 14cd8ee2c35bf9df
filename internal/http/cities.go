package http

import (
	"net/http"

	"github.com/gestaozabele/clinica/internal/service"
)

func (h *Handler) ListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.clinic.ListCities(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, cities)
}

func (h *Handler) GetCity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	city, err := h.clinic.GetCity(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, city)
}

func (h *Handler) CreateCity(w http.ResponseWriter, r *http.Request) {
	var in service.CreateCityInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	city, err := h.clinic.CreateCity(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, city)
}

func (h *Handler) UpdateCity(w http.ResponseWriter, r *http.Request) {
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
	city, err := h.clinic.UpdateCity(r.Context(), principal(r), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, city)
}

func (h *Handler) DeleteCity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.clinic.DeleteCity(r.Context(), principal(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
