package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/gestaozabele/clinica/internal/http/middleware"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
)

func (h *Handler) patientRoutes(r chi.Router) {
	r.Get("/", h.ListPatients)
	r.Post("/", h.CreatePatient)
	for _, list := range []service.PatientList{
		service.ListIncomplete,
		service.ListDeactivated,
		service.ListMissed,
		service.ListNoClosure,
		service.ListActive,
	} {
		r.Get("/"+string(list), h.patientShortcut(list))
	}

	r.Route("/{id}", func(p chi.Router) {
		p.Get("/", h.GetPatient)
		p.Put("/", h.UpdatePatient)
		p.Patch("/", h.UpdatePatient)
		p.With(httpmiddleware.RequireAdmin).Delete("/", h.DeletePatient)

		p.Post("/deactivate", h.DeactivatePatient)
		p.Post("/reactivate", h.ReactivatePatient)
		p.Post("/complete-registration", h.CompleteRegistration)

		p.Get("/notes", h.ListNotes)
		p.Post("/notes", h.CreateNote)
		p.Post("/photo", h.UploadPhoto)
		p.Get("/files", h.ListFiles)
		p.Post("/files", h.UploadFile)
		p.Get("/procedures", h.ListPatientProcedures)
		p.Get("/progress", h.ListProgress)
		p.Post("/progress", h.CreateProgress)
	})
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := repo.PatientFilter{
		CityID:                 q.uuid("cityId"),
		CollaboratorID:         q.uuid("collaboratorId"),
		Status:                 queryEnum(q, "status", repo.PatientStatus.Valid),
		FollowupStatus:         queryEnum(q, "followupStatus", repo.FollowupStatus.Valid),
		Classification:         queryEnum(q, "classification", repo.Classification.Valid),
		IsRegistrationComplete: q.bool("isRegistrationComplete"),
		Search:                 q.str("search"),
		Limit:                  q.int("limit"),
		Offset:                 q.int("offset"),
	}
	if err := q.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := h.clinic.ListPatientsPage(r.Context(), principal(r), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writePage(w, page)
}

func (h *Handler) patientShortcut(list service.PatientList) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		limit, offset := q.int("limit"), q.int("offset")
		if err := q.err(); err != nil {
			writeServiceError(w, r, err)
			return
		}
		page, err := h.clinic.ListPatientShortcut(r.Context(), principal(r), list, limit, offset)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writePage(w, page)
	}
}

// writePage devolve os itens no envelope e a paginação nos headers.
func writePage(w http.ResponseWriter, page service.PatientPage) {
	h := w.Header()
	h.Set("X-Total-Count", strconv.Itoa(page.Total))
	h.Set("X-Limit", strconv.Itoa(page.Limit))
	h.Set("X-Offset", strconv.Itoa(page.Offset))
	WriteJSON(w, http.StatusOK, page.Items)
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	patient, err := h.clinic.GetPatient(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, patient)
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var in service.CreatePatientInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	patient, err := h.clinic.CreatePatient(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, patient)
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
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
	patient, err := h.clinic.UpdatePatient(r.Context(), principal(r), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, patient)
}

func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.clinic.DeletePatient(r.Context(), principal(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) DeactivatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var in service.DeactivateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	patient, err := h.clinic.DeactivatePatient(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, patient)
}

func (h *Handler) ReactivatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var in service.ReactivateInput
	if err := decodeOptionalJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	patient, err := h.clinic.ReactivatePatient(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, patient)
}

func (h *Handler) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var in service.CompleteRegistrationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	patient, err := h.clinic.CompleteRegistration(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, patient)
}

func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	notes, err := h.clinic.ListNotes(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, notes)
}

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var in service.CreateNoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	note, err := h.clinic.CreateNote(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, note)
}

func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	file, err := readMultipartFile(w, r, "photo", service.MaxPhotoBytes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	patient, err := h.clinic.UploadPhoto(r.Context(), principal(r), id, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, patient)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	files, err := h.clinic.ListFiles(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, files)
}

func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	file, err := readMultipartFile(w, r, "file", service.MaxFileBytes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	saved, err := h.clinic.UploadFile(r.Context(), principal(r), id, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, saved)
}

func (h *Handler) ListPatientProcedures(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.ListPatientProcedures(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) ListProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.clinic.ListProgress(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var in service.CreateProgressInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	progress, err := h.clinic.CreateProgress(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, progress)
}

// readMultipartFile lê o campo do formulário até limit+1 bytes; o serviço
// recusa o que passar de limit.
func readMultipartFile(w http.ResponseWriter, r *http.Request, field string, limit int64) (service.FileUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return service.FileUpload{}, &service.ValidationError{Message: "arquivo muito grande"}
		}
		return service.FileUpload{}, &service.ValidationError{Message: "formulário multipart inválido"}
	}
	f, header, err := r.FormFile(field)
	if err != nil {
		return service.FileUpload{}, &service.ValidationError{
			Message: "arquivo ausente",
			Issues:  []service.Issue{{Field: field, Message: "obrigatório"}},
		}
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return service.FileUpload{}, err
	}
	return service.FileUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
