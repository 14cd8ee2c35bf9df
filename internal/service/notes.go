package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/storage"
)

const (
	MaxPhotoBytes = 5 << 20
	MaxFileBytes  = 10 << 20
)

type CreateNoteInput struct {
	Type    repo.NoteType `json:"type"`
	Title   *string       `json:"title"`
	Content string        `json:"content"`
	Amount  *Number       `json:"amount"`
}

// FileUpload é um arquivo recebido via multipart.
type FileUpload struct {
	FileName    string
	ContentType string
	Body        []byte
}

func (s *ClinicService) ListNotes(ctx context.Context, p auth.Principal, patientID uuid.UUID) ([]repo.PatientNote, error) {
	if _, err := patientFor(ctx, s.store, p, patientID); err != nil {
		return nil, err
	}
	return s.store.ListNotes(ctx, patientID)
}

// CreateNote acrescenta uma entrada na linha do tempo do paciente.
func (s *ClinicService) CreateNote(ctx context.Context, p auth.Principal, patientID uuid.UUID, in CreateNoteInput) (repo.PatientNote, error) {
	var errs issues
	kind := in.Type
	if kind == "" {
		kind = repo.NoteGeneral
	}
	if !kind.Valid() {
		errs.add("type", "valor inválido: "+string(kind))
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		errs.add("content", "obrigatório")
	}
	if err := errs.err(); err != nil {
		return repo.PatientNote{}, err
	}

	var note repo.PatientNote
	err := s.store.WithTx(ctx, func(st Store) error {
		patient, err := patientFor(ctx, st, p, patientID)
		if err != nil {
			return err
		}
		note, err = st.CreateNote(ctx, repo.CreateNoteParams{
			PatientID:      patientID,
			CollaboratorID: p.CollaboratorID,
			Type:           kind,
			Title:          trimmed(in.Title),
			Content:        content,
			Amount:         in.Amount.ptr(),
		})
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "note_created", "Nota adicionada a "+patient.Name, "patient", patientID)
	})
	return note, err
}

// UploadPhoto envia a foto ao storage e grava a URL no paciente.
func (s *ClinicService) UploadPhoto(ctx context.Context, p auth.Principal, patientID uuid.UUID, file FileUpload) (repo.Patient, error) {
	if _, err := patientFor(ctx, s.store, p, patientID); err != nil {
		return repo.Patient{}, err
	}
	contentType := detectContentType(file)
	if !strings.HasPrefix(contentType, "image/") {
		return repo.Patient{}, invalid("a foto deve ser uma imagem")
	}
	if len(file.Body) > MaxPhotoBytes {
		return repo.Patient{}, invalid("a foto deve ter no máximo 5 MB")
	}

	result, err := s.uploader.Upload(ctx, storage.UploadInput{
		Key:          storage.PatientKey(patientID, "photo", file.FileName),
		Body:         file.Body,
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000",
	})
	s.recorder.Upload("photo", err == nil)
	if err != nil {
		return repo.Patient{}, err
	}

	var patient repo.Patient
	err = s.store.WithTx(ctx, func(st Store) error {
		var set repo.UpdateSet
		set.Set("photo_url", &result.URL)
		var err error
		patient, err = st.UpdatePatient(ctx, patientID, set)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "patient_photo_updated", "Foto de "+patient.Name+" atualizada", "patient", patientID)
	})
	return patient, err
}

func (s *ClinicService) ListFiles(ctx context.Context, p auth.Principal, patientID uuid.UUID) ([]repo.PatientFile, error) {
	if _, err := patientFor(ctx, s.store, p, patientID); err != nil {
		return nil, err
	}
	return s.store.ListFiles(ctx, patientID)
}

// UploadFile anexa um arquivo ao paciente e registra a nota correspondente.
func (s *ClinicService) UploadFile(ctx context.Context, p auth.Principal, patientID uuid.UUID, file FileUpload) (repo.PatientFile, error) {
	patient, err := patientFor(ctx, s.store, p, patientID)
	if err != nil {
		return repo.PatientFile{}, err
	}
	if len(file.Body) == 0 {
		return repo.PatientFile{}, invalid("arquivo vazio")
	}
	if len(file.Body) > MaxFileBytes {
		return repo.PatientFile{}, invalid("o arquivo deve ter no máximo 10 MB")
	}
	name := strings.TrimSpace(file.FileName)
	if name == "" {
		name = "arquivo"
	}
	contentType := detectContentType(file)

	result, err := s.uploader.Upload(ctx, storage.UploadInput{
		Key:         storage.PatientKey(patientID, "files", name),
		Body:        file.Body,
		ContentType: contentType,
	})
	s.recorder.Upload("file", err == nil)
	if err != nil {
		return repo.PatientFile{}, err
	}

	var saved repo.PatientFile
	err = s.store.WithTx(ctx, func(st Store) error {
		var err error
		saved, err = st.CreateFile(ctx, repo.CreateFileParams{
			PatientID:   patientID,
			UploadedBy:  p.UserID,
			FileName:    name,
			ContentType: contentType,
			SizeBytes:   int64(len(file.Body)),
			URL:         result.URL,
		})
		if err != nil {
			return err
		}
		if _, err := st.CreateNote(ctx, repo.CreateNoteParams{
			PatientID:      patientID,
			CollaboratorID: p.CollaboratorID,
			Type:           repo.NoteFile,
			Title:          ptr("Arquivo anexado"),
			Content:        name,
		}); err != nil {
			return err
		}
		return logActivity(ctx, st, p, "patient_file_uploaded", "Arquivo "+name+" anexado a "+patient.Name, "patient", patientID)
	})
	return saved, err
}

func detectContentType(file FileUpload) string {
	ct := strings.TrimSpace(file.ContentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(file.Body)
	}
	return ct
}
