package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/storage"
	"github.com/gestaozabele/clinica/internal/util"
)

// Recorder recebe eventos de negócio para métricas.
type Recorder interface {
	PatientCreated()
	PatientTransition(transition string)
	ConsultationCompleted(outcome string)
	ProcedureCreated()
	LoginAttempt(result string)
	Upload(kind string, ok bool)
}

// NopRecorder descarta tudo.
type NopRecorder struct{}

func (NopRecorder) PatientCreated()              {}
func (NopRecorder) PatientTransition(string)     {}
func (NopRecorder) ConsultationCompleted(string) {}
func (NopRecorder) ProcedureCreated()            {}
func (NopRecorder) LoginAttempt(string)          {}
func (NopRecorder) Upload(string, bool)          {}

// ClinicService concentra as regras do CRM. Toda operação recebe o
// principal explicitamente.
type ClinicService struct {
	store    Store
	uploader storage.Uploader
	recorder Recorder
	now      util.Clock
}

// NewClinicService cria o serviço. uploader e recorder podem ser nil.
func NewClinicService(store Store, uploader storage.Uploader, recorder Recorder) *ClinicService {
	if uploader == nil {
		uploader = storage.NoopUploader{}
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &ClinicService{store: store, uploader: uploader, recorder: recorder, now: util.Now}
}

// SetClock troca o relógio (testes).
func (s *ClinicService) SetClock(clock util.Clock) {
	s.now = clock
}

// scope devolve o colaborador a que o principal está restrito, ou nil
// para administradores.
func scope(p auth.Principal) (*uuid.UUID, error) {
	if p.IsAdmin() {
		return nil, nil
	}
	if p.CollaboratorID == nil {
		return nil, ErrForbidden
	}
	id := *p.CollaboratorID
	return &id, nil
}

func requireAdmin(p auth.Principal) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func owns(scoped *uuid.UUID, owner *uuid.UUID) bool {
	if scoped == nil {
		return true
	}
	return owner != nil && *owner == *scoped
}

// patientFor carrega o paciente verificando o escopo do principal.
func patientFor(ctx context.Context, st Store, p auth.Principal, id uuid.UUID) (repo.PatientDetail, error) {
	scoped, err := scope(p)
	if err != nil {
		return repo.PatientDetail{}, err
	}
	patient, err := st.GetPatient(ctx, id)
	if err != nil {
		return repo.PatientDetail{}, err
	}
	if !owns(scoped, patient.CollaboratorID) {
		return repo.PatientDetail{}, ErrForbidden
	}
	return patient, nil
}

// collaboratorAccess libera admin ou o próprio colaborador.
func collaboratorAccess(p auth.Principal, collaboratorID uuid.UUID) error {
	if p.IsAdmin() {
		return nil
	}
	if p.CollaboratorID == nil || *p.CollaboratorID != collaboratorID {
		return ErrForbidden
	}
	return nil
}

// logActivity grava a trilha de auditoria dentro da mesma transação.
func logActivity(ctx context.Context, st Store, p auth.Principal, kind, description, entityType string, entityID uuid.UUID) error {
	userID := p.UserID
	arg := repo.CreateActivityParams{
		Type:        kind,
		Description: description,
		EntityType:  &entityType,
		EntityID:    &entityID,
	}
	if userID != uuid.Nil {
		arg.UserID = &userID
	}
	if _, err := st.CreateActivity(ctx, arg); err != nil {
		log.Error().Err(err).Str("type", kind).Msg("activity: falha ao registrar")
		return err
	}
	return nil
}

// IsNotFound facilita o mapeamento para 404 nos handlers.
func IsNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound)
}

func ptr[T any](v T) *T {
	return &v
}
