package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/repo"
)

// Store é o acesso a dados usado pelos serviços. A implementação de
// produção é *repo.Queries; os testes usam servicetest.MemStore.
type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	CreateUser(ctx context.Context, arg repo.CreateUserParams) (repo.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (repo.User, error)
	GetUserByUsername(ctx context.Context, username string) (repo.User, error)
	ListUsers(ctx context.Context) ([]repo.User, error)
	UpdateUserRole(ctx context.Context, id uuid.UUID, role repo.Role) (repo.User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	CreateCity(ctx context.Context, arg repo.CreateCityParams) (repo.City, error)
	GetCity(ctx context.Context, id uuid.UUID) (repo.City, error)
	GetCityByName(ctx context.Context, name string) (repo.City, error)
	ListCities(ctx context.Context) ([]repo.City, error)
	UpdateCity(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.City, error)
	DeleteCity(ctx context.Context, id uuid.UUID) error

	CreateCollaborator(ctx context.Context, arg repo.CreateCollaboratorParams) (repo.Collaborator, error)
	GetCollaborator(ctx context.Context, id uuid.UUID) (repo.CollaboratorDetail, error)
	GetCollaboratorByUserID(ctx context.Context, userID uuid.UUID) (repo.Collaborator, error)
	ListCollaborators(ctx context.Context, cityID *uuid.UUID) ([]repo.CollaboratorDetail, error)
	UpdateCollaborator(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.Collaborator, error)
	DeleteCollaborator(ctx context.Context, id uuid.UUID) error
	CountCollaborators(ctx context.Context, cityID *uuid.UUID) (int, error)
	CollaboratorReferences(ctx context.Context, id uuid.UUID) (repo.CollaboratorRefs, error)

	CreatePatient(ctx context.Context, arg repo.CreatePatientParams) (repo.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (repo.PatientDetail, error)
	ListPatients(ctx context.Context, filter repo.PatientFilter) ([]repo.PatientDetail, error)
	CountPatients(ctx context.Context, filter repo.PatientFilter) (int, error)
	PatientStatusCounts(ctx context.Context, collaboratorID *uuid.UUID) ([]repo.PatientCount, error)
	UpdatePatient(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.Patient, error)
	DeletePatient(ctx context.Context, id uuid.UUID) error

	CreateTemplate(ctx context.Context, arg repo.CreateTemplateParams) (repo.ProcedureTemplate, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (repo.ProcedureTemplate, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]repo.ProcedureTemplate, error)
	UpdateTemplate(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.ProcedureTemplate, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	CreateProcedure(ctx context.Context, arg repo.CreateProcedureParams) (repo.Procedure, error)
	GetProcedure(ctx context.Context, id uuid.UUID) (repo.ProcedureDetail, error)
	ListProcedures(ctx context.Context, filter repo.ProcedureFilter) ([]repo.ProcedureDetail, error)
	CountProcedures(ctx context.Context, filter repo.ProcedureFilter) (int, error)
	ExpireProcedures(ctx context.Context, now time.Time) (int64, error)
	SumProcedureValue(ctx context.Context, collaboratorID *uuid.UUID, from, to *time.Time) (float64, error)
	TopPerformers(ctx context.Context, from, to *time.Time, limit int) ([]repo.TopPerformer, error)

	CreateEvent(ctx context.Context, arg repo.CreateEventParams) (repo.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (repo.EventDetail, error)
	ListEvents(ctx context.Context, filter repo.EventFilter) ([]repo.EventDetail, error)
	CountEvents(ctx context.Context, filter repo.EventFilter) (int, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.Event, error)

	CreateNote(ctx context.Context, arg repo.CreateNoteParams) (repo.PatientNote, error)
	ListNotes(ctx context.Context, patientID uuid.UUID) ([]repo.PatientNote, error)
	CreateFile(ctx context.Context, arg repo.CreateFileParams) (repo.PatientFile, error)
	ListFiles(ctx context.Context, patientID uuid.UUID) ([]repo.PatientFile, error)

	CreateTask(ctx context.Context, arg repo.CreateTaskParams) (repo.AdminTask, error)
	GetTask(ctx context.Context, id uuid.UUID) (repo.AdminTask, error)
	ListTasks(ctx context.Context, filter repo.TaskFilter) ([]repo.AdminTask, error)
	UpdateTask(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.AdminTask, error)

	UpsertPerformance(ctx context.Context, arg repo.UpsertPerformanceParams) (repo.PerformanceMetric, error)
	ListPerformance(ctx context.Context, collaboratorID uuid.UUID, from, to time.Time) ([]repo.PerformanceMetric, error)
	PerformanceRankings(ctx context.Context, from, to time.Time) ([]repo.PerformanceRanking, error)

	CreateProgress(ctx context.Context, arg repo.CreateProgressParams) (repo.PatientProgress, error)
	ListProgress(ctx context.Context, patientID uuid.UUID) ([]repo.PatientProgress, error)
	ListStalledPatients(ctx context.Context, collaboratorID *uuid.UUID) ([]repo.StalledPatient, error)
	CountStalledPatients(ctx context.Context, collaboratorID *uuid.UUID) (int, error)

	CreateActivity(ctx context.Context, arg repo.CreateActivityParams) (repo.ActivityLog, error)
	ListActivity(ctx context.Context, userID *uuid.UUID, limit int) ([]repo.ActivityLog, error)

	ListPasskeys(ctx context.Context, userID uuid.UUID) ([]repo.PasskeyCredential, error)
	GetPasskeyByCredentialID(ctx context.Context, credentialID []byte) (repo.PasskeyCredential, error)
	CreatePasskey(ctx context.Context, arg repo.CreatePasskeyParams) (repo.PasskeyCredential, error)
	UpdatePasskeyCounter(ctx context.Context, id uuid.UUID, signCount uint32, cloned bool) error
}

type pgStore struct {
	*repo.Queries
}

// NewStore adapta as Queries do Postgres à interface Store.
func NewStore(q *repo.Queries) Store {
	return pgStore{Queries: q}
}

func (s pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return s.Queries.InTx(ctx, func(q *repo.Queries) error {
		return fn(pgStore{Queries: q})
	})
}
