package repo

import (
	"time"

	"github.com/google/uuid"
)

type CreateUserParams struct {
	Username     string
	PasswordHash string
	Name         string
	Role         Role
}

type CreateCityParams struct {
	Name          string
	State         string
	Description   *string
	MonthlyGoal   *float64
	QuarterlyGoal *float64
	YearlyGoal    *float64
}

type CreateCollaboratorParams struct {
	UserID           uuid.UUID
	CityID           uuid.UUID
	RevenueGoal      float64
	ConsultationGoal int
	IsActive         bool
}

type CreatePatientParams struct {
	Name                   string
	Phone                  *string
	Email                  *string
	CPF                    *string
	BirthDate              *time.Time
	Address                *string
	CityID                 *uuid.UUID
	CollaboratorID         *uuid.UUID
	Classification         Classification
	Status                 PatientStatus
	IsRegistrationComplete bool
	Notes                  *string
}

// PatientFilter restringe listagens e contagens de pacientes.
type PatientFilter struct {
	CollaboratorID         *uuid.UUID
	CityID                 *uuid.UUID
	Status                 *PatientStatus
	ExcludeStatus          *PatientStatus
	FollowupStatus         *FollowupStatus
	IsRegistrationComplete *bool
	Classification         *Classification
	Search                 string
	Limit                  int
	Offset                 int
}

type CreateTemplateParams struct {
	Name         string
	DefaultPrice float64
	ValidityDays int
	Category     *string
	IsActive     bool
}

type CreateProcedureParams struct {
	PatientID      uuid.UUID
	CollaboratorID uuid.UUID
	TemplateID     *uuid.UUID
	Name           string
	Value          float64
	PerformedDate  time.Time
	ValidUntil     *time.Time
	Status         ProcedureStatus
	Notes          *string
}

// ProcedureFilter usa Now para calcular o status efetivo (vencido).
type ProcedureFilter struct {
	CollaboratorID *uuid.UUID
	PatientID      *uuid.UUID
	TemplateID     *uuid.UUID
	Status         *ProcedureStatus
	ExpiringBefore *time.Time
	Now            time.Time
}

type CreateEventParams struct {
	CollaboratorID   uuid.UUID
	PatientID        *uuid.UUID
	ProcedureID      *uuid.UUID
	Title            string
	Description      *string
	Type             EventType
	Status           EventStatus
	StartDate        time.Time
	EndDate          *time.Time
	RequiresFeedback bool
	FeedbackQuestion *string
}

// EventFilter restringe a agenda. From é inclusivo e To exclusivo.
type EventFilter struct {
	CollaboratorID   *uuid.UUID
	PatientID        *uuid.UUID
	Status           *EventStatus
	Type             *EventType
	From             *time.Time
	To               *time.Time
	OpenOnly         bool
	ExcludeCancelled bool
	Limit            int
}

type CreateNoteParams struct {
	PatientID      uuid.UUID
	CollaboratorID *uuid.UUID
	Type           NoteType
	Title          *string
	Content        string
	Amount         *float64
}

type CreateFileParams struct {
	PatientID   uuid.UUID
	UploadedBy  uuid.UUID
	FileName    string
	ContentType string
	SizeBytes   int64
	URL         string
}

type CreateTaskParams struct {
	Title          string
	Description    *string
	CollaboratorID uuid.UUID
	PatientID      *uuid.UUID
	CreatedBy      *uuid.UUID
	Priority       TaskPriority
	Status         TaskStatus
	DueDate        *time.Time
	Recurrence     *string
}

type TaskFilter struct {
	CollaboratorID *uuid.UUID
	Status         *TaskStatus
	Priority       *TaskPriority
}

type UpsertPerformanceParams struct {
	CollaboratorID      uuid.UUID
	Date                time.Time
	Contacts            int
	Appointments        int
	ProceduresCompleted int
	Revenue             float64
	Feedbacks           int
	TasksCompleted      int
	SatisfactionScore   *float64
}

type CreateProgressParams struct {
	PatientID            uuid.UUID
	CollaboratorID       *uuid.UUID
	Status               string
	PreviousStatus       *string
	IsStalled            bool
	StallReason          *string
	DaysSinceLastContact int
	NextAction           *string
	NextActionDate       *time.Time
}

type CreateActivityParams struct {
	UserID      *uuid.UUID
	Type        string
	Description string
	EntityType  *string
	EntityID    *uuid.UUID
}

type CreatePasskeyParams struct {
	UserID       uuid.UUID
	CredentialID []byte
	PublicKey    []byte
	SignCount    uint32
	Transports   []string
	AAGUID       []byte
	Nickname     *string
	Cloned       bool
}
