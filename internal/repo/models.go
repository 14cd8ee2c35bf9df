package repo

import (
	"time"

	"github.com/google/uuid"
)

// As tags db espelham as colunas e são usadas pelo UpdateSet.

// User é um login do sistema.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// City agrupa colaboradores e pacientes, com metas de receita opcionais.
type City struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	State         string    `json:"state" db:"state"`
	Description   *string   `json:"description" db:"description"`
	MonthlyGoal   *float64  `json:"monthlyGoal" db:"monthly_goal"`
	QuarterlyGoal *float64  `json:"quarterlyGoal" db:"quarterly_goal"`
	YearlyGoal    *float64  `json:"yearlyGoal" db:"yearly_goal"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Collaborator liga um usuário a uma cidade e às suas metas.
type Collaborator struct {
	ID               uuid.UUID `json:"id" db:"id"`
	UserID           uuid.UUID `json:"userId" db:"user_id"`
	CityID           uuid.UUID `json:"cityId" db:"city_id"`
	RevenueGoal      float64   `json:"revenueGoal" db:"revenue_goal"`
	ConsultationGoal int       `json:"consultationGoal" db:"consultation_goal"`
	IsActive         bool      `json:"isActive" db:"is_active"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// UserSummary é a parte pública do usuário em junções.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
}

// CitySummary é a cidade resumida em junções.
type CitySummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	State string    `json:"state"`
}

// CollaboratorDetail traz o colaborador com usuário e cidade.
type CollaboratorDetail struct {
	Collaborator
	User UserSummary `json:"user"`
	City CitySummary `json:"city"`
}

// CollaboratorSummary resume o responsável pelo paciente.
type CollaboratorSummary struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
}

type Patient struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	Name                   string          `json:"name" db:"name"`
	Phone                  *string         `json:"phone" db:"phone"`
	Email                  *string         `json:"email" db:"email"`
	CPF                    *string         `json:"cpf" db:"cpf"`
	BirthDate              *time.Time      `json:"birthDate" db:"birth_date"`
	Address                *string         `json:"address" db:"address"`
	CityID                 *uuid.UUID      `json:"cityId" db:"city_id"`
	CollaboratorID         *uuid.UUID      `json:"collaboratorId" db:"collaborator_id"`
	Classification         Classification  `json:"classification" db:"classification"`
	Status                 PatientStatus   `json:"status" db:"status"`
	FollowupStatus         *FollowupStatus `json:"followupStatus" db:"followup_status"`
	IsRegistrationComplete bool            `json:"isRegistrationComplete" db:"is_registration_complete"`
	LastConsultationDate   *time.Time      `json:"lastConsultationDate" db:"last_consultation_date"`
	PhotoURL               *string         `json:"photoUrl" db:"photo_url"`
	Notes                  *string         `json:"notes" db:"notes"`
	DeactivatedAt          *time.Time      `json:"deactivatedAt" db:"deactivated_at"`
	DeactivationReason     *string         `json:"deactivationReason" db:"deactivation_reason"`
	DeactivatedBy          *uuid.UUID      `json:"deactivatedBy" db:"deactivated_by"`
	CreatedAt              time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time       `json:"updatedAt" db:"updated_at"`
}

// PatientDetail traz cidade e responsável.
type PatientDetail struct {
	Patient
	City         *CitySummary         `json:"city"`
	Collaborator *CollaboratorSummary `json:"collaborator"`
}

type ProcedureTemplate struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	DefaultPrice float64   `json:"defaultPrice" db:"default_price"`
	ValidityDays int       `json:"validityDays" db:"validity_days"`
	Category     *string   `json:"category" db:"category"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type Procedure struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	PatientID      uuid.UUID       `json:"patientId" db:"patient_id"`
	CollaboratorID uuid.UUID       `json:"collaboratorId" db:"collaborator_id"`
	TemplateID     *uuid.UUID      `json:"templateId" db:"template_id"`
	Name           string          `json:"name" db:"name"`
	Value          float64         `json:"value" db:"value"`
	PerformedDate  time.Time       `json:"performedDate" db:"performed_date"`
	ValidUntil     *time.Time      `json:"validUntil" db:"valid_until"`
	ClosedDate     *time.Time      `json:"closedDate" db:"closed_date"`
	Status         ProcedureStatus `json:"status" db:"status"`
	Notes          *string         `json:"notes" db:"notes"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" db:"updated_at"`
}

// EffectiveStatus trata como vencido o procedimento ativo fora da validade.
func (p Procedure) EffectiveStatus(now time.Time) ProcedureStatus {
	if p.Status == ProcedureActive && p.ValidUntil != nil && p.ValidUntil.Before(now) {
		return ProcedureExpired
	}
	return p.Status
}

// ProcedureDetail traz nomes de paciente e colaborador.
type ProcedureDetail struct {
	Procedure
	PatientName      string `json:"patientName"`
	CollaboratorName string `json:"collaboratorName"`
}

type Event struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	CollaboratorID    uuid.UUID       `json:"collaboratorId" db:"collaborator_id"`
	PatientID         *uuid.UUID      `json:"patientId" db:"patient_id"`
	ProcedureID       *uuid.UUID      `json:"procedureId" db:"procedure_id"`
	Title             string          `json:"title" db:"title"`
	Description       *string         `json:"description" db:"description"`
	Type              EventType       `json:"type" db:"type"`
	Status            EventStatus     `json:"status" db:"status"`
	StartDate         time.Time       `json:"startDate" db:"start_date"`
	EndDate           *time.Time      `json:"endDate" db:"end_date"`
	CompletionType    *CompletionType `json:"completionType" db:"completion_type"`
	CompletionNotes   *string         `json:"completionNotes" db:"completion_notes"`
	CompletedAt       *time.Time      `json:"completedAt" db:"completed_at"`
	RequiresFeedback  bool            `json:"requiresFeedback" db:"requires_feedback"`
	FeedbackCompleted bool            `json:"feedbackCompleted" db:"feedback_completed"`
	FeedbackQuestion  *string         `json:"feedbackQuestion" db:"feedback_question"`
	FeedbackResponse  *string         `json:"feedbackResponse" db:"feedback_response"`
	PatientResponded  bool            `json:"patientResponded" db:"patient_responded"`
	FeedbackDate      *time.Time      `json:"feedbackDate" db:"feedback_date"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}

// EventDetail traz nomes para a agenda.
type EventDetail struct {
	Event
	PatientName      *string `json:"patientName"`
	CollaboratorName string  `json:"collaboratorName"`
}

type PatientNote struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patientId"`
	CollaboratorID *uuid.UUID `json:"collaboratorId"`
	Type           NoteType   `json:"type"`
	Title          *string    `json:"title"`
	Content        string     `json:"content"`
	Amount         *float64   `json:"amount"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type PatientFile struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patientId"`
	UploadedBy  uuid.UUID `json:"uploadedBy"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AdminTask struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	Title          string       `json:"title" db:"title"`
	Description    *string      `json:"description" db:"description"`
	CollaboratorID uuid.UUID    `json:"collaboratorId" db:"collaborator_id"`
	PatientID      *uuid.UUID   `json:"patientId" db:"patient_id"`
	CreatedBy      *uuid.UUID   `json:"createdBy" db:"created_by"`
	Priority       TaskPriority `json:"priority" db:"priority"`
	Status         TaskStatus   `json:"status" db:"status"`
	DueDate        *time.Time   `json:"dueDate" db:"due_date"`
	Recurrence     *string      `json:"recurrence" db:"recurrence"`
	CompletedAt    *time.Time   `json:"completedAt" db:"completed_at"`
	CreatedAt      time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time    `json:"updatedAt" db:"updated_at"`
}

// PerformanceMetric é o retrato diário de um colaborador.
type PerformanceMetric struct {
	ID                  uuid.UUID `json:"id"`
	CollaboratorID      uuid.UUID `json:"collaboratorId"`
	Date                time.Time `json:"date"`
	Contacts            int       `json:"contacts"`
	Appointments        int       `json:"appointments"`
	ProceduresCompleted int       `json:"proceduresCompleted"`
	Revenue             float64   `json:"revenue"`
	Feedbacks           int       `json:"feedbacks"`
	TasksCompleted      int       `json:"tasksCompleted"`
	SatisfactionScore   *float64  `json:"satisfactionScore"`
	CreatedAt           time.Time `json:"createdAt"`
}

// PerformanceRanking soma os retratos diários de um período.
type PerformanceRanking struct {
	CollaboratorID      uuid.UUID `json:"collaboratorId"`
	Name                string    `json:"name"`
	Contacts            int       `json:"contacts"`
	Appointments        int       `json:"appointments"`
	ProceduresCompleted int       `json:"proceduresCompleted"`
	Revenue             float64   `json:"revenue"`
	Feedbacks           int       `json:"feedbacks"`
	TasksCompleted      int       `json:"tasksCompleted"`
	AvgSatisfaction     *float64  `json:"avgSatisfaction"`
}

// PatientProgress é uma entrada do histórico de acompanhamento (só inserção).
type PatientProgress struct {
	ID                   uuid.UUID  `json:"id"`
	PatientID            uuid.UUID  `json:"patientId"`
	CollaboratorID       *uuid.UUID `json:"collaboratorId"`
	Status               string     `json:"status"`
	PreviousStatus       *string    `json:"previousStatus"`
	IsStalled            bool       `json:"isStalled"`
	StallReason          *string    `json:"stallReason"`
	DaysSinceLastContact int        `json:"daysSinceLastContact"`
	NextAction           *string    `json:"nextAction"`
	NextActionDate       *time.Time `json:"nextActionDate"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// StalledPatient é um paciente cujo último progresso está marcado como parado.
type StalledPatient struct {
	PatientID            uuid.UUID  `json:"patientId"`
	PatientName          string     `json:"patientName"`
	CollaboratorID       *uuid.UUID `json:"collaboratorId"`
	CollaboratorName     *string    `json:"collaboratorName"`
	StallReason          *string    `json:"stallReason"`
	DaysSinceLastContact int        `json:"daysSinceLastContact"`
	NextAction           *string    `json:"nextAction"`
	FlaggedAt            time.Time  `json:"flaggedAt"`
}

type ActivityLog struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"userId"`
	UserName    *string    `json:"userName,omitempty"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	EntityType  *string    `json:"entityType"`
	EntityID    *uuid.UUID `json:"entityId"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// TopPerformer é um colaborador no ranking de receita.
type TopPerformer struct {
	CollaboratorID uuid.UUID `json:"collaboratorId"`
	Name           string    `json:"name"`
	Revenue        float64   `json:"revenue"`
	Procedures     int       `json:"procedures"`
}

// PatientCount agrupa pacientes por status, acompanhamento e cadastro.
type PatientCount struct {
	Status                 PatientStatus
	FollowupStatus         string
	IsRegistrationComplete bool
	Count                  int
}

// PasskeyCredential é uma credencial WebAuthn do usuário.
type PasskeyCredential struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	CredentialID []byte
	PublicKey    []byte
	SignCount    uint32
	Transports   []string
	AAGUID       []byte
	Nickname     *string
	Cloned       bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
