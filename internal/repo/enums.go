package repo

// Role é o papel do usuário.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "collaborator"
)

// Valid indica se o papel é conhecido.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCollaborator
}

// Classification é a faixa de prioridade do paciente.
type Classification string

const (
	ClassificationBronze  Classification = "bronze"
	ClassificationSilver  Classification = "silver"
	ClassificationGold    Classification = "gold"
	ClassificationDiamond Classification = "diamond"
)

var classificationRank = map[Classification]int{
	ClassificationBronze:  1,
	ClassificationSilver:  2,
	ClassificationGold:    3,
	ClassificationDiamond: 4,
}

// Valid indica se a classificação é conhecida.
func (c Classification) Valid() bool {
	_, ok := classificationRank[c]
	return ok
}

// Rank devolve a posição na ordem bronze < silver < gold < diamond, ou 0.
func (c Classification) Rank() int {
	return classificationRank[c]
}

// CompareClassification devolve -1, 0 ou 1.
func CompareClassification(a, b Classification) int {
	ra, rb := a.Rank(), b.Rank()
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

// PatientStatus é o estado cadastral do paciente.
type PatientStatus string

const (
	PatientActive      PatientStatus = "active"
	PatientFollowup    PatientStatus = "followup"
	PatientReturn      PatientStatus = "return"
	PatientInactive    PatientStatus = "inactive"
	PatientDeactivated PatientStatus = "deactivated"
)

// Valid indica se o status é conhecido.
func (s PatientStatus) Valid() bool {
	switch s {
	case PatientActive, PatientFollowup, PatientReturn, PatientInactive, PatientDeactivated:
		return true
	}
	return false
}

// FollowupStatus é o resultado registrado após uma consulta.
type FollowupStatus string

const (
	FollowupNoClosure       FollowupStatus = "no_closure"
	FollowupMissed          FollowupStatus = "missed"
	FollowupActive          FollowupStatus = "active"
	FollowupProcedureClosed FollowupStatus = "procedure_closed"
)

// Valid indica se o status de acompanhamento é conhecido.
func (s FollowupStatus) Valid() bool {
	switch s {
	case FollowupNoClosure, FollowupMissed, FollowupActive, FollowupProcedureClosed:
		return true
	}
	return false
}

// ProcedureStatus é o estado de um procedimento.
type ProcedureStatus string

const (
	ProcedureActive  ProcedureStatus = "active"
	ProcedureClosed  ProcedureStatus = "closed"
	ProcedureExpired ProcedureStatus = "expired"
)

// Valid indica se o status é conhecido.
func (s ProcedureStatus) Valid() bool {
	return s == ProcedureActive || s == ProcedureClosed || s == ProcedureExpired
}

// EventType classifica o compromisso agendado.
type EventType string

const (
	EventConsultation EventType = "consultation"
	EventProcedure    EventType = "procedure"
	EventFollowup     EventType = "followup"
	EventReturn       EventType = "return"
	EventTask         EventType = "task"
)

// Valid indica se o tipo é conhecido.
func (t EventType) Valid() bool {
	switch t {
	case EventConsultation, EventProcedure, EventFollowup, EventReturn, EventTask:
		return true
	}
	return false
}

// EventStatus é o estado do compromisso.
type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventConfirmed EventStatus = "confirmed"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// Valid indica se o status é conhecido.
func (s EventStatus) Valid() bool {
	switch s {
	case EventPending, EventConfirmed, EventCompleted, EventCancelled:
		return true
	}
	return false
}

// Open indica compromisso ainda não resolvido.
func (s EventStatus) Open() bool {
	return s == EventPending || s == EventConfirmed
}

// CompletionType é o desfecho de uma consulta.
type CompletionType string

const (
	CompletionClosedProcedure CompletionType = "closed_procedure"
	CompletionNoClosure       CompletionType = "no_closure"
	CompletionMissed          CompletionType = "missed"
)

// ParseCompletionType aceita procedure_closed como sinônimo de closed_procedure.
func ParseCompletionType(raw string) (CompletionType, bool) {
	switch raw {
	case string(CompletionClosedProcedure), "procedure_closed":
		return CompletionClosedProcedure, true
	case string(CompletionNoClosure):
		return CompletionNoClosure, true
	case string(CompletionMissed):
		return CompletionMissed, true
	}
	return "", false
}

// NoteType marca entradas da linha do tempo do paciente.
type NoteType string

const (
	NoteGeneral     NoteType = "note"
	NoteProcedure   NoteType = "procedure"
	NoteAppointment NoteType = "appointment"
	NoteMissed      NoteType = "missed"
	NotePayment     NoteType = "payment"
	NoteStatus      NoteType = "status"
	NoteFile        NoteType = "file"
)

// Valid indica se o tipo é conhecido.
func (t NoteType) Valid() bool {
	switch t {
	case NoteGeneral, NoteProcedure, NoteAppointment, NoteMissed, NotePayment, NoteStatus, NoteFile:
		return true
	}
	return false
}

// TaskPriority é a prioridade de uma tarefa administrativa.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Valid indica se a prioridade é conhecida.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TaskStatus é o andamento de uma tarefa administrativa.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Valid indica se o status é conhecido.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}
