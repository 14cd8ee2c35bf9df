package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
)

type CreateEventInput struct {
	CollaboratorID   *uuid.UUID       `json:"collaboratorId"`
	PatientID        *uuid.UUID       `json:"patientId"`
	ProcedureID      *uuid.UUID       `json:"procedureId"`
	Title            string           `json:"title"`
	Description      *string          `json:"description"`
	Type             repo.EventType   `json:"type"`
	Status           repo.EventStatus `json:"status"`
	StartDate        *Date            `json:"startDate"`
	EndDate          *Date            `json:"endDate"`
	RequiresFeedback bool             `json:"requiresFeedback"`
	FeedbackQuestion *string          `json:"feedbackQuestion"`
}

type FeedbackInput struct {
	FeedbackResponse  *string `json:"feedbackResponse"`
	PatientResponded  *bool   `json:"patientResponded"`
	FeedbackCompleted *bool   `json:"feedbackCompleted"`
}

// Conclusão passa pelo PATCH /complete.
var eventPatch = patchSpec{
	"title":            {column: "title", decode: text},
	"description":      {column: "description", decode: optText},
	"type":             {column: "type", decode: enum(repo.EventType.Valid)},
	"status":           {column: "status", decode: enum(repo.EventStatus.Valid)},
	"startDate":        {column: "start_date", decode: date},
	"endDate":          {column: "end_date", decode: optDate},
	"patientId":        {column: "patient_id", decode: optUUID},
	"requiresFeedback": {column: "requires_feedback", decode: boolean},
	"feedbackQuestion": {column: "feedback_question", decode: optText},
}

func (s *ClinicService) ListEvents(ctx context.Context, p auth.Principal, filter repo.EventFilter) ([]repo.EventDetail, error) {
	scoped, err := scope(p)
	if err != nil {
		return nil, err
	}
	if scoped != nil {
		filter.CollaboratorID = scoped
	}
	return s.store.ListEvents(ctx, filter)
}

// UpcomingEvents devolve os próximos compromissos em aberto.
func (s *ClinicService) UpcomingEvents(ctx context.Context, p auth.Principal, limit int) ([]repo.EventDetail, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	now := s.now()
	return s.ListEvents(ctx, p, repo.EventFilter{From: &now, OpenOnly: true, Limit: limit})
}

// PendingEvents devolve compromissos que já passaram sem conclusão.
func (s *ClinicService) PendingEvents(ctx context.Context, p auth.Principal) ([]repo.EventDetail, error) {
	now := s.now()
	return s.ListEvents(ctx, p, repo.EventFilter{To: &now, OpenOnly: true})
}

func (s *ClinicService) GetEvent(ctx context.Context, p auth.Principal, id uuid.UUID) (repo.EventDetail, error) {
	return s.eventFor(ctx, s.store, p, id)
}

// CreateEvent agenda um compromisso. Colaboradores só agendam para si.
func (s *ClinicService) CreateEvent(ctx context.Context, p auth.Principal, in CreateEventInput) (repo.Event, error) {
	scoped, err := scope(p)
	if err != nil {
		return repo.Event{}, err
	}

	var errs issues
	title := strings.TrimSpace(in.Title)
	if title == "" {
		errs.add("title", "obrigatório")
	}
	kind := in.Type
	if kind == "" {
		kind = repo.EventConsultation
	}
	if !kind.Valid() {
		errs.add("type", "valor inválido: "+string(kind))
	}
	status := in.Status
	if status == "" {
		status = repo.EventPending
	}
	if !status.Open() {
		errs.add("status", "compromisso novo deve estar pendente ou confirmado")
	}
	if in.StartDate == nil {
		errs.add("startDate", "obrigatório")
	} else if in.EndDate != nil && in.EndDate.Before(in.StartDate.Time) {
		errs.add("endDate", "não pode ser anterior ao início")
	}
	collaboratorID := in.CollaboratorID
	if scoped != nil {
		collaboratorID = scoped
	}
	if collaboratorID == nil {
		errs.add("collaboratorId", "obrigatório")
	}
	if err := errs.err(); err != nil {
		return repo.Event{}, err
	}

	var event repo.Event
	err = s.store.WithTx(ctx, func(st Store) error {
		if _, err := st.GetCollaborator(ctx, *collaboratorID); errors.Is(err, repo.ErrNotFound) {
			return invalid("colaborador não encontrado")
		} else if err != nil {
			return err
		}
		if in.PatientID != nil {
			if _, err := patientFor(ctx, st, p, *in.PatientID); errors.Is(err, repo.ErrNotFound) {
				return invalid("paciente não encontrado")
			} else if err != nil {
				return err
			}
		}
		if in.ProcedureID != nil {
			if _, err := st.GetProcedure(ctx, *in.ProcedureID); errors.Is(err, repo.ErrNotFound) {
				return invalid("procedimento não encontrado")
			} else if err != nil {
				return err
			}
		}

		var err error
		event, err = st.CreateEvent(ctx, repo.CreateEventParams{
			CollaboratorID:   *collaboratorID,
			PatientID:        in.PatientID,
			ProcedureID:      in.ProcedureID,
			Title:            title,
			Description:      trimmed(in.Description),
			Type:             kind,
			Status:           status,
			StartDate:        in.StartDate.Time,
			EndDate:          in.EndDate.ptr(),
			RequiresFeedback: in.RequiresFeedback,
			FeedbackQuestion: trimmed(in.FeedbackQuestion),
		})
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "event_created", "Compromisso \""+event.Title+"\" agendado", "event", event.ID)
	})
	return event, err
}

func (s *ClinicService) UpdateEvent(ctx context.Context, p auth.Principal, id uuid.UUID, patch Patch) (repo.Event, error) {
	set, err := eventPatch.build(patch)
	if err != nil {
		return repo.Event{}, err
	}
	if v, ok := set.Get("status"); ok && v.(repo.EventStatus) == repo.EventCompleted {
		return repo.Event{}, invalid("use a conclusão do compromisso para registrar o desfecho")
	}

	var event repo.Event
	err = s.store.WithTx(ctx, func(st Store) error {
		current, err := s.eventFor(ctx, st, p, id)
		if err != nil {
			return err
		}
		if set.Len() == 0 {
			event = current.Event
			return nil
		}
		if current.Status == repo.EventCompleted {
			return invalid("compromisso concluído não pode ser alterado")
		}
		if v, ok := set.Get("patient_id"); ok {
			if pid := v.(*uuid.UUID); pid != nil {
				if _, err := patientFor(ctx, st, p, *pid); errors.Is(err, repo.ErrNotFound) {
					return invalid("paciente não encontrado")
				} else if err != nil {
					return err
				}
			}
		}
		event, err = st.UpdateEvent(ctx, id, set)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "event_updated", "Compromisso \""+event.Title+"\" atualizado", "event", id)
	})
	return event, err
}

// RecordFeedback grava o retorno do paciente, independente da conclusão.
func (s *ClinicService) RecordFeedback(ctx context.Context, p auth.Principal, id uuid.UUID, in FeedbackInput) (repo.Event, error) {
	now := s.now()
	var event repo.Event
	err := s.store.WithTx(ctx, func(st Store) error {
		current, err := s.eventFor(ctx, st, p, id)
		if err != nil {
			return err
		}

		var set repo.UpdateSet
		if in.FeedbackResponse != nil {
			set.Set("feedback_response", trimmed(in.FeedbackResponse))
		}
		responded := in.FeedbackResponse != nil && trimmed(in.FeedbackResponse) != nil
		if in.PatientResponded != nil {
			responded = *in.PatientResponded
		}
		set.Set("patient_responded", responded)
		completed := true
		if in.FeedbackCompleted != nil {
			completed = *in.FeedbackCompleted
		}
		set.Set("feedback_completed", completed)
		set.Set("feedback_date", &now)

		event, err = st.UpdateEvent(ctx, id, set)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "event_feedback", "Feedback registrado em \""+current.Title+"\"", "event", id)
	})
	return event, err
}

func (s *ClinicService) eventFor(ctx context.Context, st Store, p auth.Principal, id uuid.UUID) (repo.EventDetail, error) {
	scoped, err := scope(p)
	if err != nil {
		return repo.EventDetail{}, err
	}
	event, err := st.GetEvent(ctx, id)
	if err != nil {
		return repo.EventDetail{}, err
	}
	if !owns(scoped, &event.CollaboratorID) {
		return repo.EventDetail{}, ErrForbidden
	}
	return event, nil
}
