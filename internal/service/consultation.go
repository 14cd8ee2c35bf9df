package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
)

type consultationOutcome struct {
	kind       repo.CompletionType
	notes      *string
	templateID *uuid.UUID
	value      *float64
}

func parseOutcome(in ConsultationResultInput) (consultationOutcome, issues) {
	var errs issues
	raw := strings.TrimSpace(in.CompletionType)
	kind, ok := repo.ParseCompletionType(raw)
	switch {
	case raw == "":
		errs.add("completionType", "obrigatório")
	case !ok:
		errs.add("completionType", "valor inválido: "+raw)
	}
	if in.Value != nil && *in.Value < 0 {
		errs.add("value", "não pode ser negativo")
	}
	if len(errs) > 0 {
		return consultationOutcome{}, errs
	}
	return consultationOutcome{
		kind:       kind,
		notes:      trimmed(in.Notes),
		templateID: in.TemplateID,
		value:      in.Value.ptr(),
	}, nil
}

// applyOutcome registra o desfecho da consulta no paciente: cria o
// procedimento quando há modelo, atualiza o acompanhamento e a data da
// última consulta e grava a nota na linha do tempo.
func applyOutcome(ctx context.Context, st Store, patient repo.Patient, collaboratorID uuid.UUID, o consultationOutcome, now time.Time) (repo.Patient, *repo.Procedure, error) {
	var (
		procedure *repo.Procedure
		followup  repo.FollowupStatus
		note      = repo.CreateNoteParams{PatientID: patient.ID, CollaboratorID: &collaboratorID}
	)

	switch o.kind {
	case repo.CompletionClosedProcedure:
		followup = repo.FollowupProcedureClosed
		note.Type = repo.NoteProcedure
		note.Title = ptr("Procedimento fechado")
		note.Content = "Consulta com fechamento de procedimento"
		note.Amount = o.value

		if o.templateID != nil {
			tpl, err := st.GetTemplate(ctx, *o.templateID)
			if errors.Is(err, repo.ErrNotFound) {
				return repo.Patient{}, nil, invalid("modelo de procedimento não encontrado")
			}
			if err != nil {
				return repo.Patient{}, nil, err
			}

			value := tpl.DefaultPrice
			if o.value != nil {
				value = *o.value
			}
			validUntil := now.AddDate(0, 0, tpl.ValidityDays)
			created, err := st.CreateProcedure(ctx, repo.CreateProcedureParams{
				PatientID:      patient.ID,
				CollaboratorID: collaboratorID,
				TemplateID:     &tpl.ID,
				Name:           tpl.Name,
				Value:          value,
				PerformedDate:  now,
				ValidUntil:     &validUntil,
				Status:         repo.ProcedureActive,
				Notes:          o.notes,
			})
			if err != nil {
				return repo.Patient{}, nil, err
			}
			procedure = &created
			note.Title = ptr("Procedimento fechado: " + tpl.Name)
			note.Content = fmt.Sprintf("Procedimento %s realizado", tpl.Name)
			note.Amount = &value
		}
	case repo.CompletionNoClosure:
		followup = repo.FollowupNoClosure
		note.Type = repo.NoteAppointment
		note.Title = ptr("Consulta sem fechamento")
		note.Content = "Consulta realizada sem fechamento"
	case repo.CompletionMissed:
		followup = repo.FollowupMissed
		note.Type = repo.NoteMissed
		note.Title = ptr("Paciente faltou")
		note.Content = "Paciente não compareceu à consulta"
	default:
		return repo.Patient{}, nil, invalid("tipo de conclusão inválido: %s", o.kind)
	}
	if o.notes != nil {
		note.Content = *o.notes
	}

	var set repo.UpdateSet
	set.Set("followup_status", &followup)
	set.Set("last_consultation_date", &now)
	updated, err := st.UpdatePatient(ctx, patient.ID, set)
	if err != nil {
		return repo.Patient{}, nil, err
	}
	if _, err := st.CreateNote(ctx, note); err != nil {
		return repo.Patient{}, nil, err
	}
	return updated, procedure, nil
}

// CompletionResult é a resposta da conclusão de consulta.
type CompletionResult struct {
	Event     repo.Event      `json:"event"`
	Patient   *repo.Patient   `json:"patient,omitempty"`
	Procedure *repo.Procedure `json:"procedure,omitempty"`
}

// CompleteEvent conclui o compromisso e aplica o desfecho ao paciente.
// Tudo acontece em uma única transação.
func (s *ClinicService) CompleteEvent(ctx context.Context, p auth.Principal, id uuid.UUID, in ConsultationResultInput) (CompletionResult, error) {
	outcome, errs := parseOutcome(in)
	if err := errs.err(); err != nil {
		return CompletionResult{}, err
	}
	scoped, err := scope(p)
	if err != nil {
		return CompletionResult{}, err
	}
	now := s.now()

	var result CompletionResult
	err = s.store.WithTx(ctx, func(st Store) error {
		event, err := st.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		if !owns(scoped, &event.CollaboratorID) {
			return ErrForbidden
		}
		if !event.Status.Open() {
			return invalid("compromisso já está %s", statusLabel(event.Status))
		}
		if event.PatientID == nil && outcome.kind == repo.CompletionClosedProcedure && outcome.templateID != nil {
			return invalid("compromisso sem paciente não pode gerar procedimento")
		}

		collaboratorID := event.CollaboratorID
		if p.CollaboratorID != nil {
			collaboratorID = *p.CollaboratorID
		}

		if event.PatientID != nil {
			patient, err := st.GetPatient(ctx, *event.PatientID)
			if err != nil {
				return err
			}
			updated, procedure, err := applyOutcome(ctx, st, patient.Patient, collaboratorID, outcome, now)
			if err != nil {
				return err
			}
			result.Patient = &updated
			result.Procedure = procedure
		}

		var set repo.UpdateSet
		set.Set("status", repo.EventCompleted)
		set.Set("completion_type", &outcome.kind)
		set.Set("completion_notes", outcome.notes)
		set.Set("completed_at", &now)
		if result.Procedure != nil {
			set.Set("procedure_id", &result.Procedure.ID)
		}
		result.Event, err = st.UpdateEvent(ctx, id, set)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "event_completed",
			fmt.Sprintf("Compromisso %q concluído: %s", event.Title, outcome.kind), "event", id)
	})
	if err != nil {
		return CompletionResult{}, err
	}

	s.recorder.ConsultationCompleted(string(outcome.kind))
	if result.Procedure != nil {
		s.recorder.ProcedureCreated()
	}
	return result, nil
}

func statusLabel(status repo.EventStatus) string {
	switch status {
	case repo.EventCompleted:
		return "concluído"
	case repo.EventCancelled:
		return "cancelado"
	}
	return string(status)
}
