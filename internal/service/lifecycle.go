package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
)

type DeactivateInput struct {
	Reason string `json:"reason"`
}

type ReactivateInput struct {
	Reason *string `json:"reason"`
}

type CompleteRegistrationInput struct {
	Classification     repo.Classification      `json:"classification"`
	Phone              string                   `json:"phone"`
	CityID             *uuid.UUID               `json:"cityId"`
	CollaboratorID     *uuid.UUID               `json:"collaboratorId"`
	ConsultationResult *ConsultationResultInput `json:"consultationResult"`
}

// ConsultationResultInput é o desfecho de uma consulta.
type ConsultationResultInput struct {
	CompletionType string     `json:"completionType"`
	Notes          *string    `json:"notes"`
	TemplateID     *uuid.UUID `json:"templateId"`
	Value          *Number    `json:"value"`
}

// DeactivatePatient desativa o paciente registrando motivo, nota e atividade.
func (s *ClinicService) DeactivatePatient(ctx context.Context, p auth.Principal, id uuid.UUID, in DeactivateInput) (repo.Patient, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return repo.Patient{}, &ValidationError{Message: "motivo da desativação é obrigatório", Issues: []Issue{{Field: "reason", Message: "obrigatório"}}}
	}
	now := s.now()

	var patient repo.Patient
	err := s.store.WithTx(ctx, func(st Store) error {
		current, err := patientFor(ctx, st, p, id)
		if err != nil {
			return err
		}
		if current.Status == repo.PatientDeactivated {
			return invalid("paciente já está desativado")
		}

		var set repo.UpdateSet
		set.Set("status", repo.PatientDeactivated)
		set.Set("deactivated_at", &now)
		set.Set("deactivation_reason", &reason)
		set.Set("deactivated_by", p.CollaboratorID)
		patient, err = st.UpdatePatient(ctx, id, set)
		if err != nil {
			return err
		}

		if _, err := st.CreateNote(ctx, repo.CreateNoteParams{
			PatientID:      id,
			CollaboratorID: p.CollaboratorID,
			Type:           repo.NoteStatus,
			Title:          ptr("Paciente desativado"),
			Content:        reason,
		}); err != nil {
			return err
		}
		return logActivity(ctx, st, p, "patient_deactivated", "Paciente "+patient.Name+" desativado: "+reason, "patient", id)
	})
	if err != nil {
		return repo.Patient{}, err
	}
	s.recorder.PatientTransition("deactivated")
	return patient, nil
}

// ReactivatePatient volta o paciente para ativo. Qualquer colaborador com
// acesso ao paciente pode reativar; a nota de desativação é mantida.
func (s *ClinicService) ReactivatePatient(ctx context.Context, p auth.Principal, id uuid.UUID, in ReactivateInput) (repo.Patient, error) {
	reason := trimmed(in.Reason)

	var patient repo.Patient
	err := s.store.WithTx(ctx, func(st Store) error {
		current, err := patientFor(ctx, st, p, id)
		if err != nil {
			return err
		}
		if current.Status != repo.PatientDeactivated {
			return invalid("paciente não está desativado")
		}

		var set repo.UpdateSet
		set.Set("status", repo.PatientActive)
		set.Set("deactivated_at", (*time.Time)(nil))
		set.Set("deactivated_by", (*uuid.UUID)(nil))
		content := "Paciente reativado"
		if reason != nil {
			set.Set("deactivation_reason", ptr("Reativado: "+*reason))
			content = *reason
		}
		patient, err = st.UpdatePatient(ctx, id, set)
		if err != nil {
			return err
		}

		if _, err := st.CreateNote(ctx, repo.CreateNoteParams{
			PatientID:      id,
			CollaboratorID: p.CollaboratorID,
			Type:           repo.NoteStatus,
			Title:          ptr("Paciente reativado"),
			Content:        content,
		}); err != nil {
			return err
		}
		return logActivity(ctx, st, p, "patient_reactivated", "Paciente "+patient.Name+" reativado", "patient", id)
	})
	if err != nil {
		return repo.Patient{}, err
	}
	s.recorder.PatientTransition("reactivated")
	return patient, nil
}

// CompleteRegistration fecha um pré-cadastro. A operação é de mão única e,
// quando vem com o resultado da consulta, aplica o desfecho na mesma transação.
func (s *ClinicService) CompleteRegistration(ctx context.Context, p auth.Principal, id uuid.UUID, in CompleteRegistrationInput) (repo.Patient, error) {
	scoped, err := scope(p)
	if err != nil {
		return repo.Patient{}, err
	}

	var errs issues
	if !in.Classification.Valid() {
		errs.add("classification", "obrigatório (bronze, silver, gold ou diamond)")
	}
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		errs.add("phone", "obrigatório")
	}
	if in.CityID == nil {
		errs.add("cityId", "obrigatório")
	}
	collaboratorID := in.CollaboratorID
	if scoped != nil {
		if collaboratorID != nil && *collaboratorID != *scoped {
			return repo.Patient{}, ErrForbidden
		}
		collaboratorID = scoped
	}
	if collaboratorID == nil {
		errs.add("collaboratorId", "obrigatório")
	}
	var outcome *consultationOutcome
	if in.ConsultationResult != nil {
		o, err := parseOutcome(*in.ConsultationResult)
		if err != nil {
			errs = append(errs, err...)
		} else {
			outcome = &o
		}
	}
	if err := errs.err(); err != nil {
		return repo.Patient{}, err
	}

	now := s.now()
	var patient repo.Patient
	err = s.store.WithTx(ctx, func(st Store) error {
		current, err := st.GetPatient(ctx, id)
		if err != nil {
			return err
		}
		// pré-cadastros do admin ainda não têm responsável
		if scoped != nil && current.CollaboratorID != nil && *current.CollaboratorID != *scoped {
			return ErrForbidden
		}
		if current.IsRegistrationComplete {
			return invalid("cadastro do paciente já está completo")
		}
		if err := checkPatientRefs(ctx, st, in.CityID, collaboratorID); err != nil {
			return err
		}

		var set repo.UpdateSet
		set.Set("classification", in.Classification)
		set.Set("phone", &phone)
		set.Set("city_id", in.CityID)
		set.Set("collaborator_id", collaboratorID)
		set.Set("is_registration_complete", true)
		patient, err = st.UpdatePatient(ctx, id, set)
		if err != nil {
			return err
		}

		if outcome != nil {
			patient, _, err = applyOutcome(ctx, st, patient, *collaboratorID, *outcome, now)
			if err != nil {
				return err
			}
		}
		return logActivity(ctx, st, p, "patient_registration_completed", "Cadastro de "+patient.Name+" completado", "patient", id)
	})
	if err != nil {
		return repo.Patient{}, err
	}
	s.recorder.PatientTransition("registration_completed")
	if outcome != nil {
		s.recorder.ConsultationCompleted(string(outcome.kind))
		if outcome.kind == repo.CompletionClosedProcedure && outcome.templateID != nil {
			s.recorder.ProcedureCreated()
		}
	}
	return patient, nil
}
