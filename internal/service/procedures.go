package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
)

type CreateProcedureInput struct {
	PatientID      uuid.UUID  `json:"patientId"`
	CollaboratorID *uuid.UUID `json:"collaboratorId"`
	TemplateID     *uuid.UUID `json:"templateId"`
	Name           *string    `json:"name"`
	Value          *Number    `json:"value"`
	PerformedDate  *Date      `json:"performedDate"`
	ValidUntil     *Date      `json:"validUntil"`
	Notes          *string    `json:"notes"`
}

// ProcedureQuery são os filtros aceitos na listagem.
type ProcedureQuery struct {
	PatientID          *uuid.UUID
	Status             *repo.ProcedureStatus
	ExpiringWithinDays int
}

// ListProcedures devolve procedimentos com o status efetivo calculado.
func (s *ClinicService) ListProcedures(ctx context.Context, p auth.Principal, q ProcedureQuery) ([]repo.ProcedureDetail, error) {
	scoped, err := scope(p)
	if err != nil {
		return nil, err
	}
	now := s.now()
	filter := repo.ProcedureFilter{CollaboratorID: scoped, PatientID: q.PatientID, Status: q.Status, Now: now}
	if q.ExpiringWithinDays > 0 {
		limit := now.AddDate(0, 0, q.ExpiringWithinDays)
		filter.ExpiringBefore = &limit
		if filter.Status == nil {
			// já vencidos não estão "vencendo"
			filter.Status = ptr(repo.ProcedureActive)
		}
	}
	list, err := s.store.ListProcedures(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Status = list[i].EffectiveStatus(now)
	}
	return list, nil
}

// ListPatientProcedures lista os procedimentos de um paciente acessível.
func (s *ClinicService) ListPatientProcedures(ctx context.Context, p auth.Principal, patientID uuid.UUID) ([]repo.ProcedureDetail, error) {
	if _, err := patientFor(ctx, s.store, p, patientID); err != nil {
		return nil, err
	}
	now := s.now()
	list, err := s.store.ListProcedures(ctx, repo.ProcedureFilter{PatientID: &patientID, Now: now})
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Status = list[i].EffectiveStatus(now)
	}
	return list, nil
}

// CreateProcedure registra um procedimento manual. Nome, valor e validade
// vêm do modelo quando não informados.
func (s *ClinicService) CreateProcedure(ctx context.Context, p auth.Principal, in CreateProcedureInput) (repo.Procedure, error) {
	scoped, err := scope(p)
	if err != nil {
		return repo.Procedure{}, err
	}

	var errs issues
	if in.PatientID == uuid.Nil {
		errs.add("patientId", "obrigatório")
	}
	if in.Value != nil && *in.Value < 0 {
		errs.add("value", "não pode ser negativo")
	}
	if in.TemplateID == nil && trimmed(in.Name) == nil {
		errs.add("name", "obrigatório quando não há modelo")
	}
	if err := errs.err(); err != nil {
		return repo.Procedure{}, err
	}

	now := s.now()
	var procedure repo.Procedure
	err = s.store.WithTx(ctx, func(st Store) error {
		patient, err := patientFor(ctx, st, p, in.PatientID)
		if errors.Is(err, repo.ErrNotFound) {
			return invalid("paciente não encontrado")
		}
		if err != nil {
			return err
		}

		collaboratorID := in.CollaboratorID
		if scoped != nil {
			collaboratorID = scoped
		} else if collaboratorID == nil {
			collaboratorID = patient.CollaboratorID
		}
		if collaboratorID == nil {
			return &ValidationError{Message: "dados inválidos", Issues: []Issue{{Field: "collaboratorId", Message: "obrigatório"}}}
		}

		arg := repo.CreateProcedureParams{
			PatientID:      patient.ID,
			CollaboratorID: *collaboratorID,
			TemplateID:     in.TemplateID,
			Status:         repo.ProcedureActive,
			PerformedDate:  now,
			ValidUntil:     in.ValidUntil.ptr(),
			Notes:          trimmed(in.Notes),
		}
		if in.PerformedDate != nil {
			arg.PerformedDate = in.PerformedDate.Time
		}
		if in.TemplateID != nil {
			tpl, err := st.GetTemplate(ctx, *in.TemplateID)
			if errors.Is(err, repo.ErrNotFound) {
				return invalid("modelo de procedimento não encontrado")
			}
			if err != nil {
				return err
			}
			arg.Name = tpl.Name
			arg.Value = tpl.DefaultPrice
			if arg.ValidUntil == nil {
				arg.ValidUntil = ptr(arg.PerformedDate.AddDate(0, 0, tpl.ValidityDays))
			}
		}
		if name := trimmed(in.Name); name != nil {
			arg.Name = *name
		}
		if in.Value != nil {
			arg.Value = float64(*in.Value)
		}
		if arg.ValidUntil != nil && arg.ValidUntil.Before(arg.PerformedDate) {
			return &ValidationError{Message: "dados inválidos", Issues: []Issue{{Field: "validUntil", Message: "não pode ser anterior à data de realização"}}}
		}

		procedure, err = st.CreateProcedure(ctx, arg)
		if err != nil {
			return err
		}
		if _, err := st.CreateNote(ctx, repo.CreateNoteParams{
			PatientID:      patient.ID,
			CollaboratorID: collaboratorID,
			Type:           repo.NoteProcedure,
			Title:          ptr("Procedimento registrado: " + procedure.Name),
			Content:        fmt.Sprintf("Procedimento %s registrado", procedure.Name),
			Amount:         &procedure.Value,
		}); err != nil {
			return err
		}
		return logActivity(ctx, st, p, "procedure_created", "Procedimento "+procedure.Name+" registrado para "+patient.Name, "procedure", procedure.ID)
	})
	if err != nil {
		return repo.Procedure{}, err
	}
	s.recorder.ProcedureCreated()
	return procedure, nil
}

// ExpireProcedures grava expired nos procedimentos vencidos.
func (s *ClinicService) ExpireProcedures(ctx context.Context) (int64, error) {
	return s.store.ExpireProcedures(ctx, s.now())
}

type CreateTemplateInput struct {
	Name         string  `json:"name"`
	DefaultPrice *Number `json:"defaultPrice"`
	ValidityDays *Int    `json:"validityDays"`
	Category     *string `json:"category"`
	IsActive     *bool   `json:"isActive"`
}

var templatePatch = patchSpec{
	"name":         {column: "name", decode: text},
	"defaultPrice": {column: "default_price", decode: number},
	"validityDays": {column: "validity_days", decode: integer},
	"category":     {column: "category", decode: optText},
	"isActive":     {column: "is_active", decode: boolean},
}

func (s *ClinicService) ListTemplates(ctx context.Context, activeOnly bool) ([]repo.ProcedureTemplate, error) {
	return s.store.ListTemplates(ctx, activeOnly)
}

func (s *ClinicService) GetTemplate(ctx context.Context, id uuid.UUID) (repo.ProcedureTemplate, error) {
	return s.store.GetTemplate(ctx, id)
}

func (s *ClinicService) CreateTemplate(ctx context.Context, p auth.Principal, in CreateTemplateInput) (repo.ProcedureTemplate, error) {
	if err := requireAdmin(p); err != nil {
		return repo.ProcedureTemplate{}, err
	}

	var errs issues
	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs.add("name", "obrigatório")
	}
	if in.DefaultPrice == nil {
		errs.add("defaultPrice", "obrigatório")
	} else if *in.DefaultPrice < 0 {
		errs.add("defaultPrice", "não pode ser negativo")
	}
	if in.ValidityDays == nil {
		errs.add("validityDays", "obrigatório")
	} else if *in.ValidityDays < 0 {
		errs.add("validityDays", "não pode ser negativo")
	}
	if err := errs.err(); err != nil {
		return repo.ProcedureTemplate{}, err
	}

	arg := repo.CreateTemplateParams{
		Name:         name,
		DefaultPrice: float64(*in.DefaultPrice),
		ValidityDays: int(*in.ValidityDays),
		Category:     trimmed(in.Category),
		IsActive:     true,
	}
	if in.IsActive != nil {
		arg.IsActive = *in.IsActive
	}

	var tpl repo.ProcedureTemplate
	err := s.store.WithTx(ctx, func(st Store) error {
		var err error
		tpl, err = st.CreateTemplate(ctx, arg)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "template_created", "Modelo "+tpl.Name+" criado", "procedure_template", tpl.ID)
	})
	return tpl, err
}

func (s *ClinicService) UpdateTemplate(ctx context.Context, p auth.Principal, id uuid.UUID, patch Patch) (repo.ProcedureTemplate, error) {
	if err := requireAdmin(p); err != nil {
		return repo.ProcedureTemplate{}, err
	}
	set, err := templatePatch.build(patch)
	if err != nil {
		return repo.ProcedureTemplate{}, err
	}
	if set.Len() == 0 {
		return s.store.GetTemplate(ctx, id)
	}

	var tpl repo.ProcedureTemplate
	err = s.store.WithTx(ctx, func(st Store) error {
		var err error
		tpl, err = st.UpdateTemplate(ctx, id, set)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "template_updated", "Modelo "+tpl.Name+" atualizado", "procedure_template", id)
	})
	return tpl, err
}

// DeleteTemplate só remove modelos sem procedimentos.
func (s *ClinicService) DeleteTemplate(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		tpl, err := st.GetTemplate(ctx, id)
		if err != nil {
			return err
		}
		n, err := st.CountProcedures(ctx, repo.ProcedureFilter{TemplateID: &id})
		if err != nil {
			return err
		}
		if n > 0 {
			return conflict("não é possível excluir o modelo: %d procedimento(s) vinculados", n)
		}
		if err := st.DeleteTemplate(ctx, id); err != nil {
			return err
		}
		return logActivity(ctx, st, p, "template_deleted", "Modelo "+tpl.Name+" excluído", "procedure_template", id)
	})
}
