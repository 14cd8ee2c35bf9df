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

type CreateCollaboratorInput struct {
	UserID           uuid.UUID `json:"userId"`
	CityID           uuid.UUID `json:"cityId"`
	RevenueGoal      *Number   `json:"revenueGoal"`
	ConsultationGoal *Int      `json:"consultationGoal"`
	IsActive         *bool     `json:"isActive"`
}

var collaboratorPatch = patchSpec{
	"cityId":           {column: "city_id", decode: requiredUUID},
	"revenueGoal":      {column: "revenue_goal", decode: number},
	"consultationGoal": {column: "consultation_goal", decode: integer},
	"isActive":         {column: "is_active", decode: boolean},
}

func (s *ClinicService) ListCollaborators(ctx context.Context, p auth.Principal, cityID *uuid.UUID) ([]repo.CollaboratorDetail, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.store.ListCollaborators(ctx, cityID)
}

func (s *ClinicService) GetCollaborator(ctx context.Context, p auth.Principal, id uuid.UUID) (repo.CollaboratorDetail, error) {
	if err := collaboratorAccess(p, id); err != nil {
		return repo.CollaboratorDetail{}, err
	}
	return s.store.GetCollaborator(ctx, id)
}

// CreateCollaborator vincula um usuário a uma cidade. Um usuário só pode
// ter um registro de colaborador.
func (s *ClinicService) CreateCollaborator(ctx context.Context, p auth.Principal, in CreateCollaboratorInput) (repo.Collaborator, error) {
	if err := requireAdmin(p); err != nil {
		return repo.Collaborator{}, err
	}

	var errs issues
	if in.UserID == uuid.Nil {
		errs.add("userId", "obrigatório")
	}
	if in.CityID == uuid.Nil {
		errs.add("cityId", "obrigatório")
	}
	if in.RevenueGoal != nil && *in.RevenueGoal < 0 {
		errs.add("revenueGoal", "não pode ser negativo")
	}
	if in.ConsultationGoal != nil && *in.ConsultationGoal < 0 {
		errs.add("consultationGoal", "não pode ser negativo")
	}
	if err := errs.err(); err != nil {
		return repo.Collaborator{}, err
	}

	arg := repo.CreateCollaboratorParams{UserID: in.UserID, CityID: in.CityID, IsActive: true}
	if in.RevenueGoal != nil {
		arg.RevenueGoal = float64(*in.RevenueGoal)
	}
	if in.ConsultationGoal != nil {
		arg.ConsultationGoal = int(*in.ConsultationGoal)
	}
	if in.IsActive != nil {
		arg.IsActive = *in.IsActive
	}

	var collab repo.Collaborator
	err := s.store.WithTx(ctx, func(st Store) error {
		user, err := st.GetUser(ctx, in.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return invalid("usuário não encontrado")
		}
		if err != nil {
			return err
		}
		if _, err := st.GetCity(ctx, in.CityID); errors.Is(err, repo.ErrNotFound) {
			return invalid("cidade não encontrada")
		} else if err != nil {
			return err
		}
		if _, err := st.GetCollaboratorByUserID(ctx, in.UserID); err == nil {
			return invalid("usuário já é colaborador")
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		collab, err = st.CreateCollaborator(ctx, arg)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "collaborator_created", "Colaborador "+user.Name+" cadastrado", "collaborator", collab.ID)
	})
	return collab, err
}

func (s *ClinicService) UpdateCollaborator(ctx context.Context, p auth.Principal, id uuid.UUID, patch Patch) (repo.Collaborator, error) {
	if err := requireAdmin(p); err != nil {
		return repo.Collaborator{}, err
	}
	set, err := collaboratorPatch.build(patch)
	if err != nil {
		return repo.Collaborator{}, err
	}

	var collab repo.Collaborator
	err = s.store.WithTx(ctx, func(st Store) error {
		current, err := st.GetCollaborator(ctx, id)
		if err != nil {
			return err
		}
		if set.Len() == 0 {
			collab = current.Collaborator
			return nil
		}
		if v, ok := set.Get("city_id"); ok {
			if _, err := st.GetCity(ctx, v.(uuid.UUID)); errors.Is(err, repo.ErrNotFound) {
				return invalid("cidade não encontrada")
			} else if err != nil {
				return err
			}
		}
		collab, err = st.UpdateCollaborator(ctx, id, set)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "collaborator_updated", "Colaborador "+current.User.Name+" atualizado", "collaborator", id)
	})
	return collab, err
}

// DeleteCollaborator só remove colaboradores sem pacientes, compromissos,
// procedimentos, tarefas ou histórico vinculados.
func (s *ClinicService) DeleteCollaborator(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		current, err := st.GetCollaborator(ctx, id)
		if err != nil {
			return err
		}
		refs, err := st.CollaboratorReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs.Total() > 0 {
			return conflict("não é possível excluir o colaborador: %s vinculados", describeRefs(refs))
		}
		if err := st.DeleteCollaborator(ctx, id); err != nil {
			return err
		}
		return logActivity(ctx, st, p, "collaborator_deleted", "Colaborador "+current.User.Name+" excluído", "collaborator", id)
	})
}

func describeRefs(r repo.CollaboratorRefs) string {
	var parts []string
	for _, c := range []struct {
		n     int
		label string
	}{
		{r.Patients, "paciente(s)"},
		{r.Events, "compromisso(s)"},
		{r.Procedures, "procedimento(s)"},
		{r.Tasks, "tarefa(s)"},
		{r.History, "registro(s) de histórico"},
	} {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.n, c.label))
		}
	}
	return strings.Join(parts, ", ")
}
