package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/util"
)

type CreateCityInput struct {
	Name          string  `json:"name"`
	State         string  `json:"state"`
	Description   *string `json:"description"`
	MonthlyGoal   *Number `json:"monthlyGoal"`
	QuarterlyGoal *Number `json:"quarterlyGoal"`
	YearlyGoal    *Number `json:"yearlyGoal"`
}

var cityPatch = patchSpec{
	"name":          {column: "name", decode: text},
	"state":         {column: "state", decode: stateCode},
	"description":   {column: "description", decode: optText},
	"monthlyGoal":   {column: "monthly_goal", decode: optNumber},
	"quarterlyGoal": {column: "quarterly_goal", decode: optNumber},
	"yearlyGoal":    {column: "yearly_goal", decode: optNumber},
}

func (s *ClinicService) ListCities(ctx context.Context) ([]repo.City, error) {
	return s.store.ListCities(ctx)
}

func (s *ClinicService) GetCity(ctx context.Context, id uuid.UUID) (repo.City, error) {
	return s.store.GetCity(ctx, id)
}

func (s *ClinicService) CreateCity(ctx context.Context, p auth.Principal, in CreateCityInput) (repo.City, error) {
	if err := requireAdmin(p); err != nil {
		return repo.City{}, err
	}

	var errs issues
	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs.add("name", "obrigatório")
	}
	state := strings.ToUpper(strings.TrimSpace(in.State))
	if err := util.ValidateStateCode(state); err != nil {
		errs.add("state", err.Error())
	}
	goals := []struct {
		field string
		value *Number
	}{{"monthlyGoal", in.MonthlyGoal}, {"quarterlyGoal", in.QuarterlyGoal}, {"yearlyGoal", in.YearlyGoal}}
	for _, goal := range goals {
		if goal.value != nil && *goal.value < 0 {
			errs.add(goal.field, "não pode ser negativo")
		}
	}
	if err := errs.err(); err != nil {
		return repo.City{}, err
	}

	var city repo.City
	err := s.store.WithTx(ctx, func(st Store) error {
		if err := cityNameFree(ctx, st, name, uuid.Nil); err != nil {
			return err
		}
		var err error
		city, err = st.CreateCity(ctx, repo.CreateCityParams{
			Name:          name,
			State:         state,
			Description:   trimmed(in.Description),
			MonthlyGoal:   in.MonthlyGoal.ptr(),
			QuarterlyGoal: in.QuarterlyGoal.ptr(),
			YearlyGoal:    in.YearlyGoal.ptr(),
		})
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "city_created", "Cidade "+city.Name+" criada", "city", city.ID)
	})
	return city, err
}

func (s *ClinicService) UpdateCity(ctx context.Context, p auth.Principal, id uuid.UUID, patch Patch) (repo.City, error) {
	if err := requireAdmin(p); err != nil {
		return repo.City{}, err
	}
	set, err := cityPatch.build(patch)
	if err != nil {
		return repo.City{}, err
	}
	if set.Len() == 0 {
		return s.store.GetCity(ctx, id)
	}

	var city repo.City
	err = s.store.WithTx(ctx, func(st Store) error {
		if name, ok := set.Get("name"); ok {
			if err := cityNameFree(ctx, st, name.(string), id); err != nil {
				return err
			}
		}
		var err error
		city, err = st.UpdateCity(ctx, id, set)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "city_updated", "Cidade "+city.Name+" atualizada", "city", city.ID)
	})
	return city, err
}

// cityNameFree recusa nome já usado por outra cidade.
func cityNameFree(ctx context.Context, st Store, name string, self uuid.UUID) error {
	existing, err := st.GetCityByName(ctx, name)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == self:
		return nil
	}
	return conflict("já existe uma cidade chamada %q", existing.Name)
}

// DeleteCity só remove cidades sem colaboradores nem pacientes.
func (s *ClinicService) DeleteCity(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		city, err := st.GetCity(ctx, id)
		if err != nil {
			return err
		}
		collaborators, err := st.CountCollaborators(ctx, &id)
		if err != nil {
			return err
		}
		patients, err := st.CountPatients(ctx, repo.PatientFilter{CityID: &id})
		if err != nil {
			return err
		}
		if collaborators > 0 || patients > 0 {
			return conflict("não é possível excluir a cidade: %d colaborador(es) e %d paciente(s) vinculados", collaborators, patients)
		}
		if err := st.DeleteCity(ctx, id); err != nil {
			return err
		}
		return logActivity(ctx, st, p, "city_deleted", "Cidade "+city.Name+" excluída", "city", id)
	})
}
