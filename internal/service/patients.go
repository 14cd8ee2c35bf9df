package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
)

type CreatePatientInput struct {
	Name                   string              `json:"name"`
	Phone                  *string             `json:"phone"`
	Email                  *string             `json:"email"`
	CPF                    *string             `json:"cpf"`
	BirthDate              *Date               `json:"birthDate"`
	Address                *string             `json:"address"`
	CityID                 *uuid.UUID          `json:"cityId"`
	CollaboratorID         *uuid.UUID          `json:"collaboratorId"`
	Classification         repo.Classification `json:"classification"`
	Status                 repo.PatientStatus  `json:"status"`
	IsRegistrationComplete *bool               `json:"isRegistrationComplete"`
	Notes                  *string             `json:"notes"`
}

// Status e cadastro completo mudam pelos endpoints de ciclo de vida.
var patientPatch = patchSpec{
	"name":           {column: "name", decode: text},
	"phone":          {column: "phone", decode: optText},
	"email":          {column: "email", decode: optText},
	"cpf":            {column: "cpf", decode: optText},
	"birthDate":      {column: "birth_date", decode: optDate},
	"address":        {column: "address", decode: optText},
	"cityId":         {column: "city_id", decode: optUUID},
	"collaboratorId": {column: "collaborator_id", decode: optUUID},
	"classification": {column: "classification", decode: enum(repo.Classification.Valid)},
	"status":         {column: "status", decode: enum(repo.PatientStatus.Valid)},
	"followupStatus": {column: "followup_status", decode: optEnum(repo.FollowupStatus.Valid)},
	"notes":          {column: "notes", decode: optText},
}

// PatientList identifica as listas de atalho.
type PatientList string

const (
	ListIncomplete  PatientList = "incomplete"
	ListDeactivated PatientList = "deactivated"
	ListMissed      PatientList = "missed"
	ListNoClosure   PatientList = "no-closure"
	ListActive      PatientList = "active"
)

// Filter devolve o filtro correspondente ao atalho.
func (l PatientList) Filter() (repo.PatientFilter, bool) {
	deactivated := repo.PatientDeactivated
	switch l {
	case ListIncomplete:
		return repo.PatientFilter{IsRegistrationComplete: ptr(false), ExcludeStatus: &deactivated}, true
	case ListDeactivated:
		return repo.PatientFilter{Status: &deactivated}, true
	case ListMissed:
		return repo.PatientFilter{FollowupStatus: ptr(repo.FollowupMissed), ExcludeStatus: &deactivated}, true
	case ListNoClosure:
		return repo.PatientFilter{FollowupStatus: ptr(repo.FollowupNoClosure), ExcludeStatus: &deactivated}, true
	case ListActive:
		return repo.PatientFilter{Status: ptr(repo.PatientActive)}, true
	}
	return repo.PatientFilter{}, false
}

// ListPatients aplica o escopo do colaborador por cima do filtro pedido.
func (s *ClinicService) ListPatients(ctx context.Context, p auth.Principal, filter repo.PatientFilter) ([]repo.PatientDetail, error) {
	filter, err := patientScope(p, filter)
	if err != nil {
		return nil, err
	}
	return s.store.ListPatients(ctx, filter)
}

// PatientPage é uma página da listagem; Total conta todos os pacientes
// que atendem ao filtro, sem limit/offset.
type PatientPage struct {
	Items  []repo.PatientDetail
	Total  int
	Limit  int
	Offset int
}

// ListPatientsPage devolve a página pedida e o total do filtro.
func (s *ClinicService) ListPatientsPage(ctx context.Context, p auth.Principal, filter repo.PatientFilter) (PatientPage, error) {
	filter, err := patientScope(p, filter)
	if err != nil {
		return PatientPage{}, err
	}
	items, err := s.store.ListPatients(ctx, filter)
	if err != nil {
		return PatientPage{}, err
	}
	total, err := s.store.CountPatients(ctx, filter)
	if err != nil {
		return PatientPage{}, err
	}
	return PatientPage{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func patientScope(p auth.Principal, filter repo.PatientFilter) (repo.PatientFilter, error) {
	scoped, err := scope(p)
	if err != nil {
		return filter, err
	}
	if scoped != nil {
		filter.CollaboratorID = scoped
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = repo.DefaultPatientLimit
	case filter.Limit > repo.MaxPatientLimit:
		filter.Limit = repo.MaxPatientLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter, nil
}

func (s *ClinicService) ListPatientShortcut(ctx context.Context, p auth.Principal, list PatientList, limit, offset int) (PatientPage, error) {
	filter, ok := list.Filter()
	if !ok {
		return PatientPage{}, invalid("lista desconhecida: %s", list)
	}
	filter.Limit, filter.Offset = limit, offset
	return s.ListPatientsPage(ctx, p, filter)
}

func (s *ClinicService) GetPatient(ctx context.Context, p auth.Principal, id uuid.UUID) (repo.PatientDetail, error) {
	return patientFor(ctx, s.store, p, id)
}

// CreatePatient cadastra o paciente. Colaboradores ficam como responsáveis
// e o cadastro nasce completo; o administrador cria um pré-cadastro.
func (s *ClinicService) CreatePatient(ctx context.Context, p auth.Principal, in CreatePatientInput) (repo.Patient, error) {
	scoped, err := scope(p)
	if err != nil {
		return repo.Patient{}, err
	}

	var errs issues
	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs.add("name", "obrigatório")
	}
	classification := in.Classification
	if classification == "" {
		classification = repo.ClassificationBronze
	}
	if !classification.Valid() {
		errs.add("classification", "valor inválido: "+string(classification))
	}
	status := in.Status
	if status == "" {
		status = repo.PatientActive
	}
	if !status.Valid() {
		errs.add("status", "valor inválido: "+string(status))
	} else if status == repo.PatientDeactivated {
		errs.add("status", "use a desativação para informar o motivo")
	}
	if err := errs.err(); err != nil {
		return repo.Patient{}, err
	}

	collaboratorID := in.CollaboratorID
	complete := false
	if scoped != nil {
		collaboratorID = scoped
		complete = true
	}
	if in.IsRegistrationComplete != nil {
		complete = *in.IsRegistrationComplete
	}

	var patient repo.Patient
	err = s.store.WithTx(ctx, func(st Store) error {
		if err := checkPatientRefs(ctx, st, in.CityID, collaboratorID); err != nil {
			return err
		}
		var err error
		patient, err = st.CreatePatient(ctx, repo.CreatePatientParams{
			Name:                   name,
			Phone:                  trimmed(in.Phone),
			Email:                  trimmed(in.Email),
			CPF:                    trimmed(in.CPF),
			BirthDate:              in.BirthDate.ptr(),
			Address:                trimmed(in.Address),
			CityID:                 in.CityID,
			CollaboratorID:         collaboratorID,
			Classification:         classification,
			Status:                 status,
			IsRegistrationComplete: complete,
			Notes:                  trimmed(in.Notes),
		})
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "patient_created", "Paciente "+patient.Name+" cadastrado", "patient", patient.ID)
	})
	if err != nil {
		return repo.Patient{}, err
	}
	s.recorder.PatientCreated()
	return patient, nil
}

// UpdatePatient aplica um patch parcial. Colaboradores não transferem
// pacientes para outra pessoa.
func (s *ClinicService) UpdatePatient(ctx context.Context, p auth.Principal, id uuid.UUID, patch Patch) (repo.Patient, error) {
	set, err := patientPatch.build(patch)
	if err != nil {
		return repo.Patient{}, err
	}
	scoped, err := scope(p)
	if err != nil {
		return repo.Patient{}, err
	}

	var patient repo.Patient
	err = s.store.WithTx(ctx, func(st Store) error {
		current, err := patientFor(ctx, st, p, id)
		if err != nil {
			return err
		}
		if set.Len() == 0 {
			patient = current.Patient
			return nil
		}

		if v, ok := set.Get("status"); ok {
			next := v.(repo.PatientStatus)
			if next == repo.PatientDeactivated && current.Status != repo.PatientDeactivated {
				return invalid("use a desativação para informar o motivo")
			}
			if current.Status == repo.PatientDeactivated && next != repo.PatientDeactivated {
				return invalid("paciente desativado: use a reativação")
			}
		}

		var cityID, collabID *uuid.UUID
		if v, ok := set.Get("city_id"); ok {
			cityID = v.(*uuid.UUID)
		}
		if v, ok := set.Get("collaborator_id"); ok {
			collabID = v.(*uuid.UUID)
			if scoped != nil && (collabID == nil || *collabID != *scoped) {
				return ErrForbidden
			}
		}
		if err := checkPatientRefs(ctx, st, cityID, collabID); err != nil {
			return err
		}

		patient, err = st.UpdatePatient(ctx, id, set)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "patient_updated", "Paciente "+patient.Name+" atualizado", "patient", id)
	})
	return patient, err
}

func (s *ClinicService) DeletePatient(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		patient, err := st.GetPatient(ctx, id)
		if err != nil {
			return err
		}
		if err := st.DeletePatient(ctx, id); err != nil {
			return err
		}
		return logActivity(ctx, st, p, "patient_deleted", "Paciente "+patient.Name+" excluído", "patient", id)
	})
}

func checkPatientRefs(ctx context.Context, st Store, cityID, collaboratorID *uuid.UUID) error {
	if cityID != nil {
		if _, err := st.GetCity(ctx, *cityID); errors.Is(err, repo.ErrNotFound) {
			return invalid("cidade não encontrada")
		} else if err != nil {
			return err
		}
	}
	if collaboratorID != nil {
		if _, err := st.GetCollaborator(ctx, *collaboratorID); errors.Is(err, repo.ErrNotFound) {
			return invalid("colaborador não encontrado")
		} else if err != nil {
			return err
		}
	}
	return nil
}
