package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
)

type CreateProgressInput struct {
	Status               string  `json:"status"`
	IsStalled            bool    `json:"isStalled"`
	StallReason          *string `json:"stallReason"`
	DaysSinceLastContact *Int    `json:"daysSinceLastContact"`
	NextAction           *string `json:"nextAction"`
	NextActionDate       *Date   `json:"nextActionDate"`
}

func (s *ClinicService) ListProgress(ctx context.Context, p auth.Principal, patientID uuid.UUID) ([]repo.PatientProgress, error) {
	if _, err := patientFor(ctx, s.store, p, patientID); err != nil {
		return nil, err
	}
	return s.store.ListProgress(ctx, patientID)
}

// CreateProgress acrescenta um registro ao histórico. O status anterior vem
// do último registro e, sem valor informado, os dias sem contato são
// contados a partir da última consulta.
func (s *ClinicService) CreateProgress(ctx context.Context, p auth.Principal, patientID uuid.UUID, in CreateProgressInput) (repo.PatientProgress, error) {
	var errs issues
	status := strings.TrimSpace(in.Status)
	if status == "" {
		errs.add("status", "obrigatório")
	}
	if in.DaysSinceLastContact != nil && *in.DaysSinceLastContact < 0 {
		errs.add("daysSinceLastContact", "não pode ser negativo")
	}
	if err := errs.err(); err != nil {
		return repo.PatientProgress{}, err
	}
	now := s.now()

	var progress repo.PatientProgress
	err := s.store.WithTx(ctx, func(st Store) error {
		patient, err := patientFor(ctx, st, p, patientID)
		if err != nil {
			return err
		}
		history, err := st.ListProgress(ctx, patientID)
		if err != nil {
			return err
		}

		arg := repo.CreateProgressParams{
			PatientID:      patientID,
			CollaboratorID: p.CollaboratorID,
			Status:         status,
			IsStalled:      in.IsStalled,
			StallReason:    trimmed(in.StallReason),
			NextAction:     trimmed(in.NextAction),
			NextActionDate: in.NextActionDate.ptr(),
		}
		if arg.CollaboratorID == nil {
			arg.CollaboratorID = patient.CollaboratorID
		}
		if len(history) > 0 {
			arg.PreviousStatus = &history[0].Status
		}
		switch {
		case in.DaysSinceLastContact != nil:
			arg.DaysSinceLastContact = int(*in.DaysSinceLastContact)
		case patient.LastConsultationDate != nil && patient.LastConsultationDate.Before(now):
			arg.DaysSinceLastContact = int(now.Sub(*patient.LastConsultationDate).Hours() / 24)
		}

		progress, err = st.CreateProgress(ctx, arg)
		if err != nil {
			return err
		}
		kind := "patient_progress"
		if progress.IsStalled {
			kind = "patient_stalled"
		}
		return logActivity(ctx, st, p, kind, "Acompanhamento de "+patient.Name+": "+status, "patient", patientID)
	})
	return progress, err
}

// StalledPatients lista pacientes cujo último acompanhamento está parado.
func (s *ClinicService) StalledPatients(ctx context.Context, p auth.Principal) ([]repo.StalledPatient, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.store.ListStalledPatients(ctx, nil)
}
