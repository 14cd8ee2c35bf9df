package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/util"
)

type UpsertPerformanceInput struct {
	CollaboratorID      *uuid.UUID `json:"collaboratorId"`
	Date                *Date      `json:"date"`
	Contacts            *Int       `json:"contacts"`
	Appointments        *Int       `json:"appointments"`
	ProceduresCompleted *Int       `json:"proceduresCompleted"`
	Revenue             *Number    `json:"revenue"`
	Feedbacks           *Int       `json:"feedbacks"`
	TasksCompleted      *Int       `json:"tasksCompleted"`
	SatisfactionScore   *Number    `json:"satisfactionScore"`
}

// UpsertPerformance grava o retrato diário (um por colaborador e dia).
func (s *ClinicService) UpsertPerformance(ctx context.Context, p auth.Principal, in UpsertPerformanceInput) (repo.PerformanceMetric, error) {
	collaboratorID := in.CollaboratorID
	if collaboratorID == nil {
		collaboratorID = p.CollaboratorID
	}
	if collaboratorID == nil {
		return repo.PerformanceMetric{}, &ValidationError{Message: "dados inválidos", Issues: []Issue{{Field: "collaboratorId", Message: "obrigatório"}}}
	}
	if err := collaboratorAccess(p, *collaboratorID); err != nil {
		return repo.PerformanceMetric{}, err
	}

	var errs issues
	counters := []struct {
		field string
		value *Int
	}{
		{"contacts", in.Contacts},
		{"appointments", in.Appointments},
		{"proceduresCompleted", in.ProceduresCompleted},
		{"feedbacks", in.Feedbacks},
		{"tasksCompleted", in.TasksCompleted},
	}
	values := make([]int, len(counters))
	for i, c := range counters {
		if c.value == nil {
			continue
		}
		if *c.value < 0 {
			errs.add(c.field, "não pode ser negativo")
		}
		values[i] = int(*c.value)
	}
	if in.Revenue != nil && *in.Revenue < 0 {
		errs.add("revenue", "não pode ser negativo")
	}
	if in.SatisfactionScore != nil && (*in.SatisfactionScore < 0 || *in.SatisfactionScore > 10) {
		errs.add("satisfactionScore", "deve estar entre 0 e 10")
	}
	if err := errs.err(); err != nil {
		return repo.PerformanceMetric{}, err
	}

	day := util.StartOfDay(s.now())
	if in.Date != nil {
		day = util.StartOfDay(in.Date.Time)
	}
	arg := repo.UpsertPerformanceParams{
		CollaboratorID:      *collaboratorID,
		Date:                day,
		Contacts:            values[0],
		Appointments:        values[1],
		ProceduresCompleted: values[2],
		Feedbacks:           values[3],
		TasksCompleted:      values[4],
		SatisfactionScore:   in.SatisfactionScore.ptr(),
	}
	if in.Revenue != nil {
		arg.Revenue = float64(*in.Revenue)
	}

	var metric repo.PerformanceMetric
	err := s.store.WithTx(ctx, func(st Store) error {
		if _, err := st.GetCollaborator(ctx, *collaboratorID); errors.Is(err, repo.ErrNotFound) {
			return invalid("colaborador não encontrado")
		} else if err != nil {
			return err
		}
		var err error
		metric, err = st.UpsertPerformance(ctx, arg)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "performance_recorded", "Desempenho de "+day.Format("02/01/2006")+" registrado", "collaborator", *collaboratorID)
	})
	return metric, err
}

// ListPerformance devolve os retratos em [from, to). Padrão: últimos 30 dias.
func (s *ClinicService) ListPerformance(ctx context.Context, p auth.Principal, collaboratorID uuid.UUID, from, to *time.Time) ([]repo.PerformanceMetric, error) {
	if err := collaboratorAccess(p, collaboratorID); err != nil {
		return nil, err
	}
	start, end := s.window(from, to, 30)
	return s.store.ListPerformance(ctx, collaboratorID, start, end)
}

// PerformanceRankings ordena colaboradores pela receita registrada no período.
func (s *ClinicService) PerformanceRankings(ctx context.Context, p auth.Principal, from, to *time.Time) ([]repo.PerformanceRanking, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	start, end := s.window(from, to, 30)
	return s.store.PerformanceRankings(ctx, start, end)
}

// window completa um intervalo [from, to) a partir do dia seguinte a hoje.
func (s *ClinicService) window(from, to *time.Time, days int) (time.Time, time.Time) {
	end := util.StartOfDay(s.now()).AddDate(0, 0, 1)
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -days)
	if from != nil {
		start = *from
	}
	return start, end
}
