package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/util"
)

// GoalProgress são percentuais sobre as metas. Meta zerada dá 0.
type GoalProgress struct {
	Monthly       float64 `json:"monthly"`
	Quarterly     float64 `json:"quarterly"`
	Yearly        float64 `json:"yearly"`
	Consultations float64 `json:"consultations"`
}

type CollaboratorMetrics struct {
	CollaboratorID         uuid.UUID    `json:"collaboratorId"`
	RevenueThisMonth       float64      `json:"revenueThisMonth"`
	RevenueThisQuarter     float64      `json:"revenueThisQuarter"`
	RevenueThisYear        float64      `json:"revenueThisYear"`
	ConsultationsThisMonth int          `json:"consultationsThisMonth"`
	RevenueGoal            float64      `json:"revenueGoal"`
	ConsultationGoal       int          `json:"consultationGoal"`
	GoalProgress           GoalProgress `json:"goalProgress"`
}

type GlobalStats struct {
	TotalPatients   int                 `json:"totalPatients"`
	ActivePatients  int                 `json:"activePatients"`
	StalledPatients int                 `json:"stalledPatients"`
	TotalRevenue    float64             `json:"totalRevenue"`
	TopPerformers   []repo.TopPerformer `json:"topPerformers"`
	MonthlyGrowth   *float64            `json:"monthlyGrowth"`
	WeeklyGrowth    *float64            `json:"weeklyGrowth"`
}

// PatientBreakdown resume a carteira de pacientes.
type PatientBreakdown struct {
	Total               int            `json:"total"`
	ByStatus            map[string]int `json:"byStatus"`
	ByFollowup          map[string]int `json:"byFollowup"`
	IncompleteRegisters int            `json:"incompleteRegistrations"`
}

type Dashboard struct {
	Scope              string               `json:"scope"`
	Patients           PatientBreakdown     `json:"patients"`
	StalledPatients    int                  `json:"stalledPatients"`
	PendingEvents      int                  `json:"pendingEvents"`
	UpcomingEvents     []repo.EventDetail   `json:"upcomingEvents"`
	RevenueThisMonth   float64              `json:"revenueThisMonth"`
	TotalCollaborators *int                 `json:"totalCollaborators,omitempty"`
	Metrics            *CollaboratorMetrics `json:"metrics,omitempty"`
}

func percent(value, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return value / goal * 100
}

// growth devolve a variação percentual, ou nil quando a base é zero.
func growth(current, base float64) *float64 {
	if base == 0 {
		return nil
	}
	v := (current - base) / base * 100
	return &v
}

// CollaboratorMetrics calcula receita por janela de calendário e o
// progresso sobre as metas do colaborador.
func (s *ClinicService) CollaboratorMetrics(ctx context.Context, p auth.Principal, id uuid.UUID) (CollaboratorMetrics, error) {
	if err := collaboratorAccess(p, id); err != nil {
		return CollaboratorMetrics{}, err
	}
	collab, err := s.store.GetCollaborator(ctx, id)
	if err != nil {
		return CollaboratorMetrics{}, err
	}
	return s.collaboratorMetrics(ctx, collab.Collaborator)
}

func (s *ClinicService) collaboratorMetrics(ctx context.Context, collab repo.Collaborator) (CollaboratorMetrics, error) {
	now := s.now()
	month := util.StartOfMonth(now)
	nextMonth := month.AddDate(0, 1, 0)
	quarter := util.StartOfQuarter(now)
	nextQuarter := quarter.AddDate(0, 3, 0)
	year := util.StartOfYear(now)
	nextYear := year.AddDate(1, 0, 0)

	m := CollaboratorMetrics{
		CollaboratorID:   collab.ID,
		RevenueGoal:      collab.RevenueGoal,
		ConsultationGoal: collab.ConsultationGoal,
	}
	var err error
	if m.RevenueThisMonth, err = s.store.SumProcedureValue(ctx, &collab.ID, &month, &nextMonth); err != nil {
		return m, err
	}
	if m.RevenueThisQuarter, err = s.store.SumProcedureValue(ctx, &collab.ID, &quarter, &nextQuarter); err != nil {
		return m, err
	}
	if m.RevenueThisYear, err = s.store.SumProcedureValue(ctx, &collab.ID, &year, &nextYear); err != nil {
		return m, err
	}
	consultation := repo.EventConsultation
	if m.ConsultationsThisMonth, err = s.store.CountEvents(ctx, repo.EventFilter{
		CollaboratorID:   &collab.ID,
		Type:             &consultation,
		From:             &month,
		To:               &nextMonth,
		ExcludeCancelled: true,
	}); err != nil {
		return m, err
	}

	m.GoalProgress = GoalProgress{
		Monthly:       percent(m.RevenueThisMonth, collab.RevenueGoal),
		Quarterly:     percent(m.RevenueThisQuarter, collab.RevenueGoal*3),
		Yearly:        percent(m.RevenueThisYear, collab.RevenueGoal*12),
		Consultations: percent(float64(m.ConsultationsThisMonth), float64(collab.ConsultationGoal)),
	}
	return m, nil
}

// GlobalStats agrega a clínica inteira. from/to filtram só a receita total.
func (s *ClinicService) GlobalStats(ctx context.Context, p auth.Principal, from, to *time.Time) (GlobalStats, error) {
	if err := requireAdmin(p); err != nil {
		return GlobalStats{}, err
	}
	now := s.now()
	var (
		stats GlobalStats
		err   error
	)

	if stats.TotalPatients, err = s.store.CountPatients(ctx, repo.PatientFilter{}); err != nil {
		return stats, err
	}
	active := repo.PatientActive
	if stats.ActivePatients, err = s.store.CountPatients(ctx, repo.PatientFilter{Status: &active}); err != nil {
		return stats, err
	}
	if stats.StalledPatients, err = s.store.CountStalledPatients(ctx, nil); err != nil {
		return stats, err
	}
	if stats.TotalRevenue, err = s.store.SumProcedureValue(ctx, nil, from, to); err != nil {
		return stats, err
	}
	if stats.TopPerformers, err = s.store.TopPerformers(ctx, from, to, 5); err != nil {
		return stats, err
	}

	month := util.StartOfMonth(now)
	nextMonth := month.AddDate(0, 1, 0)
	prevMonth := month.AddDate(0, -1, 0)
	thisMonth, err := s.store.SumProcedureValue(ctx, nil, &month, &nextMonth)
	if err != nil {
		return stats, err
	}
	lastMonth, err := s.store.SumProcedureValue(ctx, nil, &prevMonth, &month)
	if err != nil {
		return stats, err
	}
	stats.MonthlyGrowth = growth(thisMonth, lastMonth)

	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)
	thisWeek, err := s.store.SumProcedureValue(ctx, nil, &weekAgo, &now)
	if err != nil {
		return stats, err
	}
	lastWeek, err := s.store.SumProcedureValue(ctx, nil, &twoWeeksAgo, &weekAgo)
	if err != nil {
		return stats, err
	}
	stats.WeeklyGrowth = growth(thisWeek, lastWeek)

	if stats.TopPerformers == nil {
		stats.TopPerformers = []repo.TopPerformer{}
	}
	return stats, nil
}

// Dashboard monta o painel: visão global para o admin e carteira própria
// para o colaborador.
func (s *ClinicService) Dashboard(ctx context.Context, p auth.Principal) (Dashboard, error) {
	scoped, err := scope(p)
	if err != nil {
		return Dashboard{}, err
	}
	return s.dashboard(ctx, p, scoped)
}

// CollaboratorDashboard é o painel de um colaborador específico.
func (s *ClinicService) CollaboratorDashboard(ctx context.Context, p auth.Principal, id uuid.UUID) (Dashboard, error) {
	if err := collaboratorAccess(p, id); err != nil {
		return Dashboard{}, err
	}
	if _, err := s.store.GetCollaborator(ctx, id); err != nil {
		return Dashboard{}, err
	}
	return s.dashboard(ctx, p, &id)
}

func (s *ClinicService) dashboard(ctx context.Context, p auth.Principal, collaboratorID *uuid.UUID) (Dashboard, error) {
	now := s.now()
	d := Dashboard{Scope: "global"}
	if collaboratorID != nil {
		d.Scope = "collaborator"
	}

	counts, err := s.store.PatientStatusCounts(ctx, collaboratorID)
	if err != nil {
		return d, err
	}
	d.Patients = breakdown(counts)

	if d.StalledPatients, err = s.store.CountStalledPatients(ctx, collaboratorID); err != nil {
		return d, err
	}
	if d.PendingEvents, err = s.store.CountEvents(ctx, repo.EventFilter{CollaboratorID: collaboratorID, To: &now, OpenOnly: true}); err != nil {
		return d, err
	}
	if d.UpcomingEvents, err = s.store.ListEvents(ctx, repo.EventFilter{CollaboratorID: collaboratorID, From: &now, OpenOnly: true, Limit: 5}); err != nil {
		return d, err
	}
	if d.UpcomingEvents == nil {
		d.UpcomingEvents = []repo.EventDetail{}
	}

	month := util.StartOfMonth(now)
	nextMonth := month.AddDate(0, 1, 0)
	if d.RevenueThisMonth, err = s.store.SumProcedureValue(ctx, collaboratorID, &month, &nextMonth); err != nil {
		return d, err
	}

	if collaboratorID == nil {
		total, err := s.store.CountCollaborators(ctx, nil)
		if err != nil {
			return d, err
		}
		d.TotalCollaborators = &total
		return d, nil
	}

	collab, err := s.store.GetCollaborator(ctx, *collaboratorID)
	if err != nil {
		return d, err
	}
	metrics, err := s.collaboratorMetrics(ctx, collab.Collaborator)
	if err != nil {
		return d, err
	}
	d.Metrics = &metrics
	return d, nil
}

func breakdown(counts []repo.PatientCount) PatientBreakdown {
	b := PatientBreakdown{ByStatus: map[string]int{}, ByFollowup: map[string]int{}}
	for _, c := range counts {
		b.Total += c.Count
		b.ByStatus[string(c.Status)] += c.Count
		if c.Status == repo.PatientDeactivated {
			continue
		}
		if c.FollowupStatus != "" {
			b.ByFollowup[c.FollowupStatus] += c.Count
		}
		if !c.IsRegistrationComplete {
			b.IncompleteRegisters += c.Count
		}
	}
	return b
}

// Activity devolve a trilha de auditoria: tudo para o admin, só a própria
// para o colaborador.
func (s *ClinicService) Activity(ctx context.Context, p auth.Principal, limit int) ([]repo.ActivityLog, error) {
	var userID *uuid.UUID
	if !p.IsAdmin() {
		id := p.UserID
		userID = &id
	}
	return s.store.ListActivity(ctx, userID, limit)
}
