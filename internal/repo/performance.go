package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const performanceColumns = `id, collaborator_id, date, contacts, appointments, procedures_completed, revenue,
        feedbacks, tasks_completed, satisfaction_score, created_at`

func scanPerformance(row pgx.Row) (PerformanceMetric, error) {
	var m PerformanceMetric
	err := row.Scan(&m.ID, &m.CollaboratorID, &m.Date, &m.Contacts, &m.Appointments, &m.ProceduresCompleted, &m.Revenue,
		&m.Feedbacks, &m.TasksCompleted, &m.SatisfactionScore, &m.CreatedAt)
	return m, notFound(err)
}

// UpsertPerformance grava o retrato do dia, substituindo o existente.
func (q *Queries) UpsertPerformance(ctx context.Context, arg UpsertPerformanceParams) (PerformanceMetric, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO performance_metrics (collaborator_id, date, contacts, appointments, procedures_completed, revenue,
                                         feedbacks, tasks_completed, satisfaction_score)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (collaborator_id, date) DO UPDATE SET
            contacts = EXCLUDED.contacts,
            appointments = EXCLUDED.appointments,
            procedures_completed = EXCLUDED.procedures_completed,
            revenue = EXCLUDED.revenue,
            feedbacks = EXCLUDED.feedbacks,
            tasks_completed = EXCLUDED.tasks_completed,
            satisfaction_score = EXCLUDED.satisfaction_score
        RETURNING `+performanceColumns,
		arg.CollaboratorID, arg.Date, arg.Contacts, arg.Appointments, arg.ProceduresCompleted, arg.Revenue,
		arg.Feedbacks, arg.TasksCompleted, arg.SatisfactionScore)
	return scanPerformance(row)
}

// ListPerformance devolve os retratos em [from, to).
func (q *Queries) ListPerformance(ctx context.Context, collaboratorID uuid.UUID, from, to time.Time) ([]PerformanceMetric, error) {
	rows, err := q.conn.Query(ctx, `
        SELECT `+performanceColumns+` FROM performance_metrics
        WHERE collaborator_id = $1 AND date >= $2 AND date < $3
        ORDER BY date`, collaboratorID, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPerformance)
}

// PerformanceRankings soma os retratos por colaborador em [from, to).
func (q *Queries) PerformanceRankings(ctx context.Context, from, to time.Time) ([]PerformanceRanking, error) {
	rows, err := q.conn.Query(ctx, `
        SELECT c.id, u.name,
               COALESCE(SUM(m.contacts), 0), COALESCE(SUM(m.appointments), 0), COALESCE(SUM(m.procedures_completed), 0),
               COALESCE(SUM(m.revenue), 0)::float8, COALESCE(SUM(m.feedbacks), 0), COALESCE(SUM(m.tasks_completed), 0),
               AVG(m.satisfaction_score)::float8
        FROM collaborators c
        JOIN users u ON u.id = c.user_id
        JOIN performance_metrics m ON m.collaborator_id = c.id AND m.date >= $1 AND m.date < $2
        GROUP BY c.id, u.name
        ORDER BY 6 DESC, u.name`, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (PerformanceRanking, error) {
		var r PerformanceRanking
		err := row.Scan(&r.CollaboratorID, &r.Name, &r.Contacts, &r.Appointments, &r.ProceduresCompleted,
			&r.Revenue, &r.Feedbacks, &r.TasksCompleted, &r.AvgSatisfaction)
		return r, err
	})
}
