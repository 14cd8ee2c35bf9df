package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const collaboratorColumns = `id, user_id, city_id, revenue_goal, consultation_goal, is_active, created_at, updated_at`

const collaboratorDetailSelect = `
        SELECT c.id, c.user_id, c.city_id, c.revenue_goal, c.consultation_goal, c.is_active, c.created_at, c.updated_at,
               u.id, u.username, u.name, u.role,
               ci.id, ci.name, ci.state
        FROM collaborators c
        JOIN users u ON u.id = c.user_id
        JOIN cities ci ON ci.id = c.city_id`

func scanCollaborator(row pgx.Row) (Collaborator, error) {
	var c Collaborator
	err := row.Scan(&c.ID, &c.UserID, &c.CityID, &c.RevenueGoal, &c.ConsultationGoal, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, notFound(err)
}

func scanCollaboratorDetail(row pgx.Row) (CollaboratorDetail, error) {
	var d CollaboratorDetail
	err := row.Scan(
		&d.ID, &d.UserID, &d.CityID, &d.RevenueGoal, &d.ConsultationGoal, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
		&d.User.ID, &d.User.Username, &d.User.Name, &d.User.Role,
		&d.City.ID, &d.City.Name, &d.City.State,
	)
	return d, notFound(err)
}

func (q *Queries) CreateCollaborator(ctx context.Context, arg CreateCollaboratorParams) (Collaborator, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO collaborators (user_id, city_id, revenue_goal, consultation_goal, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+collaboratorColumns,
		arg.UserID, arg.CityID, arg.RevenueGoal, arg.ConsultationGoal, arg.IsActive)
	return scanCollaborator(row)
}

func (q *Queries) GetCollaborator(ctx context.Context, id uuid.UUID) (CollaboratorDetail, error) {
	return scanCollaboratorDetail(q.conn.QueryRow(ctx, collaboratorDetailSelect+` WHERE c.id = $1`, id))
}

func (q *Queries) GetCollaboratorByUserID(ctx context.Context, userID uuid.UUID) (Collaborator, error) {
	return scanCollaborator(q.conn.QueryRow(ctx, `SELECT `+collaboratorColumns+` FROM collaborators WHERE user_id = $1`, userID))
}

// ListCollaborators lista com usuário e cidade, opcionalmente por cidade.
func (q *Queries) ListCollaborators(ctx context.Context, cityID *uuid.UUID) ([]CollaboratorDetail, error) {
	rows, err := q.conn.Query(ctx, collaboratorDetailSelect+`
        WHERE ($1::uuid IS NULL OR c.city_id = $1)
        ORDER BY u.name`, cityID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCollaboratorDetail)
}

func (q *Queries) UpdateCollaborator(ctx context.Context, id uuid.UUID, set UpdateSet) (Collaborator, error) {
	if set.Len() == 0 {
		d, err := q.GetCollaborator(ctx, id)
		return d.Collaborator, err
	}
	query, args := set.SQL("collaborators", id, true, collaboratorColumns)
	return scanCollaborator(q.conn.QueryRow(ctx, query, args...))
}

func (q *Queries) DeleteCollaborator(ctx context.Context, id uuid.UUID) error {
	return execOne(q.conn.Exec(ctx, `DELETE FROM collaborators WHERE id = $1`, id))
}

// CountCollaborators conta colaboradores, opcionalmente de uma cidade.
func (q *Queries) CountCollaborators(ctx context.Context, cityID *uuid.UUID) (int, error) {
	var n int
	err := q.conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM collaborators
        WHERE ($1::uuid IS NULL OR city_id = $1)`, cityID).Scan(&n)
	return n, err
}

// CollaboratorRefs conta as linhas que apontam para o colaborador e
// impedem a exclusão (performance_metrics cai em cascata).
type CollaboratorRefs struct {
	Patients   int
	Events     int
	Procedures int
	Tasks      int
	History    int
}

func (r CollaboratorRefs) Total() int {
	return r.Patients + r.Events + r.Procedures + r.Tasks + r.History
}

func (q *Queries) CollaboratorReferences(ctx context.Context, id uuid.UUID) (CollaboratorRefs, error) {
	var r CollaboratorRefs
	err := q.conn.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM patients WHERE collaborator_id = $1),
            (SELECT COUNT(*) FROM events WHERE collaborator_id = $1),
            (SELECT COUNT(*) FROM procedures WHERE collaborator_id = $1),
            (SELECT COUNT(*) FROM admin_tasks WHERE collaborator_id = $1),
            (SELECT COUNT(*) FROM patient_notes WHERE collaborator_id = $1)
              + (SELECT COUNT(*) FROM patient_progress WHERE collaborator_id = $1)
              + (SELECT COUNT(*) FROM patients WHERE deactivated_by = $1)`, id).
		Scan(&r.Patients, &r.Events, &r.Procedures, &r.Tasks, &r.History)
	return r, err
}
