package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, title, description, collaborator_id, patient_id, created_by, priority, status,
        due_date, recurrence, completed_at, created_at, updated_at`

func scanTask(row pgx.Row) (AdminTask, error) {
	var t AdminTask
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.CollaboratorID, &t.PatientID, &t.CreatedBy, &t.Priority, &t.Status,
		&t.DueDate, &t.Recurrence, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	return t, notFound(err)
}

func (q *Queries) CreateTask(ctx context.Context, arg CreateTaskParams) (AdminTask, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO admin_tasks (title, description, collaborator_id, patient_id, created_by, priority, status, due_date, recurrence)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+taskColumns,
		arg.Title, arg.Description, arg.CollaboratorID, arg.PatientID, arg.CreatedBy, arg.Priority, arg.Status, arg.DueDate, arg.Recurrence)
	return scanTask(row)
}

func (q *Queries) GetTask(ctx context.Context, id uuid.UUID) (AdminTask, error) {
	return scanTask(q.conn.QueryRow(ctx, `SELECT `+taskColumns+` FROM admin_tasks WHERE id = $1`, id))
}

// ListTasks ordena por prazo, sem prazo por último.
func (q *Queries) ListTasks(ctx context.Context, filter TaskFilter) ([]AdminTask, error) {
	w := &where{}
	if filter.CollaboratorID != nil {
		w.add("collaborator_id = $%[1]d", *filter.CollaboratorID)
	}
	if filter.Status != nil {
		w.add("status = $%[1]d", *filter.Status)
	}
	if filter.Priority != nil {
		w.add("priority = $%[1]d", *filter.Priority)
	}
	rows, err := q.conn.Query(ctx, `SELECT `+taskColumns+` FROM admin_tasks`+w.sql()+` ORDER BY due_date NULLS LAST, created_at DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTask)
}

func (q *Queries) UpdateTask(ctx context.Context, id uuid.UUID, set UpdateSet) (AdminTask, error) {
	if set.Len() == 0 {
		return q.GetTask(ctx, id)
	}
	query, args := set.SQL("admin_tasks", id, true, taskColumns)
	return scanTask(q.conn.QueryRow(ctx, query, args...))
}
