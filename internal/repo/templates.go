package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const templateColumns = `id, name, default_price, validity_days, category, is_active, created_at, updated_at`

func scanTemplate(row pgx.Row) (ProcedureTemplate, error) {
	var t ProcedureTemplate
	err := row.Scan(&t.ID, &t.Name, &t.DefaultPrice, &t.ValidityDays, &t.Category, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return t, notFound(err)
}

func (q *Queries) CreateTemplate(ctx context.Context, arg CreateTemplateParams) (ProcedureTemplate, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO procedure_templates (name, default_price, validity_days, category, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+templateColumns,
		arg.Name, arg.DefaultPrice, arg.ValidityDays, arg.Category, arg.IsActive)
	return scanTemplate(row)
}

func (q *Queries) GetTemplate(ctx context.Context, id uuid.UUID) (ProcedureTemplate, error) {
	return scanTemplate(q.conn.QueryRow(ctx, `SELECT `+templateColumns+` FROM procedure_templates WHERE id = $1`, id))
}

func (q *Queries) ListTemplates(ctx context.Context, activeOnly bool) ([]ProcedureTemplate, error) {
	rows, err := q.conn.Query(ctx, `
        SELECT `+templateColumns+` FROM procedure_templates
        WHERE (NOT $1 OR is_active)
        ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTemplate)
}

func (q *Queries) UpdateTemplate(ctx context.Context, id uuid.UUID, set UpdateSet) (ProcedureTemplate, error) {
	if set.Len() == 0 {
		return q.GetTemplate(ctx, id)
	}
	query, args := set.SQL("procedure_templates", id, true, templateColumns)
	return scanTemplate(q.conn.QueryRow(ctx, query, args...))
}

func (q *Queries) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return execOne(q.conn.Exec(ctx, `DELETE FROM procedure_templates WHERE id = $1`, id))
}
