package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const procedureColumns = `id, patient_id, collaborator_id, template_id, name, value, performed_date,
        valid_until, closed_date, status, notes, created_at, updated_at`

const procedureDetailSelect = `
        SELECT pr.id, pr.patient_id, pr.collaborator_id, pr.template_id, pr.name, pr.value, pr.performed_date,
               pr.valid_until, pr.closed_date, pr.status, pr.notes, pr.created_at, pr.updated_at,
               p.name, u.name
        FROM procedures pr
        JOIN patients p ON p.id = pr.patient_id
        JOIN collaborators c ON c.id = pr.collaborator_id
        JOIN users u ON u.id = c.user_id`

func procedureFields(p *Procedure) []any {
	return []any{&p.ID, &p.PatientID, &p.CollaboratorID, &p.TemplateID, &p.Name, &p.Value, &p.PerformedDate,
		&p.ValidUntil, &p.ClosedDate, &p.Status, &p.Notes, &p.CreatedAt, &p.UpdatedAt}
}

func scanProcedure(row pgx.Row) (Procedure, error) {
	var p Procedure
	err := row.Scan(procedureFields(&p)...)
	return p, notFound(err)
}

func scanProcedureDetail(row pgx.Row) (ProcedureDetail, error) {
	var d ProcedureDetail
	err := row.Scan(append(procedureFields(&d.Procedure), &d.PatientName, &d.CollaboratorName)...)
	return d, notFound(err)
}

func (q *Queries) CreateProcedure(ctx context.Context, arg CreateProcedureParams) (Procedure, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO procedures (patient_id, collaborator_id, template_id, name, value, performed_date, valid_until, status, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+procedureColumns,
		arg.PatientID, arg.CollaboratorID, arg.TemplateID, arg.Name, arg.Value, arg.PerformedDate, arg.ValidUntil, arg.Status, arg.Notes)
	return scanProcedure(row)
}

func (q *Queries) GetProcedure(ctx context.Context, id uuid.UUID) (ProcedureDetail, error) {
	return scanProcedureDetail(q.conn.QueryRow(ctx, procedureDetailSelect+` WHERE pr.id = $1`, id))
}

func procedureWhere(filter ProcedureFilter) *where {
	w := &where{}
	if filter.CollaboratorID != nil {
		w.add("pr.collaborator_id = $%[1]d", *filter.CollaboratorID)
	}
	if filter.PatientID != nil {
		w.add("pr.patient_id = $%[1]d", *filter.PatientID)
	}
	if filter.TemplateID != nil {
		w.add("pr.template_id = $%[1]d", *filter.TemplateID)
	}
	if filter.Status != nil {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		// status efetivo: ativo com validade vencida conta como expired.
		w.args = append(w.args, now, string(*filter.Status))
		n := len(w.args)
		w.raw(fmt.Sprintf(`(CASE WHEN pr.status = 'active' AND pr.valid_until < $%d THEN 'expired' ELSE pr.status END) = $%d`, n-1, n))
	}
	if filter.ExpiringBefore != nil {
		w.raw("pr.status = 'active'")
		w.add("pr.valid_until IS NOT NULL AND pr.valid_until < $%[1]d", *filter.ExpiringBefore)
	}
	return w
}

func (q *Queries) ListProcedures(ctx context.Context, filter ProcedureFilter) ([]ProcedureDetail, error) {
	w := procedureWhere(filter)
	rows, err := q.conn.Query(ctx, procedureDetailSelect+w.sql()+` ORDER BY pr.performed_date DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProcedureDetail)
}

func (q *Queries) CountProcedures(ctx context.Context, filter ProcedureFilter) (int, error) {
	w := procedureWhere(filter)
	var n int
	err := q.conn.QueryRow(ctx, `SELECT COUNT(*) FROM procedures pr`+w.sql(), w.args...).Scan(&n)
	return n, err
}

// ExpireProcedures grava expired nos procedimentos ativos já vencidos.
func (q *Queries) ExpireProcedures(ctx context.Context, now time.Time) (int64, error) {
	tag, err := q.conn.Exec(ctx, `
        UPDATE procedures SET status = 'expired', updated_at = now()
        WHERE status = 'active' AND valid_until IS NOT NULL AND valid_until < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SumProcedureValue soma o valor dos procedimentos realizados em [from, to).
func (q *Queries) SumProcedureValue(ctx context.Context, collaboratorID *uuid.UUID, from, to *time.Time) (float64, error) {
	var total float64
	err := q.conn.QueryRow(ctx, `
        SELECT COALESCE(SUM(value), 0)::float8
        FROM procedures
        WHERE ($1::uuid IS NULL OR collaborator_id = $1)
          AND ($2::timestamptz IS NULL OR performed_date >= $2)
          AND ($3::timestamptz IS NULL OR performed_date < $3)`,
		collaboratorID, from, to).Scan(&total)
	return total, err
}

// TopPerformers ordena colaboradores pela receita de procedimentos em [from, to).
func (q *Queries) TopPerformers(ctx context.Context, from, to *time.Time, limit int) ([]TopPerformer, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := q.conn.Query(ctx, `
        SELECT c.id, u.name, COALESCE(SUM(pr.value), 0)::float8 AS revenue, COUNT(pr.id)
        FROM collaborators c
        JOIN users u ON u.id = c.user_id
        JOIN procedures pr ON pr.collaborator_id = c.id
        WHERE ($1::timestamptz IS NULL OR pr.performed_date >= $1)
          AND ($2::timestamptz IS NULL OR pr.performed_date < $2)
        GROUP BY c.id, u.name
        ORDER BY revenue DESC, u.name
        LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (TopPerformer, error) {
		var t TopPerformer
		err := row.Scan(&t.CollaboratorID, &t.Name, &t.Revenue, &t.Procedures)
		return t, err
	})
}
