package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const progressColumns = `id, patient_id, collaborator_id, status, previous_status, is_stalled, stall_reason,
        days_since_last_contact, next_action, next_action_date, created_at`

func scanProgress(row pgx.Row) (PatientProgress, error) {
	var p PatientProgress
	err := row.Scan(&p.ID, &p.PatientID, &p.CollaboratorID, &p.Status, &p.PreviousStatus, &p.IsStalled, &p.StallReason,
		&p.DaysSinceLastContact, &p.NextAction, &p.NextActionDate, &p.CreatedAt)
	return p, notFound(err)
}

func (q *Queries) CreateProgress(ctx context.Context, arg CreateProgressParams) (PatientProgress, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO patient_progress (patient_id, collaborator_id, status, previous_status, is_stalled, stall_reason,
                                      days_since_last_contact, next_action, next_action_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+progressColumns,
		arg.PatientID, arg.CollaboratorID, arg.Status, arg.PreviousStatus, arg.IsStalled, arg.StallReason,
		arg.DaysSinceLastContact, arg.NextAction, arg.NextActionDate)
	return scanProgress(row)
}

func (q *Queries) ListProgress(ctx context.Context, patientID uuid.UUID) ([]PatientProgress, error) {
	rows, err := q.conn.Query(ctx, `
        SELECT `+progressColumns+` FROM patient_progress
        WHERE patient_id = $1
        ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProgress)
}

// último registro de progresso por paciente
const latestProgress = `
        SELECT DISTINCT ON (patient_id) patient_id, is_stalled, stall_reason, days_since_last_contact, next_action, created_at
        FROM patient_progress
        ORDER BY patient_id, created_at DESC, id DESC`

// ListStalledPatients devolve pacientes cujo último progresso está parado.
func (q *Queries) ListStalledPatients(ctx context.Context, collaboratorID *uuid.UUID) ([]StalledPatient, error) {
	rows, err := q.conn.Query(ctx, `
        SELECT p.id, p.name, p.collaborator_id, u.name, lp.stall_reason, lp.days_since_last_contact, lp.next_action, lp.created_at
        FROM (`+latestProgress+`) lp
        JOIN patients p ON p.id = lp.patient_id
        LEFT JOIN collaborators c ON c.id = p.collaborator_id
        LEFT JOIN users u ON u.id = c.user_id
        WHERE lp.is_stalled
          AND ($1::uuid IS NULL OR p.collaborator_id = $1)
        ORDER BY lp.days_since_last_contact DESC, p.name`, collaboratorID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (StalledPatient, error) {
		var s StalledPatient
		err := row.Scan(&s.PatientID, &s.PatientName, &s.CollaboratorID, &s.CollaboratorName, &s.StallReason,
			&s.DaysSinceLastContact, &s.NextAction, &s.FlaggedAt)
		return s, err
	})
}

func (q *Queries) CountStalledPatients(ctx context.Context, collaboratorID *uuid.UUID) (int, error) {
	var n int
	err := q.conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM (`+latestProgress+`) lp
        JOIN patients p ON p.id = lp.patient_id
        WHERE lp.is_stalled
          AND ($1::uuid IS NULL OR p.collaborator_id = $1)`, collaboratorID).Scan(&n)
	return n, err
}
