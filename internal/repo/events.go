package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, collaborator_id, patient_id, procedure_id, title, description, type, status, start_date, end_date,
        completion_type, completion_notes, completed_at, requires_feedback, feedback_completed, feedback_question,
        feedback_response, patient_responded, feedback_date, created_at, updated_at`

const eventDetailSelect = `
        SELECT e.id, e.collaborator_id, e.patient_id, e.procedure_id, e.title, e.description, e.type, e.status, e.start_date, e.end_date,
               e.completion_type, e.completion_notes, e.completed_at, e.requires_feedback, e.feedback_completed, e.feedback_question,
               e.feedback_response, e.patient_responded, e.feedback_date, e.created_at, e.updated_at,
               p.name, u.name
        FROM events e
        JOIN collaborators c ON c.id = e.collaborator_id
        JOIN users u ON u.id = c.user_id
        LEFT JOIN patients p ON p.id = e.patient_id`

func eventFields(e *Event) []any {
	return []any{&e.ID, &e.CollaboratorID, &e.PatientID, &e.ProcedureID, &e.Title, &e.Description, &e.Type, &e.Status, &e.StartDate, &e.EndDate,
		&e.CompletionType, &e.CompletionNotes, &e.CompletedAt, &e.RequiresFeedback, &e.FeedbackCompleted, &e.FeedbackQuestion,
		&e.FeedbackResponse, &e.PatientResponded, &e.FeedbackDate, &e.CreatedAt, &e.UpdatedAt}
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(eventFields(&e)...)
	return e, notFound(err)
}

func scanEventDetail(row pgx.Row) (EventDetail, error) {
	var d EventDetail
	err := row.Scan(append(eventFields(&d.Event), &d.PatientName, &d.CollaboratorName)...)
	return d, notFound(err)
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO events (collaborator_id, patient_id, procedure_id, title, description, type, status,
                            start_date, end_date, requires_feedback, feedback_question)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+eventColumns,
		arg.CollaboratorID, arg.PatientID, arg.ProcedureID, arg.Title, arg.Description, arg.Type, arg.Status,
		arg.StartDate, arg.EndDate, arg.RequiresFeedback, arg.FeedbackQuestion)
	return scanEvent(row)
}

func (q *Queries) GetEvent(ctx context.Context, id uuid.UUID) (EventDetail, error) {
	return scanEventDetail(q.conn.QueryRow(ctx, eventDetailSelect+` WHERE e.id = $1`, id))
}

func eventWhere(filter EventFilter) *where {
	w := &where{}
	if filter.CollaboratorID != nil {
		w.add("e.collaborator_id = $%[1]d", *filter.CollaboratorID)
	}
	if filter.PatientID != nil {
		w.add("e.patient_id = $%[1]d", *filter.PatientID)
	}
	if filter.Status != nil {
		w.add("e.status = $%[1]d", *filter.Status)
	}
	if filter.Type != nil {
		w.add("e.type = $%[1]d", *filter.Type)
	}
	if filter.From != nil {
		w.add("e.start_date >= $%[1]d", *filter.From)
	}
	if filter.To != nil {
		w.add("e.start_date < $%[1]d", *filter.To)
	}
	if filter.OpenOnly {
		w.raw("e.status IN ('pending', 'confirmed')")
	}
	if filter.ExcludeCancelled {
		w.raw("e.status <> 'cancelled'")
	}
	return w
}

// ListEvents devolve a agenda em ordem cronológica.
func (q *Queries) ListEvents(ctx context.Context, filter EventFilter) ([]EventDetail, error) {
	w := eventWhere(filter)
	query := eventDetailSelect + w.sql() + ` ORDER BY e.start_date`
	args := w.args
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", w.next())
		args = append(args, filter.Limit)
	}
	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanEventDetail)
}

func (q *Queries) CountEvents(ctx context.Context, filter EventFilter) (int, error) {
	w := eventWhere(filter)
	var n int
	err := q.conn.QueryRow(ctx, `SELECT COUNT(*) FROM events e`+w.sql(), w.args...).Scan(&n)
	return n, err
}

func (q *Queries) UpdateEvent(ctx context.Context, id uuid.UUID, set UpdateSet) (Event, error) {
	if set.Len() == 0 {
		d, err := q.GetEvent(ctx, id)
		return d.Event, err
	}
	query, args := set.SQL("events", id, true, eventColumns)
	return scanEvent(q.conn.QueryRow(ctx, query, args...))
}
