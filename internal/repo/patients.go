package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const patientColumns = `id, name, phone, email, cpf, birth_date, address, city_id, collaborator_id,
        classification, status, followup_status, is_registration_complete, last_consultation_date,
        photo_url, notes, deactivated_at, deactivation_reason, deactivated_by, created_at, updated_at`

const patientDetailSelect = `
        SELECT p.id, p.name, p.phone, p.email, p.cpf, p.birth_date, p.address, p.city_id, p.collaborator_id,
               p.classification, p.status, p.followup_status, p.is_registration_complete, p.last_consultation_date,
               p.photo_url, p.notes, p.deactivated_at, p.deactivation_reason, p.deactivated_by, p.created_at, p.updated_at,
               ci.id, ci.name, ci.state,
               c.id, c.user_id, u.name
        FROM patients p
        LEFT JOIN cities ci ON ci.id = p.city_id
        LEFT JOIN collaborators c ON c.id = p.collaborator_id
        LEFT JOIN users u ON u.id = c.user_id`

func patientFields(p *Patient) []any {
	return []any{
		&p.ID, &p.Name, &p.Phone, &p.Email, &p.CPF, &p.BirthDate, &p.Address, &p.CityID, &p.CollaboratorID,
		&p.Classification, &p.Status, &p.FollowupStatus, &p.IsRegistrationComplete, &p.LastConsultationDate,
		&p.PhotoURL, &p.Notes, &p.DeactivatedAt, &p.DeactivationReason, &p.DeactivatedBy, &p.CreatedAt, &p.UpdatedAt,
	}
}

func scanPatient(row pgx.Row) (Patient, error) {
	var p Patient
	err := row.Scan(patientFields(&p)...)
	return p, notFound(err)
}

func scanPatientDetail(row pgx.Row) (PatientDetail, error) {
	var (
		d                   PatientDetail
		cityID, collabID    *uuid.UUID
		cityName, cityState *string
		collabUser          *uuid.UUID
		collabName          *string
	)
	fields := append(patientFields(&d.Patient), &cityID, &cityName, &cityState, &collabID, &collabUser, &collabName)
	if err := row.Scan(fields...); err != nil {
		return d, notFound(err)
	}
	if cityID != nil {
		d.City = &CitySummary{ID: *cityID, Name: deref(cityName), State: deref(cityState)}
	}
	if collabID != nil {
		d.Collaborator = &CollaboratorSummary{ID: *collabID, Name: deref(collabName)}
		if collabUser != nil {
			d.Collaborator.UserID = *collabUser
		}
	}
	return d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (q *Queries) CreatePatient(ctx context.Context, arg CreatePatientParams) (Patient, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO patients (name, phone, email, cpf, birth_date, address, city_id, collaborator_id,
                              classification, status, is_registration_complete, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING `+patientColumns,
		strings.TrimSpace(arg.Name), arg.Phone, arg.Email, arg.CPF, arg.BirthDate, arg.Address, arg.CityID, arg.CollaboratorID,
		arg.Classification, arg.Status, arg.IsRegistrationComplete, arg.Notes)
	return scanPatient(row)
}

func (q *Queries) GetPatient(ctx context.Context, id uuid.UUID) (PatientDetail, error) {
	return scanPatientDetail(q.conn.QueryRow(ctx, patientDetailSelect+` WHERE p.id = $1`, id))
}

func patientWhere(filter PatientFilter) *where {
	w := &where{}
	if filter.CollaboratorID != nil {
		w.add("p.collaborator_id = $%[1]d", *filter.CollaboratorID)
	}
	if filter.CityID != nil {
		w.add("p.city_id = $%[1]d", *filter.CityID)
	}
	if filter.Status != nil {
		w.add("p.status = $%[1]d", *filter.Status)
	}
	if filter.ExcludeStatus != nil {
		w.add("p.status <> $%[1]d", *filter.ExcludeStatus)
	}
	if filter.FollowupStatus != nil {
		w.add("p.followup_status = $%[1]d", *filter.FollowupStatus)
	}
	if filter.IsRegistrationComplete != nil {
		w.add("p.is_registration_complete = $%[1]d", *filter.IsRegistrationComplete)
	}
	if filter.Classification != nil {
		w.add("p.classification = $%[1]d", *filter.Classification)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		w.add("(p.name ILIKE $%[1]d OR p.phone ILIKE $%[1]d OR p.cpf ILIKE $%[1]d OR p.email ILIKE $%[1]d)", "%"+search+"%")
	}
	return w
}

const (
	DefaultPatientLimit = 200
	MaxPatientLimit     = 500
)

// ListPatients lista pacientes com cidade e responsável.
func (q *Queries) ListPatients(ctx context.Context, filter PatientFilter) ([]PatientDetail, error) {
	w := patientWhere(filter)

	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = DefaultPatientLimit
	case limit > MaxPatientLimit:
		limit = MaxPatientLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	idx := w.next()
	query := patientDetailSelect + w.sql() + fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args := append(w.args, limit, offset)

	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPatientDetail)
}

func (q *Queries) CountPatients(ctx context.Context, filter PatientFilter) (int, error) {
	w := patientWhere(filter)
	var n int
	err := q.conn.QueryRow(ctx, `SELECT COUNT(*) FROM patients p`+w.sql(), w.args...).Scan(&n)
	return n, err
}

// PatientStatusCounts agrupa pacientes por status, acompanhamento e cadastro.
func (q *Queries) PatientStatusCounts(ctx context.Context, collaboratorID *uuid.UUID) ([]PatientCount, error) {
	rows, err := q.conn.Query(ctx, `
        SELECT status, COALESCE(followup_status, ''), is_registration_complete, COUNT(*)
        FROM patients
        WHERE ($1::uuid IS NULL OR collaborator_id = $1)
        GROUP BY status, followup_status, is_registration_complete`, collaboratorID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (PatientCount, error) {
		var c PatientCount
		err := row.Scan(&c.Status, &c.FollowupStatus, &c.IsRegistrationComplete, &c.Count)
		return c, err
	})
}

func (q *Queries) UpdatePatient(ctx context.Context, id uuid.UUID, set UpdateSet) (Patient, error) {
	if set.Len() == 0 {
		d, err := q.GetPatient(ctx, id)
		return d.Patient, err
	}
	query, args := set.SQL("patients", id, true, patientColumns)
	return scanPatient(q.conn.QueryRow(ctx, query, args...))
}

func (q *Queries) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return execOne(q.conn.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id))
}
