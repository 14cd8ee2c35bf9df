package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const noteColumns = `id, patient_id, collaborator_id, type, title, content, amount, created_at`

func scanNote(row pgx.Row) (PatientNote, error) {
	var n PatientNote
	err := row.Scan(&n.ID, &n.PatientID, &n.CollaboratorID, &n.Type, &n.Title, &n.Content, &n.Amount, &n.CreatedAt)
	return n, notFound(err)
}

func (q *Queries) CreateNote(ctx context.Context, arg CreateNoteParams) (PatientNote, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO patient_notes (patient_id, collaborator_id, type, title, content, amount)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+noteColumns,
		arg.PatientID, arg.CollaboratorID, arg.Type, arg.Title, arg.Content, arg.Amount)
	return scanNote(row)
}

// ListNotes devolve a linha do tempo, mais recentes primeiro.
func (q *Queries) ListNotes(ctx context.Context, patientID uuid.UUID) ([]PatientNote, error) {
	rows, err := q.conn.Query(ctx, `
        SELECT `+noteColumns+` FROM patient_notes
        WHERE patient_id = $1
        ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanNote)
}

const fileColumns = `id, patient_id, uploaded_by, file_name, content_type, size_bytes, url, created_at`

func scanFile(row pgx.Row) (PatientFile, error) {
	var f PatientFile
	err := row.Scan(&f.ID, &f.PatientID, &f.UploadedBy, &f.FileName, &f.ContentType, &f.SizeBytes, &f.URL, &f.CreatedAt)
	return f, notFound(err)
}

func (q *Queries) CreateFile(ctx context.Context, arg CreateFileParams) (PatientFile, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO patient_files (patient_id, uploaded_by, file_name, content_type, size_bytes, url)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+fileColumns,
		arg.PatientID, arg.UploadedBy, arg.FileName, arg.ContentType, arg.SizeBytes, arg.URL)
	return scanFile(row)
}

func (q *Queries) ListFiles(ctx context.Context, patientID uuid.UUID) ([]PatientFile, error) {
	rows, err := q.conn.Query(ctx, `
        SELECT `+fileColumns+` FROM patient_files
        WHERE patient_id = $1
        ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanFile)
}
