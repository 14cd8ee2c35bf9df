package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// UploadInput representa um arquivo a ser guardado.
type UploadInput struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
}

// UploadResult descreve o objeto persistido.
type UploadResult struct {
	URL  string
	ETag string
}

// Uploader guarda fotos e anexos de pacientes.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

// PatientKey monta a chave "patients/<id>/<kind>/<uuid>-<arquivo>".
func PatientKey(patientID uuid.UUID, kind, fileName string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "arquivo"
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	return fmt.Sprintf("patients/%s/%s/%s-%s", patientID, kind, uuid.NewString()[:8], base)
}
