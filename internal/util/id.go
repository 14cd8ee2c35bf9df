package util

import (
	"strings"

	"github.com/google/uuid"
)

// ParseOptionalUUID interpreta string vazia como ausência de valor.
func ParseOptionalUUID(value *string) (*uuid.UUID, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*value))
	if err != nil {
		return nil, err
	}
	return &id, nil
}
