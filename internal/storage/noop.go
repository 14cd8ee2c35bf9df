package storage

import (
	"context"
	"errors"
	"strings"
)

// NoopUploader não guarda o conteúdo, só devolve o caminho sintético
// "/uploads/<chave>". Serve para desenvolvimento sem bucket.
type NoopUploader struct{}

func (NoopUploader) Upload(_ context.Context, input UploadInput) (*UploadResult, error) {
	key := strings.TrimLeft(strings.TrimSpace(input.Key), "/")
	if key == "" {
		return nil, errors.New("storage: chave do objeto obrigatória")
	}
	return &UploadResult{URL: "/uploads/" + key}, nil
}
