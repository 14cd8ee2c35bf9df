package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials indica usuário inexistente ou senha incorreta.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrUnauthenticated indica sessão ausente ou expirada.
	ErrUnauthenticated = errors.New("sessão inválida ou expirada")
	// ErrForbidden indica acesso negado ao recurso.
	ErrForbidden = errors.New("acesso negado")
)

// Issue aponta um problema em um campo da requisição.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError é devolvido como 400 com a lista de problemas.
type ValidationError struct {
	Message string
	Issues  []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// ConflictError indica violação de integridade, como exclusão bloqueada.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// issues acumula problemas de validação campo a campo.
type issues []Issue

func (is *issues) add(field, message string) {
	*is = append(*is, Issue{Field: field, Message: message})
}

func (is issues) err() error {
	if len(is) == 0 {
		return nil
	}
	return &ValidationError{Message: "dados inválidos", Issues: is}
}
