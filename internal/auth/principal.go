package auth

import (
	"context"

	"github.com/google/uuid"
)

// Papéis de usuário.
const (
	RoleAdmin        = "admin"
	RoleCollaborator = "collaborator"
)

// Principal identifica quem está fazendo a requisição.
type Principal struct {
	UserID         uuid.UUID
	SessionID      string
	Username       string
	Name           string
	Role           string
	CollaboratorID *uuid.UUID
}

// IsAdmin informa se o principal tem papel de administrador.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type principalKey struct{}

// WithPrincipal injeta o principal no contexto.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom recupera o principal do contexto.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
