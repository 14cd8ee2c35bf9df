package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/util"
)

type CreateUserInput struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Name     string    `json:"name"`
	Role     repo.Role `json:"role"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *ClinicService) ListUsers(ctx context.Context, p auth.Principal) ([]repo.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx)
}

// CreateUser cadastra um login. Papel padrão: collaborator.
func (s *ClinicService) CreateUser(ctx context.Context, p auth.Principal, in CreateUserInput) (repo.User, error) {
	if err := requireAdmin(p); err != nil {
		return repo.User{}, err
	}

	var errs issues
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if err := util.ValidateUsername(username); err != nil {
		errs.add("username", err.Error())
	}
	if err := util.ValidatePassword(in.Password); err != nil {
		errs.add("password", err.Error())
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs.add("name", "obrigatório")
	}
	role := in.Role
	if role == "" {
		role = repo.RoleCollaborator
	}
	if !role.Valid() {
		errs.add("role", "valor inválido: "+string(role))
	}
	if err := errs.err(); err != nil {
		return repo.User{}, err
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return repo.User{}, conflict("usuário %q já existe", username)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return repo.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return repo.User{}, err
	}

	var user repo.User
	err = s.store.WithTx(ctx, func(st Store) error {
		var err error
		user, err = st.CreateUser(ctx, repo.CreateUserParams{
			Username:     username,
			PasswordHash: hash,
			Name:         name,
			Role:         role,
		})
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "user_created", "Usuário "+username+" criado", "user", user.ID)
	})
	return user, err
}

// PromoteUser torna o usuário administrador.
func (s *ClinicService) PromoteUser(ctx context.Context, p auth.Principal, id uuid.UUID) (repo.User, error) {
	if err := requireAdmin(p); err != nil {
		return repo.User{}, err
	}
	var user repo.User
	err := s.store.WithTx(ctx, func(st Store) error {
		var err error
		user, err = st.UpdateUserRole(ctx, id, repo.RoleAdmin)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "user_promoted", "Usuário "+user.Username+" promovido a administrador", "user", user.ID)
	})
	return user, err
}

// ChangePassword troca a senha. O próprio usuário precisa informar a
// senha atual; administradores podem redefinir a de qualquer um.
func (s *ClinicService) ChangePassword(ctx context.Context, p auth.Principal, id uuid.UUID, in ChangePasswordInput) error {
	self := p.UserID == id
	if !self && !p.IsAdmin() {
		return ErrForbidden
	}
	if err := util.ValidatePassword(in.NewPassword); err != nil {
		return &ValidationError{Message: "dados inválidos", Issues: []Issue{{Field: "newPassword", Message: err.Error()}}}
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if self {
		ok, err := auth.VerifyPassword(in.CurrentPassword, user.PasswordHash)
		if err != nil || !ok {
			return invalid("senha atual incorreta")
		}
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		if err := st.UpdateUserPassword(ctx, id, hash); err != nil {
			return err
		}
		return logActivity(ctx, st, p, "password_changed", "Senha de "+user.Username+" alterada", "user", id)
	})
}
