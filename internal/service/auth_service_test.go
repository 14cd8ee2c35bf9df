package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
	"github.com/gestaozabele/clinica/internal/service/servicetest"
)

func newAuthService(t *testing.T) (*service.AuthService, *servicetest.MemStore, *stubRedis, *countingRecorder) {
	t.Helper()
	store := servicetest.NewMemStore()
	redisStub := &stubRedis{}
	recorder := &countingRecorder{}
	sessions := auth.NewSessionManager(strings.Repeat("s", 32), time.Hour)
	return service.NewAuthService(store, redisStub, sessions, recorder), store, redisStub, recorder
}

func seedUser(t *testing.T, store *servicetest.MemStore, username, password string, role repo.Role) repo.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := store.CreateUser(context.Background(), repo.CreateUserParams{Username: username, PasswordHash: hash, Name: "Ana Paula", Role: role})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestLoginIssuesSessionAndAuthenticates(t *testing.T) {
	svc, store, redisStub, recorder := newAuthService(t)
	ctx := context.Background()
	user := seedUser(t, store, "ana", "SenhaForte123", repo.RoleCollaborator)
	city, _ := store.CreateCity(ctx, repo.CreateCityParams{Name: "Recife", State: "PE"})
	collab, err := store.CreateCollaborator(ctx, repo.CreateCollaboratorParams{UserID: user.ID, CityID: city.ID, IsActive: true})
	if err != nil {
		t.Fatalf("create collaborator: %v", err)
	}

	session, err := svc.Login(ctx, "  ANA ", "SenhaForte123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if session.Collaborator == nil || session.Collaborator.ID != collab.ID {
		t.Fatalf("expected collaborator in session, got %+v", session.Collaborator)
	}
	if len(redisStub.store) != 1 {
		t.Fatalf("expected one redis session, got %v", redisStub.store)
	}

	principal, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.UserID != user.ID || principal.IsAdmin() {
		t.Fatalf("unexpected principal %+v", principal)
	}
	if principal.CollaboratorID == nil || *principal.CollaboratorID != collab.ID {
		t.Fatalf("expected collaborator id on principal, got %v", principal.CollaboratorID)
	}
	if !contains(store.ActivityTypes(), "login") {
		t.Fatalf("expected login activity, got %v", store.ActivityTypes())
	}
	if len(recorder.logins) != 1 || recorder.logins[0] != "ok" {
		t.Fatalf("expected ok login metric, got %v", recorder.logins)
	}
}

func TestLoginRejectsUnknownUserAndWrongPassword(t *testing.T) {
	svc, store, _, recorder := newAuthService(t)
	seedUser(t, store, "ana", "SenhaForte123", repo.RoleAdmin)

	if _, err := svc.Login(context.Background(), "ninguem", "SenhaForte123"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "ana", "errada123"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "", ""); err == nil {
		t.Fatalf("expected validation error for empty credentials")
	}
	if len(recorder.logins) != 2 {
		t.Fatalf("expected two failed attempts recorded, got %v", recorder.logins)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, store, _, _ := newAuthService(t)
	ctx := context.Background()
	seedUser(t, store, "ana", "SenhaForte123", repo.RoleAdmin)

	session, err := svc.Login(ctx, "ana", "SenhaForte123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	principal, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !principal.IsAdmin() || principal.CollaboratorID != nil {
		t.Fatalf("expected admin principal, got %+v", principal)
	}

	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, service.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after logout, got %v", err)
	}
	if err := svc.Logout(ctx, "lixo"); err != nil {
		t.Fatalf("logout with garbage token should be a no-op, got %v", err)
	}
}

func TestAuthenticateRejectsForeignToken(t *testing.T) {
	svc, store, _, _ := newAuthService(t)
	user := seedUser(t, store, "ana", "SenhaForte123", repo.RoleAdmin)

	other := auth.NewSessionManager(strings.Repeat("x", 32), time.Hour)
	token, _, _, err := other.Issue(user.ID, string(user.Role))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, service.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestCeremonyIsSingleUse(t *testing.T) {
	svc, _, _, _ := newAuthService(t)
	ctx := context.Background()
	key := auth.PasskeyLoginKey("ana")

	if err := svc.SaveCeremony(ctx, key, []byte(`{"challenge":"abc"}`), time.Minute); err != nil {
		t.Fatalf("save ceremony: %v", err)
	}
	data, err := svc.TakeCeremony(ctx, key)
	if err != nil {
		t.Fatalf("take ceremony: %v", err)
	}
	if string(data) != `{"challenge":"abc"}` {
		t.Fatalf("unexpected ceremony payload %q", data)
	}
	if _, err := svc.TakeCeremony(ctx, key); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second take, got %v", err)
	}
}

func TestChangePasswordRequiresCurrentForSelf(t *testing.T) {
	f := newFixture(t)
	hash, err := auth.HashPassword("SenhaAntiga1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := f.store.UpdateUserPassword(f.ctx, f.maria.UserID, hash); err != nil {
		t.Fatalf("seed password: %v", err)
	}

	err = f.svc.ChangePassword(f.ctx, f.maria, f.maria.UserID, service.ChangePasswordInput{CurrentPassword: "errada", NewPassword: "SenhaNova123"})
	if verr := expectValidation(t, err, ""); verr.Message != "senha atual incorreta" {
		t.Fatalf("unexpected message %q", verr.Message)
	}
	if err := f.svc.ChangePassword(f.ctx, f.maria, f.maria.UserID, service.ChangePasswordInput{CurrentPassword: "SenhaAntiga1", NewPassword: "SenhaNova123"}); err != nil {
		t.Fatalf("change own password: %v", err)
	}
	expectForbidden(t, f.svc.ChangePassword(f.ctx, f.maria, f.joao.UserID, service.ChangePasswordInput{NewPassword: "SenhaNova123"}))
	if err := f.svc.ChangePassword(f.ctx, f.admin, f.joao.UserID, service.ChangePasswordInput{NewPassword: "SenhaNova123"}); err != nil {
		t.Fatalf("admin reset: %v", err)
	}

	user, _ := f.store.GetUser(f.ctx, f.maria.UserID)
	if ok, _ := auth.VerifyPassword("SenhaNova123", user.PasswordHash); !ok {
		t.Fatalf("new password not stored")
	}
}

func TestCreateUserRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateUser(f.ctx, f.admin, service.CreateUserInput{Username: "Maria", Password: "SenhaForte123", Name: "Outra Maria"})
	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if _, err := f.svc.CreateUser(f.ctx, f.maria, service.CreateUserInput{Username: "novo", Password: "SenhaForte123", Name: "Novo"}); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected forbidden for collaborator, got %v", err)
	}

	user, err := f.svc.CreateUser(f.ctx, f.admin, service.CreateUserInput{Username: "novo", Password: "SenhaForte123", Name: "Novo"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Role != repo.RoleCollaborator {
		t.Fatalf("expected default collaborator role, got %s", user.Role)
	}
	promoted, err := f.svc.PromoteUser(f.ctx, f.admin, user.ID)
	if err != nil || promoted.Role != repo.RoleAdmin {
		t.Fatalf("promote: role=%s err=%v", promoted.Role, err)
	}
}
