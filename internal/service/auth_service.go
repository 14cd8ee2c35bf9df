package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
)

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra login, sessões e credenciais passkey.
type AuthService struct {
	store    Store
	redis    redisCommander
	sessions *auth.SessionManager
	recorder Recorder
}

// NewAuthService cria novo serviço.
func NewAuthService(store Store, redisClient redisCommander, sessions *auth.SessionManager, recorder Recorder) *AuthService {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &AuthService{store: store, redis: redisClient, sessions: sessions, recorder: recorder}
}

// Sessions expõe o gerenciador de tokens (cookie e middleware).
func (s *AuthService) Sessions() *auth.SessionManager {
	return s.sessions
}

// Session é o resultado de um login bem-sucedido.
type Session struct {
	Token        string             `json:"token"`
	ExpiresAt    time.Time          `json:"expiresAt"`
	User         repo.User          `json:"user"`
	Collaborator *repo.Collaborator `json:"collaborator,omitempty"`
}

// Me descreve o usuário autenticado.
type Me struct {
	User         repo.User                `json:"user"`
	Collaborator *repo.CollaboratorDetail `json:"collaborator,omitempty"`
}

// Login valida usuário e senha. Usuário inexistente e senha errada
// devolvem o mesmo erro.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, invalid("usuário e senha são obrigatórios")
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			auth.BurnVerify(password)
			log.Warn().Str("username", username).Msg("login: usuário não encontrado")
			s.recorder.LoginAttempt("invalid")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("login: verify password failed")
		s.recorder.LoginAttempt("invalid")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Str("username", username).Msg("login: senha inválida")
		s.recorder.LoginAttempt("invalid")
		return nil, ErrInvalidCredentials
	}

	session, err := s.StartSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.recorder.LoginAttempt("ok")
	return session, nil
}

// StartSession emite o token e registra a sessão no Redis. Usado também
// pelo login com passkey.
func (s *AuthService) StartSession(ctx context.Context, user repo.User) (*Session, error) {
	token, sessionID, expires, err := s.sessions.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, auth.SessionKey(sessionID), user.ID.String(), s.sessions.TTL()).Err(); err != nil {
		return nil, err
	}

	session := &Session{Token: token, ExpiresAt: expires, User: user}
	collab, err := s.store.GetCollaboratorByUserID(ctx, user.ID)
	switch {
	case err == nil:
		session.Collaborator = &collab
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}

	if _, err := s.store.CreateActivity(ctx, repo.CreateActivityParams{
		UserID:      &user.ID,
		Type:        "login",
		Description: "Login de " + user.Username,
		EntityType:  ptr("user"),
		EntityID:    &user.ID,
	}); err != nil {
		log.Warn().Err(err).Msg("login: falha ao registrar atividade")
	}
	return session, nil
}

// Logout encerra a sessão. Token inválido não é erro.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.sessions.Parse(token)
	if err != nil {
		return nil
	}
	if err := s.redis.Del(ctx, auth.SessionKey(claims.ID)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// Authenticate valida o token, confere a sessão no Redis e monta o principal
// com o papel atual do usuário.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	claims, err := s.sessions.Parse(token)
	if err != nil {
		return auth.Principal{}, ErrUnauthenticated
	}

	stored, err := s.redis.Get(ctx, auth.SessionKey(claims.ID)).Result()
	if err == redis.Nil {
		return auth.Principal{}, ErrUnauthenticated
	}
	if err != nil {
		return auth.Principal{}, err
	}
	if stored != claims.Subject {
		return auth.Principal{}, ErrUnauthenticated
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return auth.Principal{}, ErrUnauthenticated
	}
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return auth.Principal{}, ErrUnauthenticated
	}
	if err != nil {
		return auth.Principal{}, err
	}

	principal := auth.Principal{
		UserID:    user.ID,
		SessionID: claims.ID,
		Username:  user.Username,
		Name:      user.Name,
		Role:      string(user.Role),
	}
	collab, err := s.store.GetCollaboratorByUserID(ctx, user.ID)
	switch {
	case err == nil:
		principal.CollaboratorID = &collab.ID
	case !errors.Is(err, repo.ErrNotFound):
		return auth.Principal{}, err
	}
	return principal, nil
}

// Me devolve usuário e vínculo de colaborador do principal.
func (s *AuthService) Me(ctx context.Context, p auth.Principal) (Me, error) {
	user, err := s.store.GetUser(ctx, p.UserID)
	if err != nil {
		return Me{}, err
	}
	me := Me{User: user}
	if p.CollaboratorID != nil {
		collab, err := s.store.GetCollaborator(ctx, *p.CollaboratorID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return Me{}, err
		}
		if err == nil {
			me.Collaborator = &collab
		}
	}
	return me, nil
}

// SaveCeremony guarda o estado de uma cerimônia WebAuthn.
func (s *AuthService) SaveCeremony(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.redis.Set(ctx, key, string(data), ttl).Err()
}

// TakeCeremony lê e apaga o estado da cerimônia. Ausente vira ErrNotFound.
func (s *AuthService) TakeCeremony(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.redis.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		log.Warn().Err(err).Str("key", key).Msg("webauthn: falha ao limpar sessão")
	}
	return data, nil
}

func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (repo.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (repo.User, error) {
	return s.store.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
}

func (s *AuthService) ListPasskeys(ctx context.Context, userID uuid.UUID) ([]repo.PasskeyCredential, error) {
	return s.store.ListPasskeys(ctx, userID)
}

func (s *AuthService) GetPasskeyByCredentialID(ctx context.Context, credentialID []byte) (repo.PasskeyCredential, error) {
	return s.store.GetPasskeyByCredentialID(ctx, credentialID)
}

func (s *AuthService) CreatePasskey(ctx context.Context, arg repo.CreatePasskeyParams) (repo.PasskeyCredential, error) {
	return s.store.CreatePasskey(ctx, arg)
}

func (s *AuthService) UpdatePasskeyCounter(ctx context.Context, id uuid.UUID, signCount uint32, cloned bool) error {
	return s.store.UpdatePasskeyCounter(ctx, id, signCount, cloned)
}
