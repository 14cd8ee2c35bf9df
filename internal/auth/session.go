package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidSession indica token ausente, expirado ou adulterado.
var ErrInvalidSession = errors.New("sessão inválida")

// SessionClaims é o conteúdo do cookie de sessão.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager assina e valida tokens de sessão HS256.
// O ID do token (jti) é a chave da sessão no Redis.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager cria o gerenciador com segredo e duração da sessão.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL devolve a duração configurada.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue cria um token novo e devolve também o id da sessão.
func (m *SessionManager) Issue(userID uuid.UUID, role string) (token string, sessionID string, expires time.Time, err error) {
	now := m.now().UTC()
	sessionID = uuid.NewString()
	expires = now.Add(m.ttl)

	claims := SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sessionID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, sessionID, expires, nil
}

// Parse verifica assinatura, expiração e presença de sub/jti.
func (m *SessionManager) Parse(token string) (*SessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)

	parsed, err := parser.ParseWithClaims(token, &SessionClaims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidSession
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// SessionKey é a chave Redis que mantém a sessão ativa.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// PasskeyRegisterKey guarda a cerimônia de cadastro de passkey.
func PasskeyRegisterKey(ceremonyID string) string {
	return "webauthn:register:" + ceremonyID
}

// PasskeyLoginKey guarda a cerimônia de login por passkey.
func PasskeyLoginKey(ceremonyID string) string {
	return "webauthn:login:" + ceremonyID
}
