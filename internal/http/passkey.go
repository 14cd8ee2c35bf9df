package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
)

const passkeySessionTTL = 5 * time.Minute

func (h *Handler) PasskeyRegisterStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	waUser, err := h.loadWebAuthnUser(ctx, principal(r).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(waUser.WebAuthnCredentials()))
	for _, cred := range waUser.WebAuthnCredentials() {
		exclusions = append(exclusions, cred.Descriptor())
	}

	selection := protocol.AuthenticatorSelection{UserVerification: protocol.VerificationRequired}

	opts, sessionData, err := h.webauthn.BeginRegistration(
		waUser,
		webauthn.WithExclusions(exclusions),
		webauthn.WithAuthenticatorSelection(selection),
	)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	ceremonyID := uuid.NewString()
	if err := h.storeCeremony(ctx, auth.PasskeyRegisterKey(ceremonyID), sessionData, waUser.id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"session": ceremonyID,
		"options": map[string]any{"publicKey": opts.Response},
	})
}

func (h *Handler) PasskeyRegisterFinish(w http.ResponseWriter, r *http.Request) {
	ceremonyID := r.URL.Query().Get("session")
	if ceremonyID == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "session ausente", nil)
		return
	}

	ctx := r.Context()
	sessionData, userID, err := h.takeCeremony(ctx, auth.PasskeyRegisterKey(ceremonyID))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "sessão inválida ou expirada", nil)
		return
	}
	if userID != principal(r).UserID {
		WriteError(w, http.StatusForbidden, "FORBIDDEN", "cerimônia de outro usuário", nil)
		return
	}

	waUser, err := h.loadWebAuthnUser(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	creationResponse, err := protocol.ParseCredentialCreationResponseBody(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "resposta inválida", nil)
		return
	}

	credential, err := h.webauthn.CreateCredential(waUser, *sessionData, creationResponse)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	transports := make([]string, 0, len(credential.Transport))
	for _, transport := range credential.Transport {
		transports = append(transports, string(transport))
	}

	if _, err := h.authService.CreatePasskey(ctx, repo.CreatePasskeyParams{
		UserID:       userID,
		CredentialID: credential.ID,
		PublicKey:    credential.PublicKey,
		SignCount:    credential.Authenticator.SignCount,
		Transports:   transports,
		AAGUID:       credential.Authenticator.AAGUID,
		Cloned:       credential.Authenticator.CloneWarning,
	}); err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (h *Handler) PasskeyLoginStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(payload.Username) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "usuário é obrigatório", nil)
		return
	}

	ctx := r.Context()
	user, err := h.authService.GetUserByUsername(ctx, payload.Username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusUnauthorized, "AUTH", "biometria não configurada", nil)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	waUser, err := h.loadWebAuthnUser(ctx, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if len(waUser.credentials) == 0 {
		WriteError(w, http.StatusUnauthorized, "AUTH", "biometria não configurada", nil)
		return
	}

	opts, sessionData, err := h.webauthn.BeginLogin(waUser)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	ceremonyID := uuid.NewString()
	if err := h.storeCeremony(ctx, auth.PasskeyLoginKey(ceremonyID), sessionData, user.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"session": ceremonyID,
		"options": map[string]any{"publicKey": opts.Response},
	})
}

func (h *Handler) PasskeyLoginFinish(w http.ResponseWriter, r *http.Request) {
	ceremonyID := r.URL.Query().Get("session")
	if ceremonyID == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "session ausente", nil)
		return
	}

	ctx := r.Context()
	sessionData, userID, err := h.takeCeremony(ctx, auth.PasskeyLoginKey(ceremonyID))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "sessão inválida ou expirada", nil)
		return
	}

	waUser, err := h.loadWebAuthnUser(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	assertionResponse, err := protocol.ParseCredentialRequestResponseBody(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "resposta inválida", nil)
		return
	}

	credential, err := h.webauthn.ValidateLogin(waUser, *sessionData, assertionResponse)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
		return
	}

	stored, err := h.authService.GetPasskeyByCredentialID(ctx, credential.ID)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "credencial desconhecida", nil)
		return
	}
	if stored.UserID != userID {
		WriteError(w, http.StatusUnauthorized, "AUTH", "credencial inválida", nil)
		return
	}

	if err := h.authService.UpdatePasskeyCounter(ctx, stored.ID, credential.Authenticator.SignCount, credential.Authenticator.CloneWarning); err != nil {
		writeServiceError(w, r, err)
		return
	}

	session, err := h.authService.StartSession(ctx, waUser.user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeLoginSuccess(w, session)
}

type ceremonyEnvelope struct {
	Session *webauthn.SessionData `json:"session"`
	UserID  string                `json:"user_id"`
}

func (h *Handler) storeCeremony(ctx context.Context, key string, data *webauthn.SessionData, userID uuid.UUID) error {
	payload, err := json.Marshal(ceremonyEnvelope{Session: data, UserID: userID.String()})
	if err != nil {
		return err
	}
	return h.authService.SaveCeremony(ctx, key, payload, passkeySessionTTL)
}

func (h *Handler) takeCeremony(ctx context.Context, key string) (*webauthn.SessionData, uuid.UUID, error) {
	raw, err := h.authService.TakeCeremony(ctx, key)
	if err != nil {
		return nil, uuid.Nil, err
	}
	var envelope ceremonyEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, uuid.Nil, err
	}
	if envelope.Session == nil {
		return nil, uuid.Nil, errors.New("cerimônia sem sessão")
	}
	userID, err := uuid.Parse(envelope.UserID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return envelope.Session, userID, nil
}

type webAuthnUser struct {
	id          uuid.UUID
	user        repo.User
	credentials []webauthn.Credential
}

func (h *Handler) loadWebAuthnUser(ctx context.Context, userID uuid.UUID) (*webAuthnUser, error) {
	user, err := h.authService.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	passkeys, err := h.authService.ListPasskeys(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &webAuthnUser{id: user.ID, user: user, credentials: toWebauthnCredentials(passkeys)}, nil
}

func (u *webAuthnUser) WebAuthnID() []byte {
	id := make([]byte, 16)
	copy(id, u.id[:])
	return id
}

func (u *webAuthnUser) WebAuthnName() string {
	return u.user.Username
}

func (u *webAuthnUser) WebAuthnDisplayName() string {
	return u.user.Name
}

func (u *webAuthnUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}

func toWebauthnCredentials(passkeys []repo.PasskeyCredential) []webauthn.Credential {
	creds := make([]webauthn.Credential, 0, len(passkeys))
	for _, pk := range passkeys {
		cred := webauthn.Credential{
			ID:        append([]byte(nil), pk.CredentialID...),
			PublicKey: append([]byte(nil), pk.PublicKey...),
			Transport: toAuthenticatorTransports(pk.Transports),
		}
		cred.Authenticator.SignCount = pk.SignCount
		cred.Authenticator.CloneWarning = pk.Cloned
		if len(pk.AAGUID) > 0 {
			cred.Authenticator.AAGUID = append([]byte(nil), pk.AAGUID...)
		}
		creds = append(creds, cred)
	}
	return creds
}

func toAuthenticatorTransports(values []string) []protocol.AuthenticatorTransport {
	if len(values) == 0 {
		return nil
	}
	transports := make([]protocol.AuthenticatorTransport, 0, len(values))
	for _, value := range values {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "usb":
			transports = append(transports, protocol.USB)
		case "nfc":
			transports = append(transports, protocol.NFC)
		case "ble":
			transports = append(transports, protocol.BLE)
		case "internal":
			transports = append(transports, protocol.Internal)
		case "smart-card":
			transports = append(transports, protocol.SmartCard)
		case "hybrid", "cable":
			transports = append(transports, protocol.Hybrid)
		default:
			transports = append(transports, protocol.AuthenticatorTransport(value))
		}
	}
	return transports
}
