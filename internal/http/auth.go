package http

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/gestaozabele/clinica/internal/http/middleware"
	"github.com/gestaozabele/clinica/internal/service"
)

// Login autentica por usuário e senha.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		writeServiceError(w, r, err)
		return
	}

	session, err := h.authService.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeLoginSuccess(w, session)
}

// Logout revoga a sessão atual e limpa o cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := httpmiddleware.TokenFromRequest(r); token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			log.Warn().Err(err).Msg("logout: falha ao revogar sessão")
		}
	}
	h.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me retorna informações do usuário autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.authService.Me(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, me)
}

func (h *Handler) writeLoginSuccess(w http.ResponseWriter, session *service.Session) {
	h.setSessionCookie(w, session.Token, session.ExpiresAt)
	WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) sessionCookie(value string) *http.Cookie {
	secure := !h.devCookies
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     httpmiddleware.SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	c := h.sessionCookie(token)
	c.Expires = expires
	http.SetCookie(w, c)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	c := h.sessionCookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}
