package util

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9._-]{3,40}$`)

// ValidateUsername exige login minúsculo sem espaços.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("usuário obrigatório")
	}
	if !usernamePattern.MatchString(username) {
		return errors.New("usuário deve ter de 3 a 40 caracteres (a-z, 0-9, . _ -)")
	}
	return nil
}

// ValidatePassword verifica requisitos mínimos de senha.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return errors.New("senha deve ter pelo menos 8 caracteres")
	}
	return nil
}

// ValidateStateCode aceita siglas de UF com duas letras.
func ValidateStateCode(state string) error {
	state = strings.TrimSpace(state)
	if len(state) != 2 {
		return errors.New("estado deve ser a sigla com 2 letras")
	}
	for _, r := range state {
		if r < 'A' || r > 'Z' {
			return errors.New("estado deve ser a sigla com 2 letras")
		}
	}
	return nil
}
