package auth

import (
	"sync"

	"github.com/alexedwards/argon2id"
)

var params = &argon2id.Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// hash usado quando o usuário não existe, para o login levar o mesmo tempo.
var (
	dummyOnce sync.Once
	dummyHash string
)

// HashPassword gera um hash Argon2id com os parâmetros embutidos.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, params)
}

// VerifyPassword compara a senha com o hash lendo os parâmetros do próprio hash.
func VerifyPassword(password, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, encodedHash)
}

// BurnVerify executa uma verificação descartável.
func BurnVerify(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = argon2id.CreateHash("clinica-dummy-password", params)
	})
	if dummyHash == "" {
		return
	}
	_, _ = argon2id.ComparePasswordAndHash(password, dummyHash)
}
