package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const passkeyColumns = `id, user_id, credential_id, public_key, sign_count, transports, aaguid, nickname, cloned, created_at, updated_at`

func scanPasskey(row pgx.Row) (PasskeyCredential, error) {
	var (
		cred PasskeyCredential
		sign int64
	)
	err := row.Scan(&cred.ID, &cred.UserID, &cred.CredentialID, &cred.PublicKey, &sign, &cred.Transports,
		&cred.AAGUID, &cred.Nickname, &cred.Cloned, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		return cred, notFound(err)
	}
	if sign < 0 {
		sign = 0
	}
	cred.SignCount = uint32(sign)
	return cred, nil
}

func (q *Queries) ListPasskeys(ctx context.Context, userID uuid.UUID) ([]PasskeyCredential, error) {
	rows, err := q.conn.Query(ctx, `
        SELECT `+passkeyColumns+` FROM webauthn_credentials
        WHERE user_id = $1
        ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPasskey)
}

func (q *Queries) GetPasskeyByCredentialID(ctx context.Context, credentialID []byte) (PasskeyCredential, error) {
	return scanPasskey(q.conn.QueryRow(ctx, `SELECT `+passkeyColumns+` FROM webauthn_credentials WHERE credential_id = $1`, credentialID))
}

func (q *Queries) CreatePasskey(ctx context.Context, arg CreatePasskeyParams) (PasskeyCredential, error) {
	transports := arg.Transports
	if transports == nil {
		transports = []string{}
	}
	row := q.conn.QueryRow(ctx, `
        INSERT INTO webauthn_credentials (user_id, credential_id, public_key, sign_count, transports, aaguid, nickname, cloned)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+passkeyColumns,
		arg.UserID, arg.CredentialID, arg.PublicKey, int64(arg.SignCount), transports, arg.AAGUID, arg.Nickname, arg.Cloned)
	return scanPasskey(row)
}

func (q *Queries) UpdatePasskeyCounter(ctx context.Context, id uuid.UUID, signCount uint32, cloned bool) error {
	return execOne(q.conn.Exec(ctx, `
        UPDATE webauthn_credentials
        SET sign_count = $2, cloned = $3, updated_at = now()
        WHERE id = $1`, id, int64(signCount), cloned))
}
