package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, password_hash, name, role, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, notFound(err)
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO users (username, password_hash, name, role)
        VALUES ($1, $2, $3, $4)
        RETURNING `+userColumns,
		arg.Username, arg.PasswordHash, arg.Name, arg.Role)
	return scanUser(row)
}

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.conn.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

func (q *Queries) UpdateUserRole(ctx context.Context, id uuid.UUID, role Role) (User, error) {
	row := q.conn.QueryRow(ctx, `
        UPDATE users SET role = $2, updated_at = now()
        WHERE id = $1
        RETURNING `+userColumns, id, role)
	return scanUser(row)
}

func (q *Queries) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return execOne(q.conn.Exec(ctx, `
        UPDATE users SET password_hash = $2, updated_at = now()
        WHERE id = $1`, id, passwordHash))
}
