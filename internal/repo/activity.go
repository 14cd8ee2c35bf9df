package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (q *Queries) CreateActivity(ctx context.Context, arg CreateActivityParams) (ActivityLog, error) {
	var a ActivityLog
	err := q.conn.QueryRow(ctx, `
        INSERT INTO activity_logs (user_id, type, description, entity_type, entity_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, user_id, type, description, entity_type, entity_id, created_at`,
		arg.UserID, arg.Type, arg.Description, arg.EntityType, arg.EntityID,
	).Scan(&a.ID, &a.UserID, &a.Type, &a.Description, &a.EntityType, &a.EntityID, &a.CreatedAt)
	return a, err
}

// ListActivity devolve as entradas mais recentes, opcionalmente de um usuário.
func (q *Queries) ListActivity(ctx context.Context, userID *uuid.UUID, limit int) ([]ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := q.conn.Query(ctx, `
        SELECT a.id, a.user_id, u.name, a.type, a.description, a.entity_type, a.entity_id, a.created_at
        FROM activity_logs a
        LEFT JOIN users u ON u.id = a.user_id
        WHERE ($1::uuid IS NULL OR a.user_id = $1)
        ORDER BY a.created_at DESC
        LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (ActivityLog, error) {
		var a ActivityLog
		err := row.Scan(&a.ID, &a.UserID, &a.UserName, &a.Type, &a.Description, &a.EntityType, &a.EntityID, &a.CreatedAt)
		return a, err
	})
}
