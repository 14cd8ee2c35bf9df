package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const cityColumns = `id, name, state, description, monthly_goal, quarterly_goal, yearly_goal, created_at, updated_at`

func scanCity(row pgx.Row) (City, error) {
	var c City
	err := row.Scan(&c.ID, &c.Name, &c.State, &c.Description, &c.MonthlyGoal, &c.QuarterlyGoal, &c.YearlyGoal, &c.CreatedAt, &c.UpdatedAt)
	return c, notFound(err)
}

func (q *Queries) CreateCity(ctx context.Context, arg CreateCityParams) (City, error) {
	row := q.conn.QueryRow(ctx, `
        INSERT INTO cities (name, state, description, monthly_goal, quarterly_goal, yearly_goal)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+cityColumns,
		arg.Name, arg.State, arg.Description, arg.MonthlyGoal, arg.QuarterlyGoal, arg.YearlyGoal)
	return scanCity(row)
}

func (q *Queries) GetCity(ctx context.Context, id uuid.UUID) (City, error) {
	return scanCity(q.conn.QueryRow(ctx, `SELECT `+cityColumns+` FROM cities WHERE id = $1`, id))
}

// GetCityByName compara sem diferenciar maiúsculas.
func (q *Queries) GetCityByName(ctx context.Context, name string) (City, error) {
	return scanCity(q.conn.QueryRow(ctx, `SELECT `+cityColumns+` FROM cities WHERE lower(name) = lower($1)`, name))
}

func (q *Queries) ListCities(ctx context.Context) ([]City, error) {
	rows, err := q.conn.Query(ctx, `SELECT `+cityColumns+` FROM cities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCity)
}

func (q *Queries) UpdateCity(ctx context.Context, id uuid.UUID, set UpdateSet) (City, error) {
	if set.Len() == 0 {
		return q.GetCity(ctx, id)
	}
	query, args := set.SQL("cities", id, true, cityColumns)
	return scanCity(q.conn.QueryRow(ctx, query, args...))
}

func (q *Queries) DeleteCity(ctx context.Context, id uuid.UUID) error {
	return execOne(q.conn.Exec(ctx, `DELETE FROM cities WHERE id = $1`, id))
}
