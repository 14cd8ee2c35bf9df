package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/clinica/internal/db"
)

// DBTX é satisfeito tanto pelo pool quanto por uma pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries agrupa todas as consultas da aplicação.
type Queries struct {
	conn DBTX
	pool *pgxpool.Pool
}

// New cria Queries ligadas ao pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{conn: pool, pool: pool}
}

// InTx executa fn com Queries presas a uma transação. Dentro de uma
// transação já aberta, fn reaproveita a mesma.
func (q *Queries) InTx(ctx context.Context, fn func(*Queries) error) error {
	if q.pool == nil {
		return fn(q)
	}
	return db.WithTx(ctx, q.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(&Queries{conn: tx})
	})
}

// Ping verifica a conexão, usado pelo /ready.
func (q *Queries) Ping(ctx context.Context) error {
	if q.pool == nil {
		return nil
	}
	return q.pool.Ping(ctx)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func execOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// collect percorre rows aplicando scan em cada linha.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// where monta cláusulas com placeholders numerados na ordem dos args.
// expr recebe o índice via %[1]d.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(expr string, val any) {
	w.args = append(w.args, val)
	w.clauses = append(w.clauses, fmt.Sprintf(expr, len(w.args)))
}

func (w *where) raw(expr string) {
	w.clauses = append(w.clauses, expr)
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// next devolve o próximo placeholder livre.
func (w *where) next() int {
	return len(w.args) + 1
}
