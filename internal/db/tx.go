package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Beginner abre transações; *pgxpool.Pool satisfaz.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

const maxTxAttempts = 3

// WithTx executa fn numa transação READ COMMITTED. Erro de fn desfaz tudo.
// Falhas de serialização e deadlock repetem a transação inteira.
func WithTx(ctx context.Context, b Beginner, fn func(ctx context.Context, tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = runTx(ctx, b, fn)
		if err == nil || !Retryable(err) || ctx.Err() != nil {
			return err
		}
		log.Warn().Err(err).Int("tentativa", attempt).Msg("transação repetida")
	}
	return err
}

func runTx(ctx context.Context, b Beginner, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := b.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Retryable indica serialization_failure (40001) ou deadlock_detected (40P01).
func Retryable(err error) bool {
	return hasCode(err, "40001", "40P01")
}

// UniqueViolation indica unique_violation (23505).
func UniqueViolation(err error) bool {
	return hasCode(err, "23505")
}

// ForeignKeyViolation indica foreign_key_violation (23503).
func ForeignKeyViolation(err error) bool {
	return hasCode(err, "23503")
}

func hasCode(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, code := range codes {
		if pgErr.Code == code {
			return true
		}
	}
	return false
}
