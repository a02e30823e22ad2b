package rpc

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Querier is the slice of pgxpool.Pool used by PostgresBackend
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresBackend calls database functions directly over a pgx pool
type PostgresBackend struct {
	db     Querier
	pool   *pgxpool.Pool
	schema string
	logger *zap.Logger
}

var _ Backend = (*PostgresBackend)(nil)

const DefaultSchema = "public"

func NewPostgresBackend(pool *pgxpool.Pool, schema string, logger *zap.Logger) *PostgresBackend {
	b := NewQuerierBackend(pool, schema, logger)
	b.pool = pool
	return b
}

// NewQuerierBackend wraps any Querier, such as a transaction
func NewQuerierBackend(q Querier, schema string, logger *zap.Logger) *PostgresBackend {
	if schema == "" {
		schema = DefaultSchema
	}
	return &PostgresBackend{
		db:     q,
		schema: schema,
		logger: logger,
	}
}

// Statement returns the SQL used to invoke procedure
func (b *PostgresBackend) Statement(procedure string) string {
	return "SELECT " + pgx.Identifier{b.schema, procedure}.Sanitize() + "()"
}

func (b *PostgresBackend) Call(ctx context.Context, procedure string) error {
	if _, err := b.db.Exec(ctx, b.Statement(procedure)); err != nil {
		callErr := &CallError{Procedure: procedure, Message: err.Error(), Err: err}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			callErr.Code = pgErr.Code
			callErr.Message = pgErr.Message
			callErr.Hint = pgErr.Hint
		}
		return callErr
	}
	return nil
}

func (b *PostgresBackend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}
