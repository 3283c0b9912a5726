package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/libratrack/backend/internal/config"
)

// NewPostgresPool builds the bounded pool over plain pgx connections.
func NewPostgresPool(ctx context.Context, cfg config.Config) (*Pool, error) {
	connCfg, err := pgx.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	return NewPool(ctx, PoolConfig{
		MaxConns: cfg.PoolMaxConns,
		Dial: func(ctx context.Context) (Conn, error) {
			return pgx.ConnectConfig(ctx, connCfg)
		},
	})
}
