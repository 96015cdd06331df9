package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Querier is the subset of pgxpool.Pool the application uses. Tests swap in a
// pgxmock pool through SetDB.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	pool *pgxpool.Pool
	db   Querier
)

// ConnectDB establishes the connection pool from DATABASE_URL.
func ConnectDB() error {
	config, err := pgxpool.ParseConfig(os.Getenv("DATABASE_URL"))
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	config.MaxConns = 30
	config.MinConns = 5
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var version string
	if err := pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info().Str("version", version).Msg("connected to database")

	db = pool
	return nil
}

// CloseDB closes the connection pool.
func CloseDB() {
	if pool != nil {
		pool.Close()
		log.Info().Msg("connection pool closed")
	}
}

// GetDB returns the active querier.
func GetDB() Querier {
	return db
}

// SetDB replaces the active querier. Intended for tests.
func SetDB(q Querier) {
	db = q
}
