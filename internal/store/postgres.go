package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the snapshot in a single JSONB row, preserving the file
// backend's whole-snapshot, last-writer-wins semantics. Selected by setting
// DATABASE_URL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tree_store (
			id   smallint PRIMARY KEY CHECK (id = 1),
			data jsonb NOT NULL
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to create tree_store table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Load(ctx context.Context) (*Snapshot, error) {
	var b []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM tree_store WHERE id = 1`).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return NewSnapshot(), nil
	}
	snap.normalize()
	return &snap, nil
}

func (p *PostgresStore) Save(ctx context.Context, snap *Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO tree_store (id, data) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data
	`, b)
	return err
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}
