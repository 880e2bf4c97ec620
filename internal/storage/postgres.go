package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists memory records as JSONB rows. Merges lock the row
// with SELECT ... FOR UPDATE inside a transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool, now: time.Now}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_memory (
			user_id TEXT PRIMARY KEY,
			record JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) decode(raw []byte, userID string) (*Record, error) {
	var rec Record
	if err := sonic.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode memory record: %w", err)
	}
	return normalize(&rec, userID, s.now()), nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*Record, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM user_memory WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return NewRecord(userID, s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query memory record: %w", err)
	}
	return s.decode(raw, userID)
}

func (s *PostgresStore) Merge(ctx context.Context, userID string, patch Patch) (*Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback(ctx)

	// make sure a row exists so FOR UPDATE has something to lock
	if _, err := tx.Exec(ctx,
		`INSERT INTO user_memory (user_id, record) VALUES ($1, '{}'::jsonb) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("seed memory record: %w", err)
	}

	var raw []byte
	if err := tx.QueryRow(ctx, `SELECT record FROM user_memory WHERE user_id=$1 FOR UPDATE`, userID).Scan(&raw); err != nil {
		return nil, fmt.Errorf("lock memory record: %w", err)
	}
	rec, err := s.decode(raw, userID)
	if err != nil {
		return nil, err
	}
	rec.Apply(patch, s.now())

	data, err := sonic.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode memory record: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE user_memory SET record=$2, updated_at=now() WHERE user_id=$1`,
		userID,
		data,
	); err != nil {
		return nil, fmt.Errorf("update memory record: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit merge: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
