package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookcraft-backend/internal/session"
)

// PostgresHistoryStore keeps one chat history row per storage key.
type PostgresHistoryStore struct {
	pool *pgxpool.Pool
}

func NewPostgresHistoryStore(pool *pgxpool.Pool) *PostgresHistoryStore {
	return &PostgresHistoryStore{pool: pool}
}

func (r *PostgresHistoryStore) Get(ctx context.Context, key string) (session.Record, error) {
	var rec session.Record
	err := r.pool.QueryRow(ctx,
		"SELECT history, updated_at FROM chat_histories WHERE key = $1", key,
	).Scan(&rec.History, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.Record{}, session.ErrNoRecord
	}
	if err != nil {
		return session.Record{}, err
	}
	return rec, nil
}

// Put upserts the row; updated_at comes from the database clock.
func (r *PostgresHistoryStore) Put(ctx context.Context, key string, history string) error {
	query := `INSERT INTO chat_histories (key, history)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET history = EXCLUDED.history, updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query, key, history)
	return err
}
