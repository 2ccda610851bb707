package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tanya/internal/domain"
)

// PostgresStore implements Store on a PostgreSQL table. Turn sequences
// are persisted as one opaque JSONB blob per conversation id, matching
// the load-whole/save-whole lifecycle of an exchange.
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewPostgresStore creates a store over the given pool. The table name is
// prefixed per environment (dev_, test_, prod_).
func NewPostgresStore(pool *pgxpool.Pool, tablePrefix string, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		table:  fmt.Sprintf("%sconversations", tablePrefix),
		logger: logger,
	}
}

// CreateConnectionPool creates a pgx connection pool and verifies the
// connection.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, conversationID string) ([]domain.Turn, error) {
	query := fmt.Sprintf(`
		SELECT turns FROM %s
		WHERE conversation_id = $1
	`, s.table)

	var raw []byte
	err := s.pool.QueryRow(ctx, query, conversationID).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return []domain.Turn{}, nil
		}
		return nil, fmt.Errorf("load history %s: %w", conversationID, err)
	}

	var turns []domain.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", conversationID, err)
	}

	return turns, nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, conversationID string, turns []domain.Turn) error {
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode history %s: %w", conversationID, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (conversation_id, turns, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id)
		DO UPDATE SET turns = EXCLUDED.turns, updated_at = EXCLUDED.updated_at
	`, s.table)

	if _, err := s.pool.Exec(ctx, query, conversationID, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("save history %s: %w", conversationID, err)
	}

	s.logger.Debug("history saved", "conversation_id", conversationID, "turns", len(turns))
	return nil
}

// Clear implements Store.
func (s *PostgresStore) Clear(ctx context.Context, conversationID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE conversation_id = $1
	`, s.table)

	if _, err := s.pool.Exec(ctx, query, conversationID); err != nil {
		return fmt.Errorf("clear history %s: %w", conversationID, err)
	}

	return nil
}
