package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"tanya/internal/config"
	"tanya/internal/history"
)

func main() {
	dropTable := flag.Bool("drop-table", false, "Drop the conversations table before creating it (fresh start)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not configured")
	}

	// SAFETY: prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTable {
		log.Fatal("BLOCKED: cannot run --drop-table in production environment")
	}

	ctx := context.Background()
	pool, err := history.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	table := cfg.TablePrefix + "conversations"

	if *dropTable {
		log.Printf("Dropping table %s...", table)
		if err := dropConversations(ctx, pool, table); err != nil {
			log.Fatalf("Failed to drop table: %v", err)
		}
	}

	log.Printf("Ensuring table %s exists (environment: %s)...", table, cfg.Environment)
	if err := createConversations(ctx, pool, table); err != nil {
		log.Fatalf("Failed to create table: %v", err)
	}
	log.Println("Schema ready")
}

func createConversations(ctx context.Context, pool *pgxpool.Pool, table string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			conversation_id TEXT PRIMARY KEY,
			turns JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, table)
	_, err := pool.Exec(ctx, query)
	return err
}

func dropConversations(ctx context.Context, pool *pgxpool.Pool, table string) error {
	_, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	return err
}
