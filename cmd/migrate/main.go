package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [up|drop]")
		os.Exit(1)
	}

	command := os.Args[1]

	// Connect to database
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

// createTables creates the presence snapshot table
func createTables(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS presence_snapshots (
			id BIGSERIAL PRIMARY KEY,
			total_visitors BIGINT NOT NULL DEFAULT 0,
			online_count BIGINT NOT NULL DEFAULT 0,
			snapshot_date DATE NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_presence_snapshots_date
			ON presence_snapshots (snapshot_date DESC);
	`

	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create presence_snapshots: %w", err)
	}
	return nil
}

// dropTables drops the presence snapshot table
func dropTables(ctx context.Context, conn *pgx.Conn) error {
	if _, err := conn.Exec(ctx, `DROP TABLE IF EXISTS presence_snapshots`); err != nil {
		return fmt.Errorf("failed to drop presence_snapshots: %w", err)
	}
	return nil
}
