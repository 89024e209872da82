package main

import (
	"context"
	"log"

	"avokati-backend/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	mime_type  TEXT NOT NULL,
	size       BIGINT NOT NULL,
	content    BYTEA NOT NULL,
	category   TEXT NOT NULL DEFAULT 'law',
	active     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at DESC);
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to Postgres:", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatal("Failed to create schema:", err)
	}

	log.Println("Schema created successfully")
}
