package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dotaconstants/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// TursoPublisher upserts documents into a Turso database.
type TursoPublisher struct {
	db *sql.DB
}

// NewTursoPublisher connects to Turso and creates the documents table.
func NewTursoPublisher(ctx context.Context, url, authToken string) (*TursoPublisher, error) {
	connStr := url
	if authToken != "" {
		connStr = fmt.Sprintf("%s?authToken=%s", url, authToken)
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Turso: %w", err)
	}

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping Turso: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS constants (
		name TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		body TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create constants table: %w", err)
	}

	return &TursoPublisher{db: db}, nil
}

// Name identifies the publisher in logs.
func (p *TursoPublisher) Name() string { return "turso" }

// Publish replaces the stored copy of doc.
func (p *TursoPublisher) Publish(ctx context.Context, runID string, doc storage.Document, body []byte) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO constants (name, run_id, sha256, body, updated_at) VALUES (?, ?, ?, ?, ?)`,
		doc.Name, runID, doc.SHA256, string(body), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", doc.Name, err)
	}
	return nil
}

// Close closes the Turso connection.
func (p *TursoPublisher) Close() error {
	return p.db.Close()
}

// PostgresPublisher upserts documents into Postgres as JSONB.
type PostgresPublisher struct {
	pool *pgxpool.Pool
}

// NewPostgresPublisher creates a connection pool and the constants table.
func NewPostgresPublisher(ctx context.Context, dbURL string) (*PostgresPublisher, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS constants (
		name TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		body JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create constants table: %w", err)
	}

	return &PostgresPublisher{pool: pool}, nil
}

// Name identifies the publisher in logs.
func (p *PostgresPublisher) Name() string { return "postgres" }

// Publish upserts doc unless the stored hash already matches.
func (p *PostgresPublisher) Publish(ctx context.Context, runID string, doc storage.Document, body []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO constants (name, run_id, sha256, body, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, now())
		ON CONFLICT (name) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			sha256 = EXCLUDED.sha256,
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
		WHERE constants.sha256 <> EXCLUDED.sha256`,
		doc.Name, runID, doc.SHA256, string(body))
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", doc.Name, err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresPublisher) Close() {
	p.pool.Close()
}
