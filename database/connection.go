package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kelydev/apiProyectos/config"

	// PostgreSQL driver
	_ "github.com/lib/pq"
)

// InitDB opens the bounded connection pool shared by every repository.
func InitDB(cfg config.Database) (*sql.DB, error) {
	slog.Info("initializing postgresql database connection", "host", cfg.Host, "db", cfg.Name)

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("postgresql database connection established")
	return db, nil
}
