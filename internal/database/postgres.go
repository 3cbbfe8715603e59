package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"movie-catalog-service/internal/config"
)

// NewPostgres creates a new PostgreSQL connection and runs migrations.
func NewPostgres(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	slog.Info("connected to PostgreSQL", "db", cfg.DBName)

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Info("database migrations completed")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id SERIAL PRIMARY KEY,
		imdb_id VARCHAR(20) UNIQUE NOT NULL,
		title VARCHAR(500) NOT NULL,
		title_original VARCHAR(500) NOT NULL DEFAULT '',
		year VARCHAR(20) NOT NULL DEFAULT '',
		genres TEXT[] NOT NULL DEFAULT '{}',
		genres_original TEXT[] NOT NULL DEFAULT '{}',
		categories TEXT[] NOT NULL DEFAULT '{}',
		plot TEXT NOT NULL DEFAULT '',
		plot_original TEXT NOT NULL DEFAULT '',
		poster_url VARCHAR(1000) NOT NULL DEFAULT '',
		custom_poster VARCHAR(1000) NOT NULL DEFAULT '',
		director TEXT NOT NULL DEFAULT '',
		actors TEXT NOT NULL DEFAULT '',
		runtime VARCHAR(50) NOT NULL DEFAULT '',
		language VARCHAR(200) NOT NULL DEFAULT '',
		imdb_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		imdb_votes VARCHAR(50) NOT NULL DEFAULT '',
		is_explicitly_added BOOLEAN NOT NULL DEFAULT FALSE,
		cached_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		score SMALLINT NOT NULL CHECK (score BETWEEN 1 AND 10),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, movie_id)
	)`,
	// Indexes for common query patterns
	`CREATE INDEX IF NOT EXISTS idx_movies_title_lower ON movies(lower(title))`,
	`CREATE INDEX IF NOT EXISTS idx_movies_title_original_lower ON movies(lower(title_original))`,
	`CREATE INDEX IF NOT EXISTS idx_movies_cached_at ON movies(cached_at)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_imdb_rating ON movies(imdb_rating)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_genres ON movies USING GIN (genres)`,
	`CREATE INDEX IF NOT EXISTS idx_ratings_movie_id ON ratings(movie_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ratings_user_id ON ratings(user_id)`,
}
