// Package database wraps database/sql behind a thin *DB type embedding
// *sql.DB, so services keep calling QueryRow/Exec/Begin directly on one
// shared handle.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB embeds *sql.DB so callers keep using QueryRow/Exec/Begin directly.
type DB struct {
	*sql.DB
}

// Connect opens a connection pool against databaseURL using the lib/pq
// driver and verifies it with a ping.
func Connect(databaseURL string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: opening connection: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("database: pinging connection: %w", err)
	}
	return &DB{DB: sqlDB}, nil
}

// schema creates the two tables the core persists: posterior_states (one
// confusion matrix per user and problem type) and drill_events (the
// append-only answer log). Lesson state is ephemeral and never reaches
// this schema.
const schema = `
CREATE TABLE IF NOT EXISTS posterior_states (
	user_id         UUID NOT NULL,
	problem_type_id TEXT NOT NULL,
	n_classes       INT NOT NULL,
	prior           DOUBLE PRECISION NOT NULL,
	model_version   INT NOT NULL,
	counts          JSONB NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, problem_type_id)
);

CREATE TABLE IF NOT EXISTS drill_events (
	id                 BIGSERIAL PRIMARY KEY,
	user_id            UUID NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	problem_type_id    TEXT NOT NULL,
	word_id            INT NOT NULL,
	correct_sequence   JSONB NOT NULL,
	alternatives       JSONB NOT NULL,
	selected_sequence  JSONB NOT NULL,
	is_correct         BOOLEAN NOT NULL,
	response_time_ms   INT NOT NULL,
	audio_voice        TEXT NOT NULL,
	audio_speed        INT NOT NULL,
	lesson_id          INT
);

CREATE INDEX IF NOT EXISTS drill_events_user_problem_type_idx
	ON drill_events (user_id, problem_type_id, created_at);
`

// Migrate creates the schema if it does not already exist. Safe to call on
// every startup.
func (db *DB) Migrate() error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("database: running migrations: %w", err)
	}
	return nil
}
