package migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upInit, downInit)
}

func upInit(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE credentials (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		handle TEXT NOT NULL,
		secret TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE posts (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		handle TEXT NOT NULL,
		text TEXT NOT NULL,
		scheduled_for TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled'
			CHECK (status IN ('scheduled', 'published', 'failed')),
		error TEXT,
		media JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX posts_user_id_idx ON posts (user_id);
	CREATE INDEX posts_due_idx ON posts (scheduled_for) WHERE status = 'scheduled';
	`)
	return err
}

func downInit(tx *sql.Tx) error {
	_, err := tx.Exec(`
	DROP TABLE posts;
	DROP TABLE credentials;
	`)
	return err
}
