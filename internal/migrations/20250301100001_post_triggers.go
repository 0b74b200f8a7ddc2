package migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upPostTriggers, downPostTriggers)
}

// updated_at is refreshed on every write; media is dropped as soon as
// a post leaves the scheduled state for published, attachments are not
// needed after publication.
func upPostTriggers(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE FUNCTION set_updated_at() RETURNS trigger AS $$
	BEGIN
		NEW.updated_at := now();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;

	CREATE TRIGGER credentials_set_updated_at
		BEFORE UPDATE ON credentials
		FOR EACH ROW EXECUTE FUNCTION set_updated_at();

	CREATE TRIGGER posts_set_updated_at
		BEFORE UPDATE ON posts
		FOR EACH ROW EXECUTE FUNCTION set_updated_at();

	CREATE FUNCTION clear_media_on_publish() RETURNS trigger AS $$
	BEGIN
		IF OLD.status = 'scheduled' AND NEW.status = 'published' THEN
			NEW.media := NULL;
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;

	CREATE TRIGGER posts_clear_media_on_publish
		BEFORE UPDATE OF status ON posts
		FOR EACH ROW EXECUTE FUNCTION clear_media_on_publish();
	`)
	return err
}

func downPostTriggers(tx *sql.Tx) error {
	_, err := tx.Exec(`
	DROP TRIGGER posts_clear_media_on_publish ON posts;
	DROP FUNCTION clear_media_on_publish();
	DROP TRIGGER posts_set_updated_at ON posts;
	DROP TRIGGER credentials_set_updated_at ON credentials;
	DROP FUNCTION set_updated_at();
	`)
	return err
}
