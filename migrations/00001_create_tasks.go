package migration

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(Up00001, Down00001)
}

//Up00001 creates the task ledger.
func Up00001(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS public.tasks
	(
		task_id text COLLATE pg_catalog."default" NOT NULL,
		task_name text COLLATE pg_catalog."default" NOT NULL,
		aoi text COLLATE pg_catalog."default" NOT NULL,
		start_date date NOT NULL,
		end_date date NOT NULL,
		status text COLLATE pg_catalog."default" NOT NULL DEFAULT 'pending',
		message text COLLATE pg_catalog."default" NOT NULL DEFAULT '',
		submitted_at timestamp with time zone NOT NULL,
		updated_at timestamp with time zone NOT NULL,
		CONSTRAINT tasks_pk_task_id PRIMARY KEY (task_id)
	)
	WITH (
		OIDS = FALSE
	);
	`)
	return err
}

//Down00001 drops the task ledger.
func Down00001(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS public.tasks;`)
	return err
}
