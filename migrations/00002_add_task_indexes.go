package migration

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(Up00002, Down00002)
}

//Up00002 indexes the lookups done by the history command.
func Up00002(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_aoi_start
		ON public.tasks USING btree
		(aoi, start_date);

		CREATE INDEX IF NOT EXISTS idx_tasks_status
		ON public.tasks USING btree
		(status);
		`)
	return err
}

//Down00002 drops the indexes.
func Down00002(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP INDEX IF EXISTS public.idx_tasks_status;
		DROP INDEX IF EXISTS public.idx_tasks_aoi_start;
		`)
	return err
}
