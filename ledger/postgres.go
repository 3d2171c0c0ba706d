package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	// Postgres driver
	_ "github.com/lib/pq"
	"github.com/pressly/goose"

	// Ledger schema
	_ "github.com/alecsandermergen11/SMAP-auto-download/migrations"
	"github.com/alecsandermergen11/SMAP-auto-download/model"
	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

// OpenDB opens and pings the database at connStr.
func OpenDB(ctx util.LogContext, connStr string) (*sql.DB, error) {
	dbURI, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	// XXX: pq expects SSL to be enabled if not explicitly disabled; keep an explicit choice, default to disabled
	params := dbURI.Query()
	if params.Get("sslmode") == "" {
		params.Set("sslmode", "disable")
	}
	dbURI.RawQuery = params.Encode()

	redacted := *dbURI
	if redacted.User != nil {
		redacted.User = url.User(redacted.User.Username())
	}
	util.LogInfo(ctx, fmt.Sprintf("Creating database connection at: `%s`", redacted.String()))
	db, err := sql.Open("postgres", dbURI.String())
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate brings the ledger schema up to date.
func Migrate(db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Run("up", db, ".")
}

// Postgres is a Ledger in the tasks table.
type Postgres struct {
	DB  *sql.DB
	now func() time.Time
}

// NewPostgres wraps an open database whose schema is migrated.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db, now: time.Now}
}

// RecordSubmission inserts task; a resubmitted id overwrites the row.
func (p *Postgres) RecordSubmission(ctx context.Context, task model.Task) error {
	entry := entryFor(task, p.now())
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO public.tasks
		(task_id, task_name, aoi, start_date, end_date, status, message, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (task_id) DO UPDATE SET
			task_name = EXCLUDED.task_name,
			aoi = EXCLUDED.aoi,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			status = EXCLUDED.status,
			message = EXCLUDED.message,
			submitted_at = EXCLUDED.submitted_at,
			updated_at = EXCLUDED.updated_at`,
		entry.TaskID, entry.TaskName, entry.AOI,
		entry.Chunk.Start.Format(model.DateLayout), entry.Chunk.End.Format(model.DateLayout),
		string(entry.Status), entry.Message, entry.SubmittedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ledger: record task %s: %w", task.ID, err)
	}
	return nil
}

// RecordStatus stores the latest status of taskID.
func (p *Postgres) RecordStatus(ctx context.Context, taskID string, status model.TaskStatus, message string) error {
	result, err := p.DB.ExecContext(ctx, `
		UPDATE public.tasks
		SET status = $2, message = $3, updated_at = $4
		WHERE task_id = $1`,
		taskID, string(status), message, p.now(),
	)
	if err != nil {
		return fmt.Errorf("ledger: update task %s: %w", taskID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("ledger: unknown task %s", taskID)
	}
	return nil
}

// History lists recorded tasks.
func (p *Postgres) History(ctx context.Context, aoi string) ([]Entry, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT task_id, task_name, aoi, start_date, end_date, status, message, submitted_at, updated_at
		FROM public.tasks
		WHERE $1::text = '' OR aoi = $1
		ORDER BY aoi, start_date, task_id`,
		aoi,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry  Entry
			status string
		)
		if err = rows.Scan(&entry.TaskID, &entry.TaskName, &entry.AOI, &entry.Chunk.Start, &entry.Chunk.End,
			&status, &entry.Message, &entry.SubmittedAt, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ledger: read history: %w", err)
		}
		entry.Status = model.TaskStatus(status)
		entry.Chunk.Start = entry.Chunk.Start.UTC()
		entry.Chunk.End = entry.Chunk.End.UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
