package main

import (
	"database/sql"
	"errors"

	"github.com/alecsandermergen11/SMAP-auto-download/ledger"
	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

var errNoDatabase = errors.New("no database configured; set database_url or " + util.DATABASE_URL)

var getDbConnectionFunc = ledger.OpenDB

// openLedger returns the Postgres ledger when a database is configured and
// an in-memory one otherwise.
func openLedger(ctx util.LogContext, cfg util.Config) (ledger.Ledger, func(), error) {
	if cfg.DatabaseURL == "" {
		return ledger.NewMemory(), func() {}, nil
	}
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err = ledger.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return ledger.NewPostgres(db), func() { db.Close() }, nil
}

func openDatabase(ctx util.LogContext, cfg util.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errNoDatabase
	}
	return getDbConnectionFunc(ctx, cfg.DatabaseURL)
}
