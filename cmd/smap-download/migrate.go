package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/alecsandermergen11/SMAP-auto-download/ledger"
	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

func migrateDatabaseAction(c *cli.Context) error {
	logContext := &util.BasicLogContext{}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	database, err := openDatabase(logContext, cfg)
	if err != nil {
		return util.LogSimpleErr(logContext, "Could not open database connection", err)
	}
	defer database.Close()

	if err = ledger.Migrate(database); err != nil {
		return util.LogSimpleErr(logContext, "Migration failed", err)
	}
	util.LogInfo(logContext, "Database schema is up to date")
	return nil
}
