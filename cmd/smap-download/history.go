package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/alecsandermergen11/SMAP-auto-download/ledger"
	"github.com/alecsandermergen11/SMAP-auto-download/model"
	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

var historyFlags = []cli.Flag{
	cli.StringFlag{Name: "aoi", Usage: "only list tasks of this area of interest"},
}

func historyAction(c *cli.Context) error {
	logContext := &util.BasicLogContext{}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	database, err := openDatabase(logContext, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	entries, err := ledger.NewPostgres(database).History(context.Background(), c.String("aoi"))
	if err != nil {
		return err
	}
	return printHistory(c, entries)
}

func printHistory(c *cli.Context, entries []ledger.Entry) error {
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "AOI\tPERIOD\tTASK\tSTATUS\tUPDATED\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.AOI, e.Period(), e.TaskID, e.Status, e.UpdatedAt.Format(model.DateLayout+" 15:04"), e.Message)
	}
	return w.Flush()
}
