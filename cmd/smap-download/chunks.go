package main

import (
	"errors"
	"fmt"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/alecsandermergen11/SMAP-auto-download/model"
)

var chunksFlags = []cli.Flag{
	cli.StringFlag{Name: "start", Value: model.SMAPStartDate, Usage: "first date, YYYY-MM-DD"},
	cli.StringFlag{Name: "end", Usage: "last date, YYYY-MM-DD"},
}

func chunksAction(c *cli.Context) error {
	if c.String("end") == "" {
		return errors.New("--end is required")
	}
	start, err := model.ParseDate(c.String("start"))
	if err != nil {
		return err
	}
	end, err := model.ParseDate(c.String("end"))
	if err != nil {
		return err
	}
	chunks, err := model.ChunkByYear(start, end)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		fmt.Fprintln(c.App.Writer, chunk.Period())
	}
	return nil
}
