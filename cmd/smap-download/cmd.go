// Copyright 2018, RadiantBlue Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var commands = cli.Commands{
	cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Submit, monitor and download AppEEARS SMAP tasks",
		Flags:   runFlags,
		Action:  runAction,
	},
	cli.Command{
		Name:    "products",
		Aliases: []string{"p"},
		Usage:   "List the products that can be requested",
		Action:  productsAction,
	},
	cli.Command{
		Name:    "chunks",
		Aliases: []string{"c"},
		Usage:   "Print the yearly chunks of a date range",
		Flags:   chunksFlags,
		Action:  chunksAction,
	},
	cli.Command{
		Name:   "history",
		Usage:  "List the tasks recorded in the ledger database",
		Flags:  historyFlags,
		Action: historyAction,
	},
	cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Update database schema",
		Action:  migrateDatabaseAction,
	},
	cli.Command{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "Print the version number of the CLI",
		Action:  versionAction,
	},
}

func createCliApp() (app *cli.App) {
	app = cli.NewApp()
	app.Name = util.AppName
	app.Usage = "Batch SMAP downloads from NASA AppEEARS"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "YAML configuration file",
			EnvVar: "SMAP_CONFIG",
		},
	}
	app.Commands = commands
	return
}

func loadConfig(c *cli.Context) (util.Config, error) {
	return util.LoadConfig(c.GlobalString("config"))
}

func versionAction(c *cli.Context) error {
	_, err := c.App.Writer.Write([]byte(c.App.Name + " " + version + "\n"))
	return err
}
