package main

import (
	"fmt"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/alecsandermergen11/SMAP-auto-download/model"
)

func productsAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	catalog, err := model.LoadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	for _, product := range catalog.Products() {
		fmt.Fprintln(c.App.Writer, product.Name)
		for _, layer := range product.Layers {
			fmt.Fprintf(c.App.Writer, "  %s / %s\n", product.ID, layer)
		}
	}
	return nil
}
