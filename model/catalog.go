package model

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Layer is a (product, layer) pair as the task endpoint expects it.
type Layer struct {
	Product string `json:"product"`
	Layer   string `json:"layer"`
}

// Product is a named catalog entry resolving to one or more layers of a collection.
type Product struct {
	Name   string   `yaml:"name"`
	ID     string   `yaml:"product"`
	Layers []string `yaml:"layers"`
}

// Catalog is the read-only product lookup table.
type Catalog struct {
	products []Product
	byName   map[string]int
}

// DefaultCatalog returns the built-in SMAP L4 catalog.
func DefaultCatalog() *Catalog {
	catalog, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic("embedded catalog: " + err.Error())
	}
	return catalog
}

// LoadCatalog reads a catalog file; an empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Products []Product `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Products) == 0 {
		return nil, errors.New("catalog has no products")
	}

	c := &Catalog{byName: make(map[string]int, len(doc.Products))}
	for _, p := range doc.Products {
		switch {
		case p.Name == "":
			return nil, errors.New("catalog entry without a name")
		case p.ID == "":
			return nil, fmt.Errorf("catalog entry %q has no product id", p.Name)
		case len(p.Layers) == 0:
			return nil, fmt.Errorf("catalog entry %q has no layers", p.Name)
		}
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", p.Name)
		}
		c.byName[p.Name] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Names lists the entries in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.products))
	for i, p := range c.products {
		names[i] = p.Name
	}
	return names
}

// Products returns a copy of every entry.
func (c *Catalog) Products() []Product {
	return append([]Product(nil), c.products...)
}

// Lookup finds an entry by name.
func (c *Catalog) Lookup(name string) (Product, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Layers flattens the selected entries into the request layer list, in selection order.
func (c *Catalog) Layers(selected []string) ([]Layer, error) {
	var layers []Layer
	for _, name := range selected {
		p, ok := c.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown product %q", name)
		}
		for _, layer := range p.Layers {
			layers = append(layers, Layer{Product: p.ID, Layer: layer})
		}
	}
	if len(layers) == 0 {
		return nil, errors.New("no products selected")
	}
	return layers, nil
}
