// Package catalogseed loads product catalog fixtures from YAML and writes
// them to the database. Seeding is idempotent: ids are derived from slugs,
// so re-running a file updates rows instead of duplicating them.
package catalogseed

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// productNamespace scopes the name-based product ids.
var productNamespace = uuid.MustParse("4f3b8a52-6c1e-4d2a-9b7f-0e5c3d1a2b60")

// Catalog is the fixture file layout.
type Catalog struct {
	Categories []Category `yaml:"categories"`
	Products   []Product  `yaml:"products"`
}

type Category struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

type Product struct {
	Slug        string `yaml:"slug"`
	Category    string `yaml:"category"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Price       string `yaml:"price"`
	Stock       int    `yaml:"stock"`
	Published   *bool  `yaml:"published,omitempty"`
	ImageURL    string `yaml:"image_url,omitempty"`
}

// ID is the stable id the product is stored under.
func (p Product) ID() uuid.UUID {
	return uuid.NewSHA1(productNamespace, []byte(p.Slug))
}

// IsPublished defaults to true when the fixture does not say.
func (p Product) IsPublished() bool {
	return p.Published == nil || *p.Published
}

// LoadFile reads and validates a catalog fixture.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog, rejecting unknown fields, and validates it.
func Parse(data []byte) (*Catalog, error) {
	var catalog Catalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate reports every problem in the catalog at once.
func (c *Catalog) Validate() error {
	var errs error
	categories := make(map[string]bool, len(c.Categories))
	for i, category := range c.Categories {
		slug := strings.TrimSpace(category.Slug)
		switch {
		case slug == "":
			errs = multierr.Append(errs, fmt.Errorf("categories[%d]: slug is required", i))
		case categories[slug]:
			errs = multierr.Append(errs, fmt.Errorf("categories[%d]: duplicate slug %q", i, slug))
		}
		if strings.TrimSpace(category.Name) == "" {
			errs = multierr.Append(errs, fmt.Errorf("categories[%d]: name is required", i))
		}
		categories[slug] = true
	}

	products := make(map[string]bool, len(c.Products))
	for i, product := range c.Products {
		prefix := fmt.Sprintf("products[%d]", i)
		slug := strings.TrimSpace(product.Slug)
		switch {
		case slug == "":
			errs = multierr.Append(errs, fmt.Errorf("%s: slug is required", prefix))
		case products[slug]:
			errs = multierr.Append(errs, fmt.Errorf("%s: duplicate slug %q", prefix, slug))
		}
		products[slug] = true

		if strings.TrimSpace(product.Name) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s: name is required", prefix))
		}
		if product.Category != "" && !categories[product.Category] {
			errs = multierr.Append(errs, fmt.Errorf("%s: unknown category %q", prefix, product.Category))
		}
		price, err := decimal.NewFromString(product.Price)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: price %q is not a number", prefix, product.Price))
		} else if price.IsNegative() {
			errs = multierr.Append(errs, fmt.Errorf("%s: price must not be negative", prefix))
		}
		if product.Stock < 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: stock must not be negative", prefix))
		}
	}
	return errs
}
