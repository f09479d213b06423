package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hperssn/focusbean/internal/domain"
)

//go:embed default.yaml
var defaultYAML []byte

// Catalog is the fixed set of shop items and wheel slots.
type Catalog struct {
	Items []domain.ShopItem     `yaml:"items"`
	Wheel []domain.WheelSegment `yaml:"wheel"`

	byID map[string]domain.ShopItem
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog file, or returns the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Items) == 0 {
		return fmt.Errorf("catalog has no items")
	}
	c.byID = make(map[string]domain.ShopItem, len(c.Items))
	for _, it := range c.Items {
		if it.ID == "" {
			return fmt.Errorf("catalog item without id")
		}
		if it.Price <= 0 {
			return fmt.Errorf("item %s: price must be positive", it.ID)
		}
		if _, dup := c.byID[it.ID]; dup {
			return fmt.Errorf("item %s listed twice", it.ID)
		}
		c.byID[it.ID] = it
	}
	if err := c.WheelTable().Validate(); err != nil {
		return fmt.Errorf("catalog wheel: %w", err)
	}
	return nil
}

func (c *Catalog) Item(id string) (domain.ShopItem, error) {
	it, ok := c.byID[id]
	if !ok {
		return domain.ShopItem{}, fmt.Errorf("%w: %q", domain.ErrUnknownItem, id)
	}
	return it, nil
}

func (c *Catalog) WheelTable() domain.Wheel {
	return domain.Wheel{Segments: c.Wheel}
}
