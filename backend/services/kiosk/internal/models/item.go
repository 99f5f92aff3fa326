package models

import (
	"errors"
	"fmt"
	"strings"
)

// ItemRef is an immutable catalog entry.
type ItemRef struct {
	ID              int    `json:"id" yaml:"id"`
	DisplayName     string `json:"display_name" yaml:"name"`
	Emoji           string `json:"emoji,omitempty" yaml:"emoji"`
	PriceMinorUnits int    `json:"price_minor_units" yaml:"-"`
}

// Catalog holds the items offered by the kiosk, all at the configured unit price.
type Catalog struct {
	items []ItemRef
	byID  map[int]ItemRef
}

// NewCatalog validates items and applies the unit price to each of them.
func NewCatalog(items []ItemRef, priceMinorUnits int) (*Catalog, error) {
	if priceMinorUnits <= 0 {
		return nil, errors.New("catalog: price must be positive")
	}
	if len(items) == 0 {
		return nil, errors.New("catalog: no items configured")
	}

	c := &Catalog{
		items: make([]ItemRef, 0, len(items)),
		byID:  make(map[int]ItemRef, len(items)),
	}
	for _, item := range items {
		if item.ID <= 0 {
			return nil, fmt.Errorf("catalog: invalid item id %d", item.ID)
		}
		if strings.TrimSpace(item.DisplayName) == "" {
			return nil, fmt.Errorf("catalog: item %d has no name", item.ID)
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate item id %d", item.ID)
		}
		item.PriceMinorUnits = priceMinorUnits
		c.items = append(c.items, item)
		c.byID[item.ID] = item
	}
	return c, nil
}

// Lookup returns the item with the given id.
func (c *Catalog) Lookup(id int) (ItemRef, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Items returns a copy of the catalog in configured order.
func (c *Catalog) Items() []ItemRef {
	out := make([]ItemRef, len(c.items))
	copy(out, c.items)
	return out
}
