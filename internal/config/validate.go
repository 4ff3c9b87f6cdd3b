package config

import (
	"errors"
	"fmt"
)

// Validate checks if the configuration is valid.
func (p *Portal) Validate() error {
	var errs []error
	switch p.Tree.Type {
	case TreeAuto, TreeCustom:
	default:
		errs = append(errs, fmt.Errorf("tree.type must be %q or %q, got %q", TreeAuto, TreeCustom, p.Tree.Type))
	}

	seen := make(map[string]bool, len(p.Tree.Categories))
	active := 0
	for i, c := range p.Tree.Categories {
		if c.Key == "" {
			errs = append(errs, fmt.Errorf("tree.categories[%d]: key is required", i))
			continue
		}
		if seen[c.Key] {
			errs = append(errs, fmt.Errorf("tree.categories[%d]: duplicate key %q", i, c.Key))
		}
		seen[c.Key] = true
		if c.Active {
			active++
		}
	}
	if active > 1 {
		errs = append(errs, fmt.Errorf("tree.categories: %d categories are active, at most one may be", active))
	}

	if p.Catalog.Timeout < 0 {
		errs = append(errs, errors.New("catalog.timeout must not be negative"))
	}
	if p.Cache.Size < 1 {
		errs = append(errs, fmt.Errorf("cache.size must be at least 1, got %d", p.Cache.Size))
	}

	if _, err := p.AutoTree(); err != nil {
		errs = append(errs, err)
	}
	if _, err := p.Baselayer(); err != nil {
		errs = append(errs, err)
	}
	if _, err := p.Subjects(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
