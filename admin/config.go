package admin

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/karloscodes/fiberadmin/cache"
)

// Config is passed to Module.Configure.
type Config struct {
	// DB backs the resource listings and the login provider.
	DB *gorm.DB

	// Cache stores sessions and login throttling counters.
	Cache cache.Store

	// TemplateFolders are searched in order before the built-in templates.
	TemplateFolders []string

	// Providers authenticate admin requests. At least one is required.
	Providers []Provider

	// Resources are the models listed in the panel.
	Resources []Resource

	LogoURL    string
	FaviconURL string

	// Title is shown in the page header. Default: "Admin".
	Title string
}

func (c *Config) validate() error {
	var errs []error
	if c.DB == nil {
		errs = append(errs, errors.New("admin: config: DB is required"))
	}
	if c.Cache == nil {
		errs = append(errs, errors.New("admin: config: Cache is required"))
	}
	if len(c.Providers) == 0 {
		errs = append(errs, errors.New("admin: config: at least one provider is required"))
	}
	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p == nil {
			errs = append(errs, fmt.Errorf("admin: config: provider %d is nil", i))
			continue
		}
		if seen[p.Name()] {
			errs = append(errs, fmt.Errorf("admin: config: duplicate provider %q", p.Name()))
		}
		seen[p.Name()] = true
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.Title == "" {
		c.Title = "Admin"
	}
}
