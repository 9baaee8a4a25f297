package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

var tableName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validate checks the loaded configuration and resolves derived fields.
// Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Store.validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Tracker.validate(); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	return nil
}

func (s *StoreConfig) validate() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if !slices.Contains(Drivers, s.Driver) {
		return fmt.Errorf("driver must be one of %s (got %q)", strings.Join(Drivers, ", "), s.Driver)
	}
	if s.Driver != "memory" && strings.TrimSpace(s.DSN) == "" {
		return fmt.Errorf("dsn is required for driver %q", s.Driver)
	}
	if !tableName.MatchString(s.Table) {
		return fmt.Errorf("table must match %s (got %q)", tableName, s.Table)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %s)", s.Timeout)
	}
	return nil
}

func (t *TrackerConfig) validate() error {
	if t.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be > 0 (got %s)", t.RefreshInterval)
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", t.Timezone, err)
	}
	t.Location = loc
	return nil
}
