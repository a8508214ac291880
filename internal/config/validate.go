package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Validate checks the settings required by the given command mode.
// Modes: "build", "filter", "enrich", "flatten", "store".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "build":
		if c.Build.Concurrency < 1 || c.Build.Concurrency > 32 {
			errs = append(errs, "build.concurrency must be between 1 and 32")
		}
		if c.Build.ReferenceDate != "" {
			if _, err := time.Parse(time.DateOnly, c.Build.ReferenceDate); err != nil {
				errs = append(errs, "build.reference_date must be YYYY-MM-DD")
			}
		}
	case "filter":
		if c.Filter.MinFunding < 0 {
			errs = append(errs, "filter.min_funding must be >= 0")
		}
		if len(c.Filter.States) == 0 {
			errs = append(errs, "filter.states must not be empty")
		}
	case "enrich":
		if c.Enrich.MaxPatterns < 1 {
			errs = append(errs, "enrich.max_patterns must be > 0")
		}
		if c.Enrich.CheckpointInterval < 1 {
			errs = append(errs, "enrich.checkpoint_interval must be > 0")
		}
	case "flatten":
		if c.Flatten.TopN < 0 {
			errs = append(errs, "flatten.top_n must be >= 0")
		}
		if c.Flatten.Format != "csv" && c.Flatten.Format != "xlsx" {
			errs = append(errs, "flatten.format must be csv or xlsx")
		}
	case "store":
		switch c.Store.Driver {
		case "sqlite", "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		case "none", "":
			errs = append(errs, "store.driver must be sqlite or postgres")
		default:
			errs = append(errs, "store.driver must be one of none, sqlite, postgres")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// ReferenceTime returns the configured reference date, or now when unset.
func (c *Config) ReferenceTime(now time.Time) (time.Time, error) {
	if c.Build.ReferenceDate == "" {
		return now, nil
	}
	t, err := time.Parse(time.DateOnly, c.Build.ReferenceDate)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "config: parse reference date %q", c.Build.ReferenceDate)
	}
	return t, nil
}

// StoreEnabled reports whether a database backend is configured.
func (c *Config) StoreEnabled() bool {
	return c.Store.Driver != "" && c.Store.Driver != "none" && c.Store.DatabaseURL != ""
}
