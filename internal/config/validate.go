package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the settings required by a command mode are present.
// Modes: "discover", "serve", "sync-notion", "sync-salesforce". Unknown modes
// only receive the common checks.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Store.Dir == "" {
		errs = append(errs, "store.dir is required")
	}
	switch c.Sessions.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "sessions.driver must be sqlite or postgres")
	}
	if c.Sessions.Driver == "postgres" && c.Sessions.DatabaseURL == "" {
		errs = append(errs, "sessions.database_url is required for postgres")
	}

	switch mode {
	case "discover":
		errs = append(errs, c.researchErrors()...)
	case "serve":
		errs = append(errs, c.researchErrors()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
	case "sync-notion":
		if c.Notion.Token == "" {
			errs = append(errs, "notion.token is required")
		}
		if c.Notion.ProspectDB == "" {
			errs = append(errs, "notion.prospect_db is required")
		}
	case "sync-salesforce":
		if c.Salesforce.ClientID == "" {
			errs = append(errs, "salesforce.client_id is required")
		}
		if c.Salesforce.Username == "" {
			errs = append(errs, "salesforce.username is required")
		}
		if c.Salesforce.KeyPath == "" {
			errs = append(errs, "salesforce.key_path is required")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) researchErrors() []string {
	var errs []string
	if c.Anthropic.Key == "" {
		errs = append(errs, "anthropic.key is required")
	}
	if c.Perplexity.Key == "" {
		errs = append(errs, "perplexity.key is required")
	}
	if c.Discovery.MinCount > c.Discovery.MaxCount {
		errs = append(errs, "discovery.min_count must not exceed discovery.max_count")
	}
	if c.Discovery.Concurrency <= 0 {
		errs = append(errs, "discovery.concurrency must be positive")
	}
	return errs
}
