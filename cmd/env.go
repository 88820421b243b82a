package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/discovery"
	"github.com/sells-group/prospect-cli/internal/profile"
	"github.com/sells-group/prospect-cli/internal/research"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
)

// openProfiles opens the document store named by the config.
func openProfiles(ctx context.Context, c *config.Config) (*profile.Manager, error) {
	st, err := store.Open(ctx, c.Store.Dir)
	if err != nil {
		return nil, eris.Wrap(err, "open profile store")
	}
	return profile.NewManager(st, c.Store.BackupDir), nil
}

// openSessions opens and migrates the session database.
func openSessions(ctx context.Context, c *config.Config) (store.SessionStore, error) {
	var (
		ss  store.SessionStore
		err error
	)
	switch c.Sessions.Driver {
	case "sqlite":
		ss, err = store.NewSQLite(c.Sessions.DatabaseURL)
	case "postgres":
		ss, err = store.NewPostgres(ctx, c.Sessions.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported sessions driver: %s", c.Sessions.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := ss.Migrate(ctx); err != nil {
		_ = ss.Close()
		return nil, err
	}
	return ss, nil
}

// newGuard builds the retry and circuit breaker policy for external calls.
func newGuard(c config.ResearchConfig) *resilience.Guard {
	return resilience.NewGuard(resilience.NewPolicy(c.RetryAttempts, c.CircuitThreshold, c.TimeoutSecs))
}

// newResearcher wires Anthropic and Perplexity into a deep researcher.
func newResearcher(c *config.Config, guard *resilience.Guard) *research.DeepResearcher {
	llm := anthropic.NewClient(c.Anthropic.Key)
	search := perplexity.NewClient(c.Perplexity.Key,
		perplexity.WithBaseURL(c.Perplexity.BaseURL),
		perplexity.WithModel(c.Perplexity.Model),
	)
	return research.NewDeepResearcher(llm, search, research.Options{
		Model:       c.Anthropic.Model,
		MaxTokens:   c.Anthropic.MaxTokens,
		RateLimit:   c.Research.RateLimit,
		Concurrency: c.Discovery.Concurrency,
		Guard:       guard,
	})
}

// discoveryEnv bundles everything a discovery run needs.
type discoveryEnv struct {
	Profiles   *profile.Manager
	Sessions   store.SessionStore
	Researcher *research.DeepResearcher
	Engine     *discovery.Engine
}

// Close releases the session database.
func (e *discoveryEnv) Close() error {
	return e.Sessions.Close()
}

func initDiscovery(ctx context.Context, c *config.Config) (*discoveryEnv, error) {
	pm, err := openProfiles(ctx, c)
	if err != nil {
		return nil, err
	}
	ss, err := openSessions(ctx, c)
	if err != nil {
		return nil, err
	}
	r := newResearcher(c, newGuard(c.Research))
	eng := discovery.NewEngine(r, pm, ss, discovery.Config{
		Research:  c.Research,
		Discovery: c.Discovery,
	})
	return &discoveryEnv{Profiles: pm, Sessions: ss, Researcher: r, Engine: eng}, nil
}
