// Package crmsync pushes prospect profiles into external CRMs and records
// the external ids back on the profiles.
package crmsync

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/profile"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

// Sink writes one profile to an external system.
type Sink interface {
	// Name identifies the sink in tags, logs and breaker states.
	Name() string
	// RefKey is the contact_info.other key holding the external id.
	RefKey() string
	// Push creates or updates the external record. ref is the id recorded by
	// an earlier push, or "". It returns the record id and whether it was
	// created.
	Push(ctx context.Context, p *model.Profile, ref string) (string, bool, error)
}

// Result summarizes a sync run.
type Result struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Options tunes a Syncer.
type Options struct {
	DryRun bool
	Guard  *resilience.Guard
}

// Syncer pushes profiles selected by a filter into a sink.
type Syncer struct {
	profiles *profile.Manager
	sink     Sink
	opts     Options
	log      *zap.Logger
}

// New returns a Syncer.
func New(profiles *profile.Manager, sink Sink, opts Options) *Syncer {
	if opts.Guard == nil {
		opts.Guard = resilience.NewGuard(resilience.NewPolicy(0, 0, 0))
	}
	return &Syncer{
		profiles: profiles,
		sink:     sink,
		opts:     opts,
		log:      zap.L().With(zap.String("component", "crmsync"), zap.String("sink", sink.Name())),
	}
}

// SyncedTag marks profiles pushed to the named sink.
func SyncedTag(sink string) string { return "synced:" + sink }

// Sync pushes every profile matching f. A profile that fails to push is
// logged and counted; the run continues.
func (s *Syncer) Sync(ctx context.Context, f model.Filter) (*Result, error) {
	profiles, err := s.profiles.Search(ctx, f)
	if err != nil {
		return nil, eris.Wrap(err, "crmsync: select profiles")
	}

	res := &Result{Total: len(profiles)}
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "crmsync: sync")
		}
		ref := p.ContactInfo.Other[s.sink.RefKey()]
		if s.opts.DryRun {
			s.log.Info("dry run: would push profile",
				zap.String("profile_id", p.ID),
				zap.String("name", p.Name),
				zap.String("ref", ref),
			)
			res.Skipped++
			continue
		}

		created, err := s.push(ctx, p, ref)
		switch {
		case err != nil:
			res.Failed++
			s.log.Warn("crmsync: push failed",
				zap.String("profile_id", p.ID),
				zap.String("name", p.Name),
				zap.Error(err),
			)
		case created:
			res.Created++
		default:
			res.Updated++
		}
	}

	s.log.Info("sync complete",
		zap.Int("total", res.Total),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

type pushed struct {
	id      string
	created bool
}

// push writes p to the sink and records the outcome on the profile.
func (s *Syncer) push(ctx context.Context, p *model.Profile, ref string) (bool, error) {
	out, err := resilience.Call(ctx, s.opts.Guard, s.sink.Name(), "push", func(ctx context.Context) (pushed, error) {
		id, created, err := s.sink.Push(ctx, p, ref)
		return pushed{id: id, created: created}, err
	})
	if err != nil {
		return false, err
	}
	if out.id != "" && out.id != ref {
		if _, err := s.profiles.SetExternalRef(ctx, p.ID, s.sink.RefKey(), out.id); err != nil {
			return false, eris.Wrap(err, "crmsync: record external id")
		}
	}
	if _, err := s.profiles.AddTag(ctx, p.ID, SyncedTag(s.sink.Name())); err != nil {
		return false, eris.Wrap(err, "crmsync: tag profile")
	}
	return out.created, nil
}
