// Package monitoring watches discovery sessions and backend health while the
// API server runs, reaps sessions abandoned by a dead process, and raises
// alerts over a webhook.
package monitoring

import (
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// collectLimit caps how many recent sessions one collection reads.
const collectLimit = 1000

// Snapshot holds a point-in-time view of discovery health.
type Snapshot struct {
	// Sessions started within the lookback window.
	SessionsTotal     int     `json:"sessions_total"`
	SessionsCompleted int     `json:"sessions_completed"`
	SessionsFailed    int     `json:"sessions_failed"`
	SessionsRunning   int     `json:"sessions_running"`
	FailRate          float64 `json:"fail_rate"`
	ProspectsSaved    int     `json:"prospects_saved"`

	// Unfinished sessions older than the stale threshold, any age.
	Stale []string `json:"stale_sessions"`

	OpenBreakers []string `json:"open_breakers"`
	CostUSD      float64  `json:"cost_usd"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Finished is the number of sessions that reached a terminal status.
func (s *Snapshot) Finished() int { return s.SessionsCompleted + s.SessionsFailed }

// Sources supplies process-local health signals. Both are optional.
type Sources struct {
	Breakers func() map[string]string
	CostUSD  func() float64
}

// Collector gathers a Snapshot from the session store and Sources.
type Collector struct {
	sessions   store.SessionStore
	src        Sources
	staleAfter time.Duration
	now        func() time.Time
}

// NewCollector creates a collector over sessions.
func NewCollector(sessions store.SessionStore, src Sources, cfg config.MonitoringConfig) *Collector {
	stale := time.Duration(cfg.StaleAfterMins) * time.Minute
	if stale <= 0 {
		stale = time.Hour
	}
	return &Collector{
		sessions:   sessions,
		src:        src,
		staleAfter: stale,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Collect builds a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now()
	snap := &Snapshot{
		Stale:         []string{},
		OpenBreakers:  []string{},
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	staleBefore := now.Add(-c.staleAfter)

	sessions, err := c.sessions.ListSessions(ctx, store.SessionFilter{Limit: collectLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list sessions")
	}

	for _, s := range sessions {
		unfinished := s.Status == model.SessionRunning || s.Status == model.SessionInitializing
		if unfinished && s.StartedAt.Before(staleBefore) {
			snap.Stale = append(snap.Stale, s.ID)
		}
		if s.StartedAt.Before(cutoff) {
			continue
		}
		snap.SessionsTotal++
		switch s.Status {
		case model.SessionCompleted:
			snap.SessionsCompleted++
			snap.ProspectsSaved += s.ProspectsFound
		case model.SessionError:
			snap.SessionsFailed++
		default:
			snap.SessionsRunning++
		}
	}
	if f := snap.Finished(); f > 0 {
		snap.FailRate = float64(snap.SessionsFailed) / float64(f)
	}

	if c.src.Breakers != nil {
		for svc, state := range c.src.Breakers() {
			if state == "open" {
				snap.OpenBreakers = append(snap.OpenBreakers, svc)
			}
		}
		slices.Sort(snap.OpenBreakers)
	}
	if c.src.CostUSD != nil {
		snap.CostUSD = c.src.CostUSD()
	}
	return snap, nil
}

// Reap marks the given sessions failed as abandoned. A session that finished
// since it was collected is left alone. It returns how many were reaped.
func (c *Collector) Reap(ctx context.Context, ids []string) (int, error) {
	reaped := 0
	for _, id := range ids {
		sess, err := c.sessions.GetSession(ctx, id)
		if err != nil {
			return reaped, eris.Wrapf(err, "monitoring: reap %s", id)
		}
		if sess == nil || (sess.Status != model.SessionRunning && sess.Status != model.SessionInitializing) {
			continue
		}
		now := c.now()
		sess.Status = model.SessionError
		sess.Error = "abandoned: no progress within " + c.staleAfter.String()
		sess.CompletedAt = &now
		if err := c.sessions.UpdateSession(ctx, sess); err != nil {
			return reaped, eris.Wrapf(err, "monitoring: reap %s", id)
		}
		if err := c.sessions.AppendActivity(ctx, id, model.Activity{
			Timestamp: now,
			Level:     "error",
			Message:   "Session abandoned",
		}); err != nil {
			return reaped, eris.Wrapf(err, "monitoring: reap %s", id)
		}
		reaped++
	}
	return reaped, nil
}
