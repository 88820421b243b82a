// Package discovery finds prospects for a company goal. A run plans a search
// strategy, researches candidates, qualifies the most promising ones and
// saves them as profiles, recording progress on a session.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/extract"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/profile"
	"github.com/sells-group/prospect-cli/internal/prompt"
	"github.com/sells-group/prospect-cli/internal/research"
	"github.com/sells-group/prospect-cli/internal/store"
)

// ErrInvalidRequest is returned by Start and Run when the request lacks a
// company name or goal.
var ErrInvalidRequest = errors.New("invalid discovery request")

// Stage progress checkpoints, in percent.
const (
	progressAnalyze = 5
	progressSearch  = 15
	progressExtract = 55
	progressQualify = 60
	progressSave    = 90
	progressDone    = 100
)

// Request starts a discovery run.
type Request struct {
	Company     model.CompanyProfile `json:"company" validate:"required"`
	Goal        string               `json:"goal" validate:"required"`
	TargetCount int                  `json:"target_count" validate:"gte=0"`
}

// Config tunes discovery runs.
type Config struct {
	Research  config.ResearchConfig
	Discovery config.DiscoveryConfig
}

// Result is the outcome of a finished run.
type Result struct {
	Session   *model.Session `json:"session"`
	Analysis  model.Analysis `json:"analysis"`
	Queries   []string       `json:"queries"`
	Prospects []model.Draft  `json:"prospects"`
}

// Engine runs discovery sessions.
type Engine struct {
	researcher research.Researcher
	profiles   *profile.Manager
	sessions   store.SessionStore
	cfg        Config
	log        *zap.Logger

	wg sync.WaitGroup
}

// NewEngine builds an Engine.
func NewEngine(r research.Researcher, profiles *profile.Manager, sessions store.SessionStore, cfg Config) *Engine {
	if cfg.Discovery.Concurrency <= 0 {
		cfg.Discovery.Concurrency = 1
	}
	return &Engine{
		researcher: r,
		profiles:   profiles,
		sessions:   sessions,
		cfg:        cfg,
		log:        zap.L().With(zap.String("component", "discovery")),
	}
}

// Run executes a discovery synchronously.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	sess, err := e.open(ctx, &req)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, sess, req)
}

// Start opens a session and runs the discovery in the background under ctx,
// which should outlive the caller's request. It returns a snapshot of the
// new session.
func (e *Engine) Start(ctx context.Context, req Request) (*model.Session, error) {
	sess, err := e.open(ctx, &req)
	if err != nil {
		return nil, err
	}
	snapshot := *sess

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.run(ctx, sess, req); err != nil {
			e.log.Error("discovery failed", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}()
	return &snapshot, nil
}

// Wait blocks until every background run has returned.
func (e *Engine) Wait() { e.wg.Wait() }

// Session returns a stored session, or nil when unknown.
func (e *Engine) Session(ctx context.Context, id string) (*model.Session, error) {
	return e.sessions.GetSession(ctx, id)
}

// Sessions lists stored sessions.
func (e *Engine) Sessions(ctx context.Context, f store.SessionFilter) ([]model.Session, error) {
	return e.sessions.ListSessions(ctx, f)
}

func (e *Engine) open(ctx context.Context, req *Request) (*model.Session, error) {
	req.Goal = strings.TrimSpace(req.Goal)
	req.Company.Name = strings.TrimSpace(req.Company.Name)
	if req.Company.Name == "" {
		return nil, eris.Wrap(ErrInvalidRequest, "discovery: company name is required")
	}
	if req.Goal == "" {
		return nil, eris.Wrap(ErrInvalidRequest, "discovery: goal is required")
	}
	req.TargetCount = e.cfg.Discovery.ClampTargetCount(req.TargetCount)

	sess := &model.Session{
		ID:          ulid.Make().String(),
		CompanyName: req.Company.Name,
		Goal:        req.Goal,
		TargetCount: req.TargetCount,
		Status:      model.SessionInitializing,
		ProfileIDs:  []string{},
		StartedAt:   time.Now().UTC(),
	}
	if err := e.sessions.CreateSession(ctx, sess); err != nil {
		return nil, eris.Wrap(err, "discovery: create session")
	}
	return sess, nil
}

func (e *Engine) run(ctx context.Context, sess *model.Session, req Request) (*Result, error) {
	t := newTracker(e.sessions, sess)
	res := &Result{Session: sess, Queries: []string{}, Prospects: []model.Draft{}}
	start := time.Now()

	t.advance(ctx, model.StageAnalyze, progressAnalyze,
		fmt.Sprintf("Analyzing %s goal: %s", req.Company.Name, req.Goal))
	res.Analysis = e.analyze(ctx, req, t)
	if err := ctx.Err(); err != nil {
		t.fail(ctx, err)
		return res, eris.Wrap(err, "discovery: analyze")
	}

	res.Queries = prompt.SmartQueries(req.Company, req.Goal, res.Analysis, e.cfg.Discovery.MaxQueries)
	t.advance(ctx, model.StageSearch, progressSearch,
		fmt.Sprintf("Searching for %s with %d queries", res.Analysis.ProspectType, len(res.Queries)))
	drafts := e.search(ctx, req, res.Analysis, res.Queries, t)
	if err := ctx.Err(); err != nil {
		t.fail(ctx, err)
		return res, eris.Wrap(err, "discovery: search")
	}

	candidates := extract.Dedupe(drafts)
	if limit := req.TargetCount * 2; len(candidates) > limit {
		candidates = candidates[:limit]
	}
	t.advance(ctx, model.StageExtract, progressExtract,
		fmt.Sprintf("Extracted %d unique prospects from %d mentions", len(candidates), len(drafts)))
	if len(candidates) == 0 {
		t.warn(ctx, "No prospects found")
		t.complete(ctx, nil)
		return res, nil
	}

	candidates = candidates[:min(req.TargetCount, len(candidates))]
	t.advance(ctx, model.StageQualify, progressQualify,
		fmt.Sprintf("Qualifying %d prospects", len(candidates)))
	res.Prospects = e.qualify(ctx, req, candidates, t)
	if err := ctx.Err(); err != nil {
		t.fail(ctx, err)
		return res, eris.Wrap(err, "discovery: qualify")
	}

	t.advance(ctx, model.StageSave, progressSave, "Saving prospect profiles")
	ids, err := e.profiles.SaveDiscovered(ctx, res.Prospects, req.Company, req.Goal, sess.ID)
	if err != nil {
		t.fail(ctx, err)
		return res, eris.Wrap(err, "discovery: save")
	}
	t.complete(ctx, ids)

	e.log.Info("discovery complete",
		zap.String("session_id", sess.ID),
		zap.Int("queries", len(res.Queries)),
		zap.Int("candidates", len(candidates)),
		zap.Int("saved", len(ids)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// analyze asks the researcher for a search strategy. Any failure falls back
// to a strategy derived from the company alone.
func (e *Engine) analyze(ctx context.Context, req Request, t *tracker) model.Analysis {
	out, err := e.researcher.Research(ctx, research.Request{
		Query:   fmt.Sprintf("Analyze %s goal: %s", req.Company.Name, req.Goal),
		Breadth: 1,
		Depth:   1,
		Prompts: prompt.Analysis(req.Company, req.Goal),
	})
	if err != nil {
		e.log.Warn("analysis failed, using fallback strategy", zap.Error(err))
		t.warn(ctx, "Analysis unavailable, using a broad search strategy")
		return extract.FallbackAnalysis(req.Company)
	}
	a := extract.ParseAnalysis(out.Report, req.Company)
	t.info(ctx, fmt.Sprintf("Strategy: %s in %s", a.ProspectType, a.TargetIndustry))
	return a
}

// search runs every query concurrently and returns the drafts found, in
// query order. Failed queries are skipped.
func (e *Engine) search(ctx context.Context, req Request, a model.Analysis, queries []string, t *tracker) []model.Draft {
	prompts := prompt.Discovery(req.Company, req.Goal, a)
	found := make([][]model.Draft, len(queries))
	var done int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Discovery.Concurrency)
	for i, q := range queries {
		g.Go(func() error {
			out, err := e.researcher.Research(gctx, research.Request{
				Query:   q,
				Breadth: e.cfg.Research.SearchBreadth,
				Depth:   e.cfg.Research.SearchDepth,
				Prompts: prompts,
			})
			mu.Lock()
			done++
			n := done
			mu.Unlock()
			progress := progressSearch + (progressExtract-progressSearch)*n/len(queries)

			if err != nil {
				e.log.Warn("search query failed", zap.String("search", q), zap.Error(err))
				t.progress(gctx, progress, "warning", fmt.Sprintf("Query failed: %s", q))
				return nil
			}
			drafts := extract.ParseReport(out.Report)
			for j := range drafts {
				drafts[j].SourceQuery = q
				drafts[j].SearchContext = a.SearchStrategy
			}
			found[i] = drafts
			t.progress(gctx, progress, "info", fmt.Sprintf("Query %q found %d prospects", q, len(drafts)))
			return nil
		})
	}
	_ = g.Wait()

	var out []model.Draft
	for _, d := range found {
		out = append(out, d...)
	}
	return out
}

// qualify researches each candidate in depth. A candidate whose research
// fails is kept unqualified with an alignment judged from its draft alone.
func (e *Engine) qualify(ctx context.Context, req Request, candidates []model.Draft, t *tracker) []model.Draft {
	out := make([]model.Draft, len(candidates))
	copy(out, candidates)
	var done int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Discovery.Concurrency)
	for i := range out {
		g.Go(func() error {
			d := &out[i]
			res, err := e.researcher.Research(gctx, research.Request{
				Query:   fmt.Sprintf("%s %s qualification research", d.Name, req.Goal),
				Breadth: e.cfg.Research.QualifyBreadth,
				Depth:   e.cfg.Research.QualifyDepth,
				Prompts: prompt.Qualification(d.Name, req.Company, req.Goal),
			})
			var report string
			if err == nil {
				report = res.Report
				d.Qualified = true
				d.Insights = extract.Insights(report)
			}
			ga := AssessAlignment(*d, req.Goal, report)
			d.Alignment = &ga

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			progress := progressQualify + (progressSave-progressQualify)*n/len(out)
			if err != nil {
				e.log.Warn("qualification failed", zap.String("prospect", d.Name), zap.Error(err))
				t.progress(gctx, progress, "warning", fmt.Sprintf("Could not qualify %s", d.Name))
				return nil
			}
			t.progress(gctx, progress, "info",
				fmt.Sprintf("Qualified %s: %s relevance", d.Name, ga.RelevanceScore))
			return nil
		})
	}
	_ = g.Wait()
	return out
}
