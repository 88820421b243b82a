package research

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
)

const (
	serviceAnthropic  = "anthropic"
	servicePerplexity = "perplexity"

	defaultMaxTokens   = 4096
	searchMaxTokens    = 2048
	maxLearningsPrompt = 12
)

const searchSystem = `You are a web researcher. Answer with specific, verifiable facts: names, websites, locations, contact details and recent news. Prefer primary sources.`

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)

// Options tunes a DeepResearcher.
type Options struct {
	Model       string
	MaxTokens   int64
	RateLimit   float64 // backend calls per second; zero disables throttling
	Concurrency int     // parallel searches per round
	Guard       *resilience.Guard
}

// DeepResearcher implements Researcher with Anthropic for query generation
// and synthesis and Perplexity for search.
type DeepResearcher struct {
	llm     anthropic.Client
	search  perplexity.Client
	opts    Options
	limiter *rate.Limiter
	guard   *resilience.Guard

	mu    sync.Mutex
	usage anthropic.TokenUsage
}

// NewDeepResearcher wires the two backends.
func NewDeepResearcher(llm anthropic.Client, search perplexity.Client, opts Options) *DeepResearcher {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	d := &DeepResearcher{llm: llm, search: search, opts: opts, guard: opts.Guard}
	if d.guard == nil {
		d.guard = resilience.NewGuard(resilience.NewPolicy(0, 0, 0))
	}
	if opts.RateLimit > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(int(opts.RateLimit), 1))
	}
	return d
}

// Usage returns the token usage accumulated across calls.
func (d *DeepResearcher) Usage() anthropic.TokenUsage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.usage
}

// Breakers reports circuit breaker states per backend.
func (d *DeepResearcher) Breakers() map[string]string { return d.guard.States() }

func (d *DeepResearcher) wait(ctx context.Context) error {
	if d.limiter == nil {
		return ctx.Err()
	}
	return d.limiter.Wait(ctx)
}

// Research runs Depth rounds of Breadth searches, halving breadth each round,
// then synthesizes the findings with the report prompt. Individual search
// failures are logged and skipped; a round where every search fails ends the
// research early, and no findings at all is an error.
func (d *DeepResearcher) Research(ctx context.Context, req Request) (*Result, error) {
	if err := req.Prompts.Validate(); err != nil {
		return nil, eris.Wrap(err, "research: invalid request")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, eris.New("research: query is required")
	}
	breadth := max(req.Breadth, 1)
	depth := max(req.Depth, 1)
	log := zap.L().With(zap.String("query", req.Query))

	res := &Result{Queries: []string{}, Learnings: []Finding{}}
	for round := 1; round <= depth; round++ {
		queries, err := d.generateQueries(ctx, req, breadth, res.Learnings, res.Queries)
		if err != nil {
			if round == 1 {
				return nil, err
			}
			log.Warn("research: follow-up query generation failed", zap.Int("round", round), zap.Error(err))
			break
		}
		if len(queries) == 0 {
			break
		}
		res.Queries = append(res.Queries, queries...)

		findings := d.runSearches(ctx, queries, log)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(findings) == 0 {
			log.Warn("research: all searches failed", zap.Int("round", round))
			break
		}
		res.Learnings = append(res.Learnings, findings...)
		breadth = max(breadth/2, 1)
	}
	if len(res.Learnings) == 0 {
		return nil, eris.Errorf("research: no findings for %q", req.Query)
	}

	for _, f := range res.Learnings {
		for _, s := range f.Sources {
			if !slices.Contains(res.Sources, s) {
				res.Sources = append(res.Sources, s)
			}
		}
	}

	report, err := d.synthesize(ctx, req, res.Learnings)
	if err != nil {
		return nil, err
	}
	res.Report = report
	log.Info("research complete",
		zap.Int("queries", len(res.Queries)),
		zap.Int("learnings", len(res.Learnings)),
		zap.Int("report_len", len(report)),
	)
	return res, nil
}

func (d *DeepResearcher) complete(ctx context.Context, op, system, user string) (string, error) {
	if err := d.wait(ctx); err != nil {
		return "", eris.Wrap(err, "research: rate limit")
	}
	resp, err := resilience.Call(ctx, d.guard, serviceAnthropic, op, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return d.llm.CreateMessage(ctx, anthropic.UserPrompt(d.opts.Model, d.opts.MaxTokens, system, user))
	})
	if err != nil {
		return "", eris.Wrapf(err, "research: %s", op)
	}
	d.mu.Lock()
	d.usage.Add(resp.Usage)
	d.mu.Unlock()
	return resp.Text(), nil
}

func (d *DeepResearcher) generateQueries(ctx context.Context, req Request, n int, learnings []Finding, done []string) ([]string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Research topic: %s\n\n", req.Query)
	if len(learnings) > 0 {
		b.WriteString("What we already learned:\n")
		for _, l := range learnings[max(len(learnings)-maxLearningsPrompt, 0):] {
			fmt.Fprintf(&b, "- %s: %s\n", l.Query, firstLine(l.Answer))
		}
		b.WriteString("\nPropose follow-up searches that dig deeper into gaps.\n")
	}
	fmt.Fprintf(&b, "Return at most %d web search queries, one per line, with no numbering or commentary.", n)

	text, err := d.complete(ctx, "generate queries", req.Prompts.QueryGeneration(), b.String())
	if err != nil {
		return nil, err
	}
	queries := ParseQueries(text, n, done)
	if len(queries) == 0 && len(done) == 0 {
		queries = []string{req.Query}
	}
	return queries, nil
}

// runSearches executes queries concurrently. Failed searches are logged and
// left out; results keep query order.
func (d *DeepResearcher) runSearches(ctx context.Context, queries []string, log *zap.Logger) []Finding {
	results := make([]*Finding, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)
	for i, q := range queries {
		g.Go(func() error {
			if err := d.wait(gctx); err != nil {
				return nil
			}
			f, err := resilience.Call(gctx, d.guard, servicePerplexity, "search", func(ctx context.Context) (*Finding, error) {
				answer, sources, err := perplexity.Search(ctx, d.search, searchSystem, q, searchMaxTokens)
				if err != nil {
					return nil, err
				}
				return &Finding{Query: q, Answer: answer, Sources: sources}, nil
			})
			if err != nil {
				log.Warn("research: search failed", zap.String("search", q), zap.Error(err))
				return nil
			}
			if strings.TrimSpace(f.Answer) != "" {
				results[i] = f
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Finding, 0, len(results))
	for _, f := range results {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

func (d *DeepResearcher) synthesize(ctx context.Context, req Request, learnings []Finding) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Research topic: %s\n\nFindings:\n", req.Query)
	for _, l := range learnings {
		fmt.Fprintf(&b, "\n### %s\n%s\n", l.Query, strings.TrimSpace(l.Answer))
		if len(l.Sources) > 0 {
			fmt.Fprintf(&b, "Sources: %s\n", strings.Join(l.Sources, ", "))
		}
	}
	b.WriteString("\nWrite the report in the requested format using only these findings.")
	return d.complete(ctx, "synthesize report", req.Prompts.ReportGeneration(), b.String())
}

// ParseQueries reads one query per line from model output, dropping list
// markers, quotes, blank lines and anything already in seen. At most n are
// returned.
func ParseQueries(text string, n int, seen []string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		q := listMarker.ReplaceAllString(strings.TrimSpace(line), "")
		q = strings.Trim(strings.TrimSpace(q), `"'`)
		if q == "" || strings.HasSuffix(q, ":") {
			continue
		}
		if slices.Contains(out, q) || slices.Contains(seen, q) {
			continue
		}
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return s
}
