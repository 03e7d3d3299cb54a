package escalate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-intel/internal/crawl"
	"github.com/sells-group/clinic-intel/internal/evidence"
	"github.com/sells-group/clinic-intel/internal/model"
	"github.com/sells-group/clinic-intel/internal/normalize"
	"github.com/sells-group/clinic-intel/internal/oracle"
	"github.com/sells-group/clinic-intel/internal/scrape"
)

// State is a controller state for one seed.
type State int

// Controller states. A seed moves Initial → Resolving → (Escalating →
// Resolving)* → [Exhaustive → Resolving] → Done.
const (
	StateInitial State = iota
	StateResolving
	StateEscalating
	StateExhaustive
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateResolving:
		return "resolving"
	case StateEscalating:
		return "escalating"
	case StateExhaustive:
		return "exhaustive"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Crawler fetches page sets for a seed. *crawl.Frontier implements it.
type Crawler interface {
	Discover(ctx context.Context, seed string, budget model.CrawlBudget) ([]model.PagePayload, error)
	Exhaust(ctx context.Context, seed string, pageCap int) ([]model.PagePayload, error)
}

// Options tune escalation.
type Options struct {
	// Enabled allows budgets beyond the base step. Exhaustive is ignored
	// when escalation is disabled.
	Enabled       bool
	MaxTotalPages int
	MaxTotalDepth int

	// Exhaustive runs one unbounded-depth crawl when fields remain
	// unresolved after every planned step.
	Exhaustive        bool
	ExhaustivePageCap int

	// Normalize applies the field normalizers to each oracle record.
	Normalize bool
}

// DefaultOptions returns escalation defaults.
func DefaultOptions() Options {
	return Options{
		Enabled:           true,
		MaxTotalPages:     DefaultMaxTotalPages,
		MaxTotalDepth:     DefaultMaxTotalDepth,
		ExhaustivePageCap: crawl.DefaultExhaustivePageCap,
		Normalize:         true,
	}
}

// Attempt records one crawl and oracle call. Attempts are never mutated
// after they are appended.
type Attempt struct {
	State      State
	Budget     model.CrawlBudget
	Pages      int
	Record     model.ExtractionRecord
	Unresolved []string
	Duration   time.Duration
}

// Result is the outcome for one seed. Record is the last attempt's record,
// whatever its unresolved fields.
type Result struct {
	Seed string
	// Site is the seed's registrable domain.
	Site     string
	State    State
	Record   model.ExtractionRecord
	Attempts []Attempt
}

// Unresolved returns the fields still unknown in the final record.
func (r Result) Unresolved() []string { return r.Record.Unresolved() }

// Controller runs the escalation loop. It keeps no per-seed state, so one
// Controller may serve seeds concurrently.
type Controller struct {
	crawler Crawler
	oracle  oracle.Oracle
	opts    Options
}

// NewController creates a Controller.
func NewController(c Crawler, o oracle.Oracle, opts Options) *Controller {
	if opts.ExhaustivePageCap <= 0 {
		opts.ExhaustivePageCap = crawl.DefaultExhaustivePageCap
	}
	return &Controller{crawler: c, oracle: o, opts: opts}
}

// Steps returns the budgets Run would try for base, in order.
func (c *Controller) Steps(base model.CrawlBudget) []model.CrawlBudget {
	if !c.opts.Enabled {
		return []model.CrawlBudget{base}
	}
	return Plan(base, c.opts.MaxTotalPages, c.opts.MaxTotalDepth)
}

// Run processes one seed. It stops at the first step that resolves every
// field. A crawl that yields no pages or a failed oracle call aborts the
// seed; records from earlier steps are discarded.
func (c *Controller) Run(ctx context.Context, seed string, base model.CrawlBudget) (Result, error) {
	if err := base.Validate(); err != nil {
		return Result{}, err
	}

	site := scrape.SiteKey(seed)
	log := zap.L().With(zap.String("seed", seed), zap.String("site", site), zap.String("oracle", c.oracle.Name()))
	res := Result{Seed: seed, Site: site}

	for i, budget := range c.Steps(base) {
		state := StateInitial
		if i > 0 {
			state = StateEscalating
			transition(seed, StateResolving, state)
			log.Info("escalate: widening crawl",
				zap.Strings("unresolved", res.Unresolved()),
				zap.Int("max_pages", budget.MaxPages),
				zap.Int("max_depth", budget.MaxDepth),
			)
		}

		att, err := c.attempt(ctx, seed, state, budget, func(ctx context.Context) ([]model.PagePayload, error) {
			return c.crawler.Discover(ctx, seed, budget)
		})
		if err != nil {
			return Result{}, err
		}
		res.Attempts = append(res.Attempts, att)
		res.Record = att.Record

		if len(att.Unresolved) == 0 {
			transition(seed, StateResolving, StateDone)
			res.State = StateDone
			log.Info("escalate: resolved", zap.Int("steps", len(res.Attempts)))
			return res, nil
		}
	}

	if c.opts.Enabled && c.opts.Exhaustive {
		transition(seed, StateResolving, StateExhaustive)
		log.Info("escalate: running exhaustive crawl",
			zap.Strings("unresolved", res.Unresolved()),
			zap.Int("page_cap", c.opts.ExhaustivePageCap),
		)
		budget := model.CrawlBudget{MaxPages: c.opts.ExhaustivePageCap, MaxDepth: -1}
		att, err := c.attempt(ctx, seed, StateExhaustive, budget, func(ctx context.Context) ([]model.PagePayload, error) {
			return c.crawler.Exhaust(ctx, seed, c.opts.ExhaustivePageCap)
		})
		if err != nil {
			return Result{}, err
		}
		res.Attempts = append(res.Attempts, att)
		res.Record = att.Record
	}

	transition(seed, StateResolving, StateDone)
	res.State = StateDone
	log.Info("escalate: done",
		zap.Int("steps", len(res.Attempts)),
		zap.Strings("unresolved", res.Unresolved()),
	)
	return res, nil
}

func transition(seed string, from, to State, fields ...zap.Field) {
	zap.L().Debug("escalate: transition",
		append([]zap.Field{
			zap.String("seed", seed),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		}, fields...)...,
	)
}

func (c *Controller) attempt(
	ctx context.Context,
	seed string,
	state State,
	budget model.CrawlBudget,
	fetch func(context.Context) ([]model.PagePayload, error),
) (Attempt, error) {
	start := time.Now()

	pages, err := fetch(ctx)
	if err != nil {
		return Attempt{}, eris.Wrapf(err, "escalate: %s crawl of %s", state, seed)
	}

	ev := evidence.Build(pages)
	rec, err := c.oracle.Extract(ctx, pages, ev)
	if err != nil {
		return Attempt{}, eris.Wrapf(err, "escalate: %s extract for %s", state, seed)
	}
	if c.opts.Normalize {
		rec = normalize.Record(rec, ev)
	}

	att := Attempt{
		State:      state,
		Budget:     budget,
		Pages:      len(pages),
		Record:     rec,
		Unresolved: rec.Unresolved(),
		Duration:   time.Since(start),
	}
	transition(seed, state, StateResolving,
		zap.Int("pages", att.Pages),
		zap.Strings("unresolved", att.Unresolved),
		zap.Duration("duration", att.Duration),
	)
	return att, nil
}
