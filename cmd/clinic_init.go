package main

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-intel/internal/config"
	"github.com/sells-group/clinic-intel/internal/cost"
	"github.com/sells-group/clinic-intel/internal/crawl"
	"github.com/sells-group/clinic-intel/internal/escalate"
	"github.com/sells-group/clinic-intel/internal/fetcher"
	"github.com/sells-group/clinic-intel/internal/model"
	"github.com/sells-group/clinic-intel/internal/oracle"
)

// clinicEnv holds the shared fetcher, oracle and controller used by the
// run and batch commands.
type clinicEnv struct {
	Controller *escalate.Controller
	Oracle     oracle.Oracle
	Budget     model.CrawlBudget
	Costs      *cost.Tracker
}

// Close logs accumulated usage and releases the oracle's client, if it
// holds one.
func (e *clinicEnv) Close() {
	e.Costs.Log()
	if c, ok := e.Oracle.(io.Closer); ok {
		if err := c.Close(); err != nil {
			zap.L().Warn("close oracle", zap.Error(err))
		}
	}
}

// initClinic validates configuration for mode and builds the controller.
// Callers should defer env.Close().
func initClinic(ctx context.Context, mode string) (*clinicEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	prompt, err := oracle.LoadPrompt(cfg.Oracle.PromptPath)
	if err != nil {
		return nil, err
	}

	costs := cost.NewTracker(cost.NewCalculator(cfg.Rates()))
	opts := oracleOptions(cfg, prompt)
	opts.Costs = costs

	orc, err := oracle.New(ctx, opts)
	if err != nil {
		return nil, eris.Wrap(err, "init oracle")
	}

	pages := fetcher.NewHTTPFetcher(fetcherOptions(cfg))
	frontier := crawl.NewFrontier(pages, cfg.Crawl.ExcludePaths)

	env := &clinicEnv{
		Controller: escalate.NewController(frontier, orc, escalationOptions(cfg)),
		Oracle:     orc,
		Budget:     baseBudget(cfg),
		Costs:      costs,
	}

	zap.L().Debug("clinic environment ready",
		zap.String("oracle", orc.Name()),
		zap.Int("max_pages", env.Budget.MaxPages),
		zap.Int("max_depth", env.Budget.MaxDepth),
		zap.Bool("escalation", cfg.Escalation.Enabled),
		zap.Bool("exhaustive", cfg.Escalation.Exhaustive),
	)
	return env, nil
}

func baseBudget(c *config.Config) model.CrawlBudget {
	return model.CrawlBudget{MaxPages: c.Crawl.MaxPages, MaxDepth: c.Crawl.MaxDepth}
}

func fetcherOptions(c *config.Config) fetcher.HTTPOptions {
	return fetcher.HTTPOptions{
		UserAgent:  c.Crawl.UserAgent,
		Timeout:    time.Duration(c.Crawl.TimeoutSecs) * time.Second,
		MaxConns:   c.Crawl.MaxConns,
		RatePerSec: c.Crawl.RatePerSec,
	}
}

func oracleOptions(c *config.Config, prompt string) oracle.Options {
	opts := oracle.Options{
		Provider:    c.Oracle.Provider,
		APIKey:      c.APIKey(),
		PayloadCap:  c.Oracle.PayloadCap,
		MaxAttempts: c.Oracle.MaxAttempts,
		Prompt:      prompt,
	}
	switch strings.ToLower(strings.TrimSpace(c.Oracle.Provider)) {
	case oracle.ProviderAnthropic:
		opts.Model = c.Anthropic.Model
		opts.MaxTokens = c.Anthropic.MaxTokens
	case oracle.ProviderGemini:
		opts.Model = c.Gemini.Model
	}
	return opts
}

func escalationOptions(c *config.Config) escalate.Options {
	return escalate.Options{
		Enabled:           c.Escalation.Enabled,
		MaxTotalPages:     c.Escalation.MaxTotalPages,
		MaxTotalDepth:     c.Escalation.MaxTotalDepth,
		Exhaustive:        c.Escalation.Exhaustive,
		ExhaustivePageCap: c.Escalation.ExhaustivePageCap,
		Normalize:         c.Oracle.Normalize,
	}
}
