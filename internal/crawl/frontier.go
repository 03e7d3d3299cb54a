// Package crawl discovers and fetches the informative pages of one clinic
// website within a page and depth budget.
package crawl

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-intel/internal/fetcher"
	"github.com/sells-group/clinic-intel/internal/model"
	"github.com/sells-group/clinic-intel/internal/scrape"
)

// DefaultExhaustivePageCap bounds the unbounded-depth fallback crawl.
const DefaultExhaustivePageCap = 500

// ErrNoPages is returned when a crawl produced no usable page at all.
var ErrNoPages = eris.New("crawl: no pages fetched")

// unboundedDepth disables the depth check.
const unboundedDepth = -1

type entry struct {
	url   string
	depth int
}

// Frontier runs breadth-first crawls. It holds no per-crawl state, so one
// Frontier may serve concurrent crawls of different seeds.
type Frontier struct {
	fetcher  fetcher.PageFetcher
	excludes []string
}

// NewFrontier creates a Frontier. excludePaths are optional glob patterns
// (e.g. "/blog/*") that are never followed.
func NewFrontier(f fetcher.PageFetcher, excludePaths []string) *Frontier {
	return &Frontier{fetcher: f, excludes: excludePaths}
}

// Discover crawls seed breadth-first. At most budget.MaxPages payloads are
// returned, the seed first, and no page beyond budget.MaxDepth hops is
// expanded. ErrNoPages is returned when nothing could be fetched.
func (fr *Frontier) Discover(ctx context.Context, seed string, budget model.CrawlBudget) ([]model.PagePayload, error) {
	if err := budget.Validate(); err != nil {
		return nil, err
	}
	return fr.crawl(ctx, seed, budget.MaxPages, budget.MaxDepth)
}

// Exhaust crawls every reachable same-origin page regardless of depth, up
// to pageCap pages.
func (fr *Frontier) Exhaust(ctx context.Context, seed string, pageCap int) ([]model.PagePayload, error) {
	if pageCap <= 0 {
		pageCap = DefaultExhaustivePageCap
	}
	return fr.crawl(ctx, seed, pageCap, unboundedDepth)
}

func (fr *Frontier) crawl(ctx context.Context, rawSeed string, maxPages, maxDepth int) ([]model.PagePayload, error) {
	seed, err := scrape.NormalizeSeed(rawSeed)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: normalize seed")
	}
	scope, err := scrape.NewScope(seed, fr.excludes)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: build scope")
	}

	var (
		pages   []model.PagePayload
		queue   = []entry{{url: seed, depth: 0}}
		queued  = map[string]bool{seed: true}
		visited = make(map[string]bool)
		skipped int
	)

	for len(queue) > 0 && len(pages) < maxPages {
		if err := ctx.Err(); err != nil {
			return pages, eris.Wrap(err, "crawl: cancelled")
		}

		cur := queue[0]
		queue = queue[1:]
		delete(queued, cur.url)
		if visited[cur.url] {
			continue
		}
		visited[cur.url] = true

		page, err := fr.fetcher.Fetch(ctx, cur.url)
		if err != nil {
			if ctx.Err() != nil {
				return pages, eris.Wrap(ctx.Err(), "crawl: cancelled")
			}
			skipped++
			zap.L().Debug("crawl: skipping page", zap.String("url", cur.url), zap.Error(err))
			continue
		}

		// A redirect onto an already crawled page is a duplicate.
		if final, ok := scrape.CanonicalURL(page.FinalURL); ok && final != cur.url {
			if visited[final] {
				zap.L().Debug("crawl: redirect to visited page", zap.String("url", cur.url), zap.String("final_url", final))
				continue
			}
			visited[final] = true
		}

		payload, links := scrape.ParsePage(cur.url, page.HTML)
		pages = append(pages, payload)
		if len(pages) >= maxPages {
			break
		}

		if maxDepth != unboundedDepth && cur.depth >= maxDepth {
			continue
		}

		candidates := make([]string, 0, len(links))
		for _, l := range links {
			if scope.Allows(l) {
				candidates = append(candidates, l)
			}
		}
		for _, l := range scrape.RankLinks(candidates) {
			if visited[l] || queued[l] {
				continue
			}
			queued[l] = true
			queue = append(queue, entry{url: l, depth: cur.depth + 1})
		}
	}

	zap.L().Debug("crawl: complete",
		zap.String("seed", seed),
		zap.Int("pages", len(pages)),
		zap.Int("visited", len(visited)),
		zap.Int("skipped", skipped),
		zap.Int("queued", len(queue)),
		zap.Int("max_pages", maxPages),
		zap.Int("max_depth", maxDepth),
	)

	if len(pages) == 0 {
		return nil, eris.Wrapf(ErrNoPages, "crawl: %s", seed)
	}
	return pages, nil
}
