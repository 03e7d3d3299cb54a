// Package escalate drives per-seed extraction: crawl, ask the oracle, and
// widen the crawl only while fields remain unresolved.
package escalate

import "github.com/sells-group/clinic-intel/internal/model"

// Escalation ceilings.
const (
	DefaultMaxTotalPages = 120
	DefaultMaxTotalDepth = 3

	// minPageCap and minDepthCap are the escalation targets before the
	// caller's ceilings are applied.
	minPageCap  = 40
	minDepthCap = 3
)

// Plan returns the ordered crawl budgets for one seed. The first step is
// base. Pages then widen by base.MaxPages up to
// min(max(40, 2*base.MaxPages), maxTotalPages) at the base depth, and depth
// then widens one hop at a time up to min(max(base.MaxDepth, 3),
// maxTotalDepth) with pages held at the cap. Budgets never shrink.
func Plan(base model.CrawlBudget, maxTotalPages, maxTotalDepth int) []model.CrawlBudget {
	steps := []model.CrawlBudget{base}
	if base.MaxPages <= 0 {
		return steps
	}

	pageCap := min(max(minPageCap, 2*base.MaxPages), maxTotalPages)
	for p := base.MaxPages; p < pageCap; {
		p = min(p+base.MaxPages, pageCap)
		steps = widen(steps, model.CrawlBudget{MaxPages: p, MaxDepth: base.MaxDepth})
	}

	pages := max(pageCap, base.MaxPages)
	depthCap := min(max(base.MaxDepth, minDepthCap), maxTotalDepth)
	for d := base.MaxDepth; d < depthCap; {
		d++
		steps = widen(steps, model.CrawlBudget{MaxPages: pages, MaxDepth: d})
	}
	return steps
}

// widen appends next only when it is strictly wider than the last step.
func widen(steps []model.CrawlBudget, next model.CrawlBudget) []model.CrawlBudget {
	last := steps[len(steps)-1]
	if next == last || !next.Covers(last) {
		return steps
	}
	return append(steps, next)
}
