package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-intel/internal/fetcher"
	"github.com/sells-group/clinic-intel/internal/model"
)

// siteFetcher serves a fixed map of URL -> HTML and records every fetch.
type siteFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	// redirects maps a requested URL to the page it lands on.
	redirects map[string]string
	calls     []string
}

func newSiteFetcher(pages map[string]string) *siteFetcher {
	return &siteFetcher{pages: pages}
}

func (s *siteFetcher) Fetch(_ context.Context, url string) (fetcher.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, url)
	if target, ok := s.redirects[url]; ok {
		return fetcher.Page{URL: url, FinalURL: target, HTML: s.pages[target]}, nil
	}
	html, ok := s.pages[url]
	if !ok {
		return fetcher.Page{}, &fetcher.FetchError{URL: url, StatusCode: 404, Reason: "not found"}
	}
	return fetcher.Page{URL: url, FinalURL: url, HTML: html}, nil
}

func (s *siteFetcher) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func links(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><p>page body</p>")
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, h)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func urlsOf(pages []model.PagePayload) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.URL
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestDiscover_ExampleClinicEndToEnd(t *testing.T) {
	var hits atomic.Int64
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/{$}", page(`<html><body><h1>Example Clinic</h1>
<a href="/gallery">Gallery</a>
<a href="/patient-portal">Portal</a>
<a href="/about">Meet our team</a>
<a href="/contact">Contact</a>
<a href="/faq">FAQ</a>
<a href="/blog">Blog</a>
<a href="/insurance">Insurance</a>
</body></html>`))
	for _, p := range []string{"/gallery", "/patient-portal", "/faq", "/blog", "/insurance"} {
		mux.HandleFunc(p, page(`<p>Filler page</p><a href="/deeper">deeper</a>`))
	}
	mux.HandleFunc("/about", page(`<p>Meet our team of 6 providers</p><a href="/team/jane">Jane</a>`))
	mux.HandleFunc("/contact", page(`<p>Austin, TX</p>`))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second})
	fr := NewFrontier(f, nil)

	pages, err := fr.Discover(context.Background(), srv.URL, model.CrawlBudget{MaxPages: 5, MaxDepth: 2})
	require.NoError(t, err)

	got := urlsOf(pages)
	require.Len(t, got, 5)
	assert.Equal(t, srv.URL+"/", got[0], "home page is fetched first")

	about := indexOf(got, srv.URL+"/about")
	gallery := indexOf(got, srv.URL+"/gallery")
	require.NotEqual(t, -1, about)
	require.NotEqual(t, -1, gallery)
	assert.Less(t, about, gallery, "relevant links are visited before unranked ones")
	assert.Less(t, indexOf(got, srv.URL+"/contact"), gallery)

	assert.Equal(t, int64(5), hits.Load(), "discovery stops once the page budget is reached")
	assert.Contains(t, pages[1].Text, "team of 6")
}

func TestDiscover_DepthBound(t *testing.T) {
	t.Parallel()
	sf := newSiteFetcher(map[string]string{
		"https://clinic.example/":  links("/a"),
		"https://clinic.example/a": links("/b"),
		"https://clinic.example/b": links("/c"),
		"https://clinic.example/c": links(),
	})
	fr := NewFrontier(sf, nil)

	tests := []struct {
		depth int
		want  []string
	}{
		{0, []string{"https://clinic.example/"}},
		{1, []string{"https://clinic.example/", "https://clinic.example/a"}},
		{2, []string{"https://clinic.example/", "https://clinic.example/a", "https://clinic.example/b"}},
	}

	for _, tt := range tests {
		pages, err := fr.Discover(context.Background(), "clinic.example", model.CrawlBudget{MaxPages: 10, MaxDepth: tt.depth})
		require.NoError(t, err)
		assert.Equal(t, tt.want, urlsOf(pages), "depth %d", tt.depth)
	}
}

func TestDiscover_BudgetInvariant(t *testing.T) {
	t.Parallel()

	// Binary tree of pages: /n links to /n0 and /n1, five levels deep.
	site := make(map[string]string)
	depthOf := make(map[string]int)
	var build func(path string, depth int)
	build = func(path string, depth int) {
		url := "https://clinic.example" + path
		depthOf[url] = depth
		if depth == 5 {
			site[url] = links()
			return
		}
		base := strings.TrimSuffix(path, "/")
		site[url] = links(base+"/0", base+"/1")
		build(base+"/0", depth+1)
		build(base+"/1", depth+1)
	}
	build("/", 0)

	for maxPages := 1; maxPages <= 12; maxPages += 3 {
		for maxDepth := 0; maxDepth <= 4; maxDepth++ {
			sf := newSiteFetcher(site)
			pages, err := NewFrontier(sf, nil).Discover(context.Background(), "https://clinic.example",
				model.CrawlBudget{MaxPages: maxPages, MaxDepth: maxDepth})
			require.NoError(t, err)

			assert.LessOrEqual(t, len(pages), maxPages)
			for _, call := range sf.Calls() {
				assert.LessOrEqual(t, depthOf[call], maxDepth, "fetched %s beyond depth %d", call, maxDepth)
			}
		}
	}
}

func TestDiscover_NoDuplicateVisits(t *testing.T) {
	t.Parallel()
	sf := newSiteFetcher(map[string]string{
		"https://clinic.example/":         links("/about", "/about#team", "/contact", "/", "https://clinic.example/about"),
		"https://clinic.example/about":    links("/", "/contact#map", "/about"),
		"https://clinic.example/contact":  links("/about", "/services"),
		"https://clinic.example/services": links("/", "/about", "/contact"),
	})

	pages, err := NewFrontier(sf, nil).Discover(context.Background(), "https://clinic.example/#top", model.CrawlBudget{MaxPages: 20, MaxDepth: 5})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, c := range sf.Calls() {
		assert.False(t, seen[c], "fetched twice: %s", c)
		seen[c] = true
	}
	assert.Len(t, pages, 4)
}

func TestDiscover_RedirectAliasCountedOnce(t *testing.T) {
	t.Parallel()
	sf := newSiteFetcher(map[string]string{
		"https://clinic.example/":      links("/about", "/old-about"),
		"https://clinic.example/about": links("/"),
	})
	sf.redirects = map[string]string{"https://clinic.example/old-about": "https://clinic.example/about"}

	pages, err := NewFrontier(sf, nil).Discover(context.Background(), "https://clinic.example/", model.CrawlBudget{MaxPages: 20, MaxDepth: 2})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"https://clinic.example/", "https://clinic.example/about"}, urlsOf(pages))
}

func TestDiscover_FailuresDoNotConsumeBudget(t *testing.T) {
	t.Parallel()
	sf := newSiteFetcher(map[string]string{
		"https://clinic.example/":         links("/about", "/broken", "/contact", "/services"),
		"https://clinic.example/contact":  links(),
		"https://clinic.example/services": links(),
		// /about and /broken fail.
	})

	pages, err := NewFrontier(sf, nil).Discover(context.Background(), "https://clinic.example", model.CrawlBudget{MaxPages: 3, MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://clinic.example/",
		"https://clinic.example/contact",
		"https://clinic.example/services",
	}, urlsOf(pages))
	assert.Contains(t, sf.Calls(), "https://clinic.example/about")
	assert.NotContains(t, sf.Calls(), "https://clinic.example/broken")
}

func TestDiscover_StaysOnSeedOrigin(t *testing.T) {
	t.Parallel()
	sf := newSiteFetcher(map[string]string{
		"https://clinic.example/": links(
			"https://facebook.com/clinic",
			"http://clinic.example/about",
			"https://www.clinic.example/team",
			"/intake.pdf",
			"mailto:hi@clinic.example",
			"/providers",
		),
		"https://clinic.example/providers": links(),
	})

	pages, err := NewFrontier(sf, nil).Discover(context.Background(), "https://clinic.example", model.CrawlBudget{MaxPages: 10, MaxDepth: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://clinic.example/", "https://clinic.example/providers"}, urlsOf(pages))
	assert.Equal(t, []string{"https://clinic.example/", "https://clinic.example/providers"}, sf.Calls())
}

func TestDiscover_ExcludePaths(t *testing.T) {
	t.Parallel()
	sf := newSiteFetcher(map[string]string{
		"https://clinic.example/":       links("/blog/post-1", "/about"),
		"https://clinic.example/about":  links(),
		"https://clinic.example/blog/x": links(),
	})

	pages, err := NewFrontier(sf, []string{"/blog/*"}).Discover(context.Background(), "https://clinic.example", model.CrawlBudget{MaxPages: 10, MaxDepth: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://clinic.example/", "https://clinic.example/about"}, urlsOf(pages))
}

func TestDiscover_NoPages(t *testing.T) {
	t.Parallel()
	sf := newSiteFetcher(map[string]string{})

	pages, err := NewFrontier(sf, nil).Discover(context.Background(), "https://down.example", model.CrawlBudget{MaxPages: 5, MaxDepth: 2})
	require.Error(t, err)
	assert.Nil(t, pages)
	assert.True(t, eris.Is(err, ErrNoPages))
}

func TestDiscover_InvalidBudget(t *testing.T) {
	t.Parallel()
	_, err := NewFrontier(newSiteFetcher(nil), nil).Discover(context.Background(), "https://clinic.example", model.CrawlBudget{MaxPages: 0, MaxDepth: 1})
	assert.Error(t, err)
}

func TestDiscover_ContextCancelled(t *testing.T) {
	t.Parallel()
	sf := newSiteFetcher(map[string]string{"https://clinic.example/": links()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFrontier(sf, nil).Discover(ctx, "https://clinic.example", model.CrawlBudget{MaxPages: 5, MaxDepth: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sf.Calls())
}

func TestExhaust_IgnoresDepth(t *testing.T) {
	t.Parallel()
	site := map[string]string{}
	for i := 0; i < 8; i++ {
		path := "/"
		if i > 0 {
			path = fmt.Sprintf("/p%d", i)
		}
		site["https://clinic.example"+path] = links(fmt.Sprintf("/p%d", i+1))
	}

	pages, err := NewFrontier(newSiteFetcher(site), nil).Exhaust(context.Background(), "clinic.example", 0)
	require.NoError(t, err)
	assert.Len(t, pages, 8)

	capped, err := NewFrontier(newSiteFetcher(site), nil).Exhaust(context.Background(), "clinic.example", 3)
	require.NoError(t, err)
	assert.Len(t, capped, 3)
}
