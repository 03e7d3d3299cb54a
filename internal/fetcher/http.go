package fetcher

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; ClinicIntelBot/1.0; +https://github.com/sells-group/clinic-intel)"
	acceptHTML       = "text/html,application/xhtml+xml"
	maxBodyBytes     = 5 << 20
)

// HTTPOptions configures the HTTP page fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// MaxConns bounds concurrent and idle connections per host.
	MaxConns int
	// RatePerSec limits requests per host. Zero disables limiting.
	RatePerSec float64
}

// HTTPFetcher implements PageFetcher on a shared, bounded connection pool.
// One instance is shared by every crawl in the process.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 10
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: opts.MaxConns,
		MaxConnsPerHost:     opts.MaxConns,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch retrieves url and returns its HTML. Only 200 responses with an
// HTML content type are accepted. Failures are not retried.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if lim := f.limiterFor(rawURL); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return Page{}, eris.Wrap(err, "fetcher: rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, &FetchError{URL: rawURL, Reason: "invalid request"}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", acceptHTML)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, eris.Wrap(ctx.Err(), "fetcher: cancelled")
		}
		zap.L().Debug("fetcher: transport error", zap.String("url", rawURL), zap.Error(err))
		return Page{}, &FetchError{URL: rawURL, Reason: "transport error: " + err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Reason: "read body"}
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode != http.StatusOK || !strings.Contains(strings.ToLower(contentType), "text/html") {
		fe := &FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Reason:     "not an html page",
			Block:      detectBlock(resp.StatusCode, resp.Header, body),
		}
		zap.L().Debug("fetcher: rejected response",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
			zap.String("content_type", contentType),
			zap.String("block", string(fe.Block)),
		)
		return Page{}, fe
	}

	html, err := decodeBody(body, contentType)
	if err != nil {
		return Page{}, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Reason: err.Error()}
	}

	return Page{
		URL:      rawURL,
		FinalURL: resp.Request.URL.String(),
		HTML:     html,
	}, nil
}

// decodeBody converts body to UTF-8 using the charset named in the
// content type, if any.
func decodeBody(body []byte, contentType string) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body), nil
	}
	cs := strings.ToLower(strings.TrimSpace(params["charset"]))
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return string(body), nil
	}

	enc, err := htmlindex.Get(cs)
	if err != nil {
		// Unknown charset: treat as UTF-8.
		return string(body), nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: decode charset %s", cs)
	}
	return string(decoded), nil
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	if f.opts.RatePerSec <= 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Host)

	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		burst := max(1, int(f.opts.RatePerSec))
		lim = rate.NewLimiter(rate.Limit(f.opts.RatePerSec), burst)
		f.limiters[host] = lim
	}
	return lim
}
