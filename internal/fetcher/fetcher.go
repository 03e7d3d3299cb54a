// Package fetcher retrieves clinic web pages over HTTP.
package fetcher

import (
	"context"
	"fmt"
)

// Page is a successfully fetched HTML document.
type Page struct {
	// URL is the address that was requested.
	URL string
	// FinalURL is the address after redirects.
	FinalURL string
	HTML     string
}

// PageFetcher fetches a single HTML page. Any error means the page is
// unusable; callers skip it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// FetchError describes why a page could not be used.
type FetchError struct {
	URL        string
	StatusCode int
	Reason     string
	Block      BlockType
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}
