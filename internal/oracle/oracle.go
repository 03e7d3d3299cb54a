// Package oracle turns a crawled page set plus its evidence bundle into an
// extraction record by asking a language model provider.
package oracle

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-intel/internal/cost"
	"github.com/sells-group/clinic-intel/internal/model"
	"github.com/sells-group/clinic-intel/internal/resilience"
	"github.com/sells-group/clinic-intel/pkg/anthropic"
	"github.com/sells-group/clinic-intel/pkg/gemini"
)

// Provider names accepted by New.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderEvidence  = "evidence"
)

// Providers lists the supported provider names.
var Providers = []string{ProviderGemini, ProviderAnthropic, ProviderEvidence}

var (
	// ErrOracleFailure marks a provider error, a malformed response or a
	// schema mismatch. It aborts the current seed.
	ErrOracleFailure = eris.New("oracle: extraction failed")

	// ErrUnknownProvider is a configuration error raised before processing.
	ErrUnknownProvider = eris.New("oracle: unknown provider")

	// ErrMissingCredential is a configuration error raised before processing.
	ErrMissingCredential = eris.New("oracle: missing api key")
)

// Oracle extracts the four clinic fields from pages and evidence.
type Oracle interface {
	Name() string
	Extract(ctx context.Context, pages []model.PagePayload, ev model.EvidenceBundle) (model.ExtractionRecord, error)
}

// Options configures a provider-backed Oracle.
type Options struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   int64
	PayloadCap  int
	MaxAttempts int
	// Prompt replaces the built-in instruction when non-empty.
	Prompt string
	// Costs accumulates token usage. Nil uses a private tracker with the
	// default rates.
	Costs *cost.Tracker
}

// New builds the Oracle named by opts.Provider. Provider clients are created
// once here and shared by every call.
func New(ctx context.Context, opts Options) (Oracle, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderGemini:
		if opts.APIKey == "" {
			return nil, eris.Wrap(ErrMissingCredential, "oracle: gemini requires GEMINI_API_KEY or GOOGLE_API_KEY")
		}
		client, err := gemini.NewClient(ctx, opts.APIKey)
		if err != nil {
			return nil, eris.Wrap(err, "oracle: init gemini")
		}
		return NewGeminiOracle(client, opts), nil
	case ProviderAnthropic:
		if opts.APIKey == "" {
			return nil, eris.Wrap(ErrMissingCredential, "oracle: anthropic requires ANTHROPIC_API_KEY")
		}
		return NewAnthropicOracle(anthropic.NewClient(opts.APIKey), opts), nil
	case ProviderEvidence:
		return NewEvidenceOracle(), nil
	}
	return nil, eris.Wrapf(ErrUnknownProvider, "oracle: %q", opts.Provider)
}

// failure wraps a provider error as ErrOracleFailure. Cancellation passes
// through so callers can tell an interrupt from a bad response.
func failure(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return eris.Wrapf(ctx.Err(), "oracle: %s", provider)
	}
	return eris.Wrapf(ErrOracleFailure, "oracle: %s: %v", provider, err)
}

func retryPolicy(provider string, maxAttempts int) resilience.Policy {
	p := resilience.DefaultPolicy().WithAttempts(maxAttempts)
	p.OnRetry = resilience.RetryLogger(provider, "extract")
	return p
}

func costsOrDefault(t *cost.Tracker) *cost.Tracker {
	if t != nil {
		return t
	}
	return cost.NewTracker(cost.NewCalculator(cost.DefaultRates()))
}

func seedOf(pages []model.PagePayload) string {
	if len(pages) == 0 {
		return ""
	}
	return pages[0].URL
}
