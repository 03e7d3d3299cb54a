package oracle

import (
	"context"

	"github.com/sells-group/clinic-intel/internal/cost"
	"github.com/sells-group/clinic-intel/internal/model"
	"github.com/sells-group/clinic-intel/internal/resilience"
	"github.com/sells-group/clinic-intel/pkg/anthropic"
)

// Anthropic defaults.
const (
	DefaultAnthropicModel     = "claude-sonnet-4-5-20250929"
	DefaultAnthropicMaxTokens = 800
)

// AnthropicOracle extracts through the Anthropic Messages API. The response
// shape is enforced by the instruction and validated afterwards.
type AnthropicOracle struct {
	client     anthropic.Client
	model      string
	maxTokens  int64
	system     string
	payloadCap int
	policy     resilience.Policy
	costs      *cost.Tracker
}

// NewAnthropicOracle wraps an Anthropic client.
func NewAnthropicOracle(client anthropic.Client, opts Options) *AnthropicOracle {
	o := &AnthropicOracle{
		client:     client,
		model:      opts.Model,
		maxTokens:  opts.MaxTokens,
		system:     opts.Prompt,
		payloadCap: opts.PayloadCap,
		policy:     retryPolicy(ProviderAnthropic, opts.MaxAttempts),
		costs:      costsOrDefault(opts.Costs),
	}
	if o.model == "" {
		o.model = DefaultAnthropicModel
	}
	if o.maxTokens <= 0 {
		o.maxTokens = DefaultAnthropicMaxTokens
	}
	if o.system == "" {
		o.system = DefaultInstruction
	}
	if o.payloadCap <= 0 {
		o.payloadCap = DefaultPayloadCap
	}
	return o
}

// Name implements Oracle.
func (o *AnthropicOracle) Name() string { return ProviderAnthropic }

// Extract implements Oracle.
func (o *AnthropicOracle) Extract(ctx context.Context, pages []model.PagePayload, ev model.EvidenceBundle) (model.ExtractionRecord, error) {
	body, err := BuildPayload(pages, ev, o.payloadCap)
	if err != nil {
		return model.ExtractionRecord{}, failure(ctx, o.Name(), err)
	}

	temperature := 0.0
	req := anthropic.MessageRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		System:      []anthropic.SystemBlock{{Text: o.system, Cached: true}},
		Messages:    []anthropic.Message{{Role: "user", Content: "PAGES+EVIDENCE:\n" + body}},
		Temperature: &temperature,
	}

	rec, err := resilience.DoVal(ctx, o.policy, func(ctx context.Context) (model.ExtractionRecord, error) {
		resp, err := o.client.CreateMessage(ctx, req)
		if err != nil {
			return model.ExtractionRecord{}, resilience.MarkStatus(err, anthropic.StatusCode(err))
		}
		o.costs.Add(ProviderAnthropic, o.model, seedOf(pages), cost.Usage{
			InputTokens:      resp.Usage.InputTokens,
			OutputTokens:     resp.Usage.OutputTokens,
			CacheWriteTokens: resp.Usage.CacheCreationInputTokens,
			CacheReadTokens:  resp.Usage.CacheReadInputTokens,
		})
		return ParseResponse(resp.Text())
	})
	if err != nil {
		return model.ExtractionRecord{}, failure(ctx, o.Name(), err)
	}
	return rec, nil
}
