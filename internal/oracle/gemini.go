package oracle

import (
	"context"

	"github.com/google/generative-ai-go/genai"

	"github.com/sells-group/clinic-intel/internal/cost"
	"github.com/sells-group/clinic-intel/internal/model"
	"github.com/sells-group/clinic-intel/internal/resilience"
	"github.com/sells-group/clinic-intel/pkg/gemini"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-pro"

var geminiInstructions = []string{
	"Extract the clinic_info JSON from the provided pages.",
	"Only return JSON.",
}

// GeminiOracle extracts through Gemini with a response schema, so the reply
// shape is enforced by the provider as well as validated here.
type GeminiOracle struct {
	client     gemini.Client
	model      string
	system     string
	payloadCap int
	policy     resilience.Policy
	costs      *cost.Tracker
}

// NewGeminiOracle wraps a Gemini client. A zero payload cap selects the
// larger Gemini default.
func NewGeminiOracle(client gemini.Client, opts Options) *GeminiOracle {
	o := &GeminiOracle{
		client:     client,
		model:      opts.Model,
		system:     opts.Prompt,
		payloadCap: opts.PayloadCap,
		policy:     retryPolicy(ProviderGemini, opts.MaxAttempts),
		costs:      costsOrDefault(opts.Costs),
	}
	if o.model == "" {
		o.model = DefaultGeminiModel
	}
	if o.payloadCap <= 0 {
		o.payloadCap = GeminiPayloadCap
	}
	return o
}

// Name implements Oracle.
func (o *GeminiOracle) Name() string { return ProviderGemini }

// Close releases the underlying client.
func (o *GeminiOracle) Close() error { return o.client.Close() }

// Extract implements Oracle.
func (o *GeminiOracle) Extract(ctx context.Context, pages []model.PagePayload, ev model.EvidenceBundle) (model.ExtractionRecord, error) {
	body, err := BuildPayload(pages, ev, o.payloadCap)
	if err != nil {
		return model.ExtractionRecord{}, failure(ctx, o.Name(), err)
	}

	req := gemini.Request{
		Model:  o.model,
		System: o.system,
		Parts:  append(append([]string{}, geminiInstructions...), body),
		Schema: ResponseSchema(),
	}

	rec, err := resilience.DoVal(ctx, o.policy, func(ctx context.Context) (model.ExtractionRecord, error) {
		resp, err := o.client.GenerateJSON(ctx, req)
		if err != nil {
			return model.ExtractionRecord{}, resilience.MarkStatus(err, gemini.StatusCode(err))
		}
		o.costs.Add(ProviderGemini, o.model, seedOf(pages), cost.Usage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CandidateTokens),
		})
		return ParseResponse(resp.Text)
	})
	if err != nil {
		return model.ExtractionRecord{}, failure(ctx, o.Name(), err)
	}
	return rec, nil
}

// ResponseSchema is the Gemini form of the clinic_info schema.
func ResponseSchema() *genai.Schema {
	props := make(map[string]*genai.Schema, len(model.AllFields))
	for _, f := range model.AllFields {
		props[f] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"clinic_info": {
				Type:       genai.TypeObject,
				Properties: props,
				Required:   append([]string{}, model.AllFields...),
			},
		},
		Required: []string{"clinic_info"},
	}
}
