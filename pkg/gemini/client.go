// Package gemini wraps the Gemini generative API for schema-constrained
// JSON generation.
package gemini

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// Client defines the Gemini operations the oracle needs.
type Client interface {
	GenerateJSON(ctx context.Context, req Request) (*Response, error)
	Close() error
}

// Request is a single JSON generation call.
type Request struct {
	Model       string
	System      string
	Parts       []string
	Schema      *genai.Schema
	Temperature float32
}

// Response carries the generated text and token usage.
type Response struct {
	Text         string
	FinishReason string
	Usage        Usage
}

// Usage tracks token consumption for one call.
type Usage struct {
	PromptTokens    int32
	CandidateTokens int32
	TotalTokens     int32
}

// StatusCode returns the HTTP status of a Gemini API error, or 0. gRPC
// errors are mapped onto the equivalent HTTP status.
func StatusCode(err error) int {
	ae, ok := apierror.FromError(err)
	if !ok {
		return 0
	}
	if code := ae.HTTPCode(); code > 0 {
		return code
	}
	if st := ae.GRPCStatus(); st != nil {
		switch st.Code() {
		case codes.ResourceExhausted:
			return http.StatusTooManyRequests
		case codes.Unavailable:
			return http.StatusServiceUnavailable
		case codes.DeadlineExceeded:
			return http.StatusGatewayTimeout
		case codes.Internal:
			return http.StatusInternalServerError
		case codes.InvalidArgument:
			return http.StatusBadRequest
		case codes.PermissionDenied:
			return http.StatusForbidden
		case codes.Unauthenticated:
			return http.StatusUnauthorized
		}
	}
	return 0
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}
	c, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: c}, nil
}

func (c *sdkClient) GenerateJSON(ctx context.Context, req Request) (*Response, error) {
	model := c.client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = req.Schema
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	parts := make([]genai.Part, len(req.Parts))
	for i, p := range req.Parts {
		parts[i] = genai.Text(p)
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}
	return fromResponse(resp)
}

func (c *sdkClient) Close() error {
	return c.client.Close()
}

func fromResponse(resp *genai.GenerateContentResponse) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, eris.New("gemini: no candidates in response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return nil, eris.Errorf("gemini: empty candidate (finish reason %s)", cand.FinishReason)
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return nil, eris.New("gemini: no text parts in response")
	}

	out := &Response{Text: b.String(), FinishReason: cand.FinishReason.String()}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:    u.PromptTokenCount,
			CandidateTokens: u.CandidatesTokenCount,
			TotalTokens:     u.TotalTokenCount,
		}
	}
	return out, nil
}
