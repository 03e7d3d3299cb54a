package gemini

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")
}

func TestFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"clinic_info":`),
				genai.Text(`{"specialty":"psychiatry"}}`),
			}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.UsageMetadata{
			PromptTokenCount:     1000,
			CandidatesTokenCount: 25,
			TotalTokenCount:      1025,
		},
	}

	got, err := fromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"clinic_info":{"specialty":"psychiatry"}}`, got.Text)
	assert.Equal(t, Usage{PromptTokens: 1000, CandidateTokens: 25, TotalTokens: 1025}, got.Usage)
	assert.NotEmpty(t, got.FinishReason)
}

func TestFromResponse_Empty(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"no content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}},
		{"no text", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}},
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromResponse(tt.resp)
			assert.Error(t, err)
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"http", &googleapi.Error{Code: http.StatusTooManyRequests}, http.StatusTooManyRequests},
		{"wrapped http", eris.Wrap(&googleapi.Error{Code: http.StatusServiceUnavailable}, "gemini: generate content"), http.StatusServiceUnavailable},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), http.StatusTooManyRequests},
		{"grpc invalid", status.Error(codes.InvalidArgument, "bad"), http.StatusBadRequest},
		{"plain", eris.New("boom"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}
