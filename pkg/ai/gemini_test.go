package ai

import (
	"context"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Primeiro parágrafo. "), genai.Blob{MIMEType: "image/png"}, genai.Text("Segundo.")}},
	}}}
	text, err := ResponseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Primeiro parágrafo. Segundo.", text)
}

func TestResponseTextEmpty(t *testing.T) {
	_, err := ResponseText(nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = ResponseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}}}}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "", time.Second)
	assert.Error(t, err)
}
