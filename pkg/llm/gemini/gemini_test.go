package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/alttext/pkg/llm"
)

func TestNew(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", " env-key ")

	e := New("", "")
	assert.Equal(t, "env-key", e.APIKey)
	assert.Equal(t, DefaultModel, e.GetModel())
	assert.Equal(t, "gemini", e.Name())
	assert.Equal(t, llm.DefaultPrompt, e.Prompt)

	e = New("key", " gemini-2.0-flash ")
	assert.Equal(t, "key", e.APIKey)
	assert.Equal(t, "gemini-2.0-flash", e.GetModel())
}

func TestDescribeValidatesInput(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := New("", "").Describe(context.Background(), llm.Image{Data: []byte{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")

	_, err = New("key", "").Describe(context.Background(), llm.Image{URL: "https://example.com/a.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data")
}

func TestFirstText(t *testing.T) {
	assert.Equal(t, "", firstText(nil))
	assert.Equal(t, "", firstText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("A lighthouse at dusk.")}}},
		},
	}
	assert.Equal(t, "A lighthouse at dusk.", firstText(resp))
}
