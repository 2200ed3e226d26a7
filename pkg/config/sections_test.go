package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptionSection(t *testing.T) {
	s := NewCaptionSection()
	assert.Equal(t, "caption", s.ID())
	assert.NotEmpty(t, s.Title())
	assert.NotEmpty(t, s.Description())
	require.NoError(t, s.Validate())

	require.NoError(t, s.SetData(map[string]any{
		"base_url":           "https://captions.internal",
		"proposal_timeout":   "1500ms",
		"bulk_delay":         float64(250 * time.Millisecond),
		"highlight_duration": "3s",
		"health_timeout":     "1s",
		"future_setting":     true,
	}))

	got := s.Settings()
	assert.Equal(t, "https://captions.internal", got.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, got.ProposalTimeout)
	assert.Equal(t, 250*time.Millisecond, got.BulkDelay)
	assert.Equal(t, 3*time.Second, got.HighlightDuration)
	assert.Equal(t, time.Second, got.HealthTimeout)

	data := s.Data()
	assert.Equal(t, "1.5s", data["proposal_timeout"])
	assert.Equal(t, "250ms", data["bulk_delay"])

	s.Reset()
	assert.Equal(t, defaultCaptionBaseURL, s.Settings().BaseURL)
	assert.Equal(t, defaultProposalTimeout, s.Settings().ProposalTimeout)
}

func TestCaptionSectionInvalid(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		// setErr is true when SetData itself should fail
		setErr bool
	}{
		{"duration type", map[string]any{"bulk_delay": true}, true},
		{"duration string", map[string]any{"health_timeout": "later"}, true},
		{"url type", map[string]any{"base_url": 8000}, true},
		{"relative url", map[string]any{"base_url": "/caption"}, false},
		{"zero timeout", map[string]any{"proposal_timeout": "0s"}, false},
		{"negative delay", map[string]any{"bulk_delay": "-1s"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewCaptionSection()
			err := s.SetData(tt.data)
			if tt.setErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Error(t, s.Validate())
		})
	}
}

func TestLLMSection(t *testing.T) {
	s := NewLLMSection()
	assert.Equal(t, "llm", s.ID())
	assert.Equal(t, "LLM Settings", s.Title())
	assert.Equal(t, "placeholder", s.GetEngine())
	require.NoError(t, s.Validate())

	require.NoError(t, s.SetData(map[string]any{
		"engine":   "openai",
		"model":    "gpt-4o-mini",
		"base_url": "http://localhost:8080/v1",
		"api_key":  "sk-test",
	}))
	assert.Equal(t, map[string]any{
		"engine":   "openai",
		"model":    "gpt-4o-mini",
		"base_url": "http://localhost:8080/v1",
		"api_key":  "sk-test",
	}, s.Data())

	// empty engine keeps the current one
	require.NoError(t, s.SetData(map[string]any{"engine": ""}))
	assert.Equal(t, "openai", s.GetEngine())

	s.SetEngine("tesseract")
	assert.Error(t, s.Validate())

	s.Reset()
	assert.Equal(t, "placeholder", s.GetEngine())
	assert.Empty(t, s.GetAPIKey())
}

func TestServerSection(t *testing.T) {
	s := NewServerSection()
	assert.Equal(t, "server", s.ID())
	assert.Equal(t, defaultListenAddr, s.GetListenAddr())
	assert.Equal(t, defaultFetchTimeout, s.GetFetchTimeout())
	require.NoError(t, s.Validate())

	require.NoError(t, s.SetData(map[string]any{
		"listen_addr":   ":9000",
		"allowed_hosts": []any{"*.example.com", " ", "cdn.net"},
		"denied_hosts":  "private.example.com, internal.example.com",
		"fetch_timeout": "5s",
	}))

	allowed, denied := s.GetHostPatterns()
	assert.Equal(t, []string{"*.example.com", "cdn.net"}, allowed)
	assert.Equal(t, []string{"private.example.com", "internal.example.com"}, denied)
	assert.Equal(t, 5*time.Second, s.GetFetchTimeout())
	require.NoError(t, s.Validate())

	assert.Error(t, s.SetData(map[string]any{"allowed_hosts": []any{1}}))

	require.NoError(t, s.SetData(map[string]any{"listen_addr": "no-port"}))
	assert.Error(t, s.Validate())
}
