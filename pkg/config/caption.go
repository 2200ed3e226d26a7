package config

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

const (
	// SectionIDCaption is the identifier for the caption client section
	SectionIDCaption = "caption"

	defaultCaptionBaseURL    = "http://127.0.0.1:8000"
	defaultProposalTimeout   = 1000 * time.Millisecond
	defaultBulkDelay         = 500 * time.Millisecond
	defaultHighlightDuration = 2 * time.Second
	defaultHealthTimeout     = 3 * time.Second
)

// CaptionSection configures how pages talk to the caption service.
type CaptionSection struct {
	BaseURL           string
	ProposalTimeout   time.Duration
	BulkDelay         time.Duration
	HighlightDuration time.Duration
	HealthTimeout     time.Duration
	mu                sync.RWMutex
}

// NewCaptionSection creates a caption section with default settings.
func NewCaptionSection() *CaptionSection {
	s := &CaptionSection{}
	s.Reset()
	return s
}

func (s *CaptionSection) ID() string    { return SectionIDCaption }
func (s *CaptionSection) Title() string { return "Caption Service" }

func (s *CaptionSection) Description() string {
	return "Where the caption service listens, the deadline for each proposal caption, and pacing for bulk captioning."
}

// Data returns the current configuration data.
func (s *CaptionSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"base_url":           s.BaseURL,
		"proposal_timeout":   s.ProposalTimeout.String(),
		"bulk_delay":         s.BulkDelay.String(),
		"highlight_duration": s.HighlightDuration.String(),
		"health_timeout":     s.HealthTimeout.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *CaptionSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "base_url":
			s.BaseURL, err = stringValue(key, value)
		case "proposal_timeout":
			s.ProposalTimeout, err = durationValue(key, value)
		case "bulk_delay":
			s.BulkDelay, err = durationValue(key, value)
		case "highlight_duration":
			s.HighlightDuration, err = durationValue(key, value)
		case "health_timeout":
			s.HealthTimeout, err = durationValue(key, value)
		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *CaptionSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", s.BaseURL)
	}
	if err := positive("proposal_timeout", s.ProposalTimeout); err != nil {
		return err
	}
	if s.BulkDelay < 0 {
		return fmt.Errorf("bulk_delay must not be negative, got %v", s.BulkDelay)
	}
	if err := positive("highlight_duration", s.HighlightDuration); err != nil {
		return err
	}
	return positive("health_timeout", s.HealthTimeout)
}

// Reset resets the section to default configuration.
func (s *CaptionSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.BaseURL = defaultCaptionBaseURL
	s.ProposalTimeout = defaultProposalTimeout
	s.BulkDelay = defaultBulkDelay
	s.HighlightDuration = defaultHighlightDuration
	s.HealthTimeout = defaultHealthTimeout
}

// CaptionSettings is a snapshot of CaptionSection.
type CaptionSettings struct {
	BaseURL           string
	ProposalTimeout   time.Duration
	BulkDelay         time.Duration
	HighlightDuration time.Duration
	HealthTimeout     time.Duration
}

// Settings returns a consistent snapshot.
func (s *CaptionSection) Settings() CaptionSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return CaptionSettings{
		BaseURL:           s.BaseURL,
		ProposalTimeout:   s.ProposalTimeout,
		BulkDelay:         s.BulkDelay,
		HighlightDuration: s.HighlightDuration,
		HealthTimeout:     s.HealthTimeout,
	}
}

// SetBaseURL sets the caption service URL.
func (s *CaptionSection) SetBaseURL(baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BaseURL = baseURL
}
