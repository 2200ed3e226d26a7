package config

import (
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	// SectionIDServer is the identifier for the caption service section
	SectionIDServer = "server"

	defaultListenAddr   = "127.0.0.1:8000"
	defaultFetchTimeout = 10 * time.Second
)

// ServerSection configures the caption service process.
type ServerSection struct {
	ListenAddr   string
	AllowedHosts []string
	DeniedHosts  []string
	FetchTimeout time.Duration
	mu           sync.RWMutex
}

// NewServerSection creates a server section with default settings.
func NewServerSection() *ServerSection {
	s := &ServerSection{}
	s.Reset()
	return s
}

func (s *ServerSection) ID() string    { return SectionIDServer }
func (s *ServerSection) Title() string { return "Caption Server" }

func (s *ServerSection) Description() string {
	return "Listen address for the caption service and which image hosts it may fetch from (glob patterns; empty allows all)."
}

// Data returns the current configuration data.
func (s *ServerSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"listen_addr":   s.ListenAddr,
		"allowed_hosts": append([]string(nil), s.AllowedHosts...),
		"denied_hosts":  append([]string(nil), s.DeniedHosts...),
		"fetch_timeout": s.FetchTimeout.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *ServerSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "listen_addr":
			s.ListenAddr, err = stringValue(key, value)
		case "allowed_hosts":
			s.AllowedHosts, err = stringListValue(key, value)
		case "denied_hosts":
			s.DeniedHosts, err = stringListValue(key, value)
		case "fetch_timeout":
			s.FetchTimeout, err = durationValue(key, value)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *ServerSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, _, err := net.SplitHostPort(s.ListenAddr); err != nil {
		return fmt.Errorf("listen_addr %q: %w", s.ListenAddr, err)
	}
	return positive("fetch_timeout", s.FetchTimeout)
}

// Reset resets the section to default configuration.
func (s *ServerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ListenAddr = defaultListenAddr
	s.AllowedHosts = nil
	s.DeniedHosts = nil
	s.FetchTimeout = defaultFetchTimeout
}

// GetListenAddr returns the listen address.
func (s *ServerSection) GetListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ListenAddr
}

// GetHostPatterns returns copies of the allowed and denied host patterns.
func (s *ServerSection) GetHostPatterns() (allowed, denied []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.AllowedHosts...), append([]string(nil), s.DeniedHosts...)
}

// GetFetchTimeout returns the image fetch timeout.
func (s *ServerSection) GetFetchTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.FetchTimeout
}
