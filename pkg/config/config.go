// Package config holds operator settings for the alttext tools: where the
// caption service lives, which vision engine it uses, and how it is served.
// Settings are grouped into sections and persisted as JSON, by default in
// ~/.alttext/config.json.
package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// NewDefaultManager returns a manager over store with every section
// registered, without loading it.
func NewDefaultManager(store Store) (*Manager, error) {
	manager := NewManager(store)

	for _, section := range []Section{
		NewCaptionSection(),
		NewLLMSection(),
		NewServerSection(),
	} {
		if err := manager.RegisterSection(section); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager, err := NewDefaultManager(store)
	if err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// getSection looks up a typed section in the global manager. It returns the
// zero value when config is not initialized.
func getSection[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}

	section, ok := Global().GetSection(id)
	if !ok {
		return zero
	}

	typed, ok := section.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetCaption returns the caption section from global config.
// Returns nil if config is not initialized.
func GetCaption() *CaptionSection {
	return getSection[*CaptionSection](SectionIDCaption)
}

// GetLLM returns the LLM settings section from global config.
// Returns nil if config is not initialized.
func GetLLM() *LLMSection {
	return getSection[*LLMSection](SectionIDLLM)
}

// GetServer returns the server section from global config.
// Returns nil if config is not initialized.
func GetServer() *ServerSection {
	return getSection[*ServerSection](SectionIDServer)
}

// CaptionSettingsOrDefault returns the global caption settings, or the
// defaults when config is not initialized.
func CaptionSettingsOrDefault() CaptionSettings {
	if s := GetCaption(); s != nil {
		return s.Settings()
	}
	return NewCaptionSection().Settings()
}
