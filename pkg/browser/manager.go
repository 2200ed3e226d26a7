// Package browser drives a live Chromium page through Playwright and exposes
// it as a page.Document, so the alt-text pipeline can tag, caption and
// highlight images exactly where a user sees them.
package browser

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/alttext/pkg/logging"
)

// ErrNotInitialized is returned when a session is requested before Initialize.
var ErrNotInitialized = errors.New("playwright not initialized")

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("browser")
	if err != nil {
		debugLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

// Manager owns the Playwright driver and the sessions launched from it.
type Manager struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	sessions    []*Session
	initialized bool
}

// NewManager creates a new, uninitialized manager.
func NewManager() *Manager {
	return &Manager{}
}

// Initialize installs (when needed) and starts the Playwright driver.
// It must be called before creating any sessions.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Driver output would otherwise interleave with CLI output
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	debugLog.Infof("Playwright started")
	return nil
}

// NewSession launches Chromium with one page.
func (m *Manager) NewSession(opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, ErrNotInitialized
	}

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	viewport := opts.Viewport
	if viewport == nil {
		viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  viewport.Width,
			Height: viewport.Height,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	pwPage, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	pwPage.SetDefaultTimeout(timeout)

	session := &Session{
		Browser:   browser,
		Context:   context,
		Page:      pwPage,
		Headless:  opts.Headless,
		CreatedAt: time.Now(),
	}
	m.sessions = append(m.sessions, session)
	return session, nil
}

// Shutdown closes every session and stops Playwright.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, s := range m.sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.sessions = nil

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.initialized = false
	}

	return errors.Join(errs...)
}
