package browser

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	// DefaultTimeout is the default timeout for page operations in milliseconds.
	DefaultTimeout = 30000

	// DefaultViewportWidth and DefaultViewportHeight size new pages.
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720

	// DefaultWaitUntil waits for the load event so images have a currentSrc.
	DefaultWaitUntil = "load"
)

// Session is one browser with a single page: the live counterpart of a
// content script's tab.
type Session struct {
	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session)
	Context playwright.BrowserContext

	// Page is the page the pipeline works on
	Page playwright.Page

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	// urlMu guards currentURL, which load events update from the
	// Playwright dispatcher goroutine.
	urlMu      sync.Mutex
	currentURL string
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout sets the default timeout for operations (in milliseconds)
	Timeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}
