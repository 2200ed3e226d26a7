package browser

import (
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Navigate loads url in the session's page.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	playwrightOpts := playwright.PageGotoOptions{}

	waitUntil := opts.WaitUntil
	if waitUntil == "" {
		waitUntil = DefaultWaitUntil
	}
	state := playwright.WaitUntilState(waitUntil)
	playwrightOpts.WaitUntil = &state

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	debugLog.Infof("Navigated to %s", s.setURL(s.Page.URL()))
	return nil
}

// CurrentURL returns the URL of the last completed navigation or load.
func (s *Session) CurrentURL() string {
	s.urlMu.Lock()
	defer s.urlMu.Unlock()
	return s.currentURL
}

func (s *Session) setURL(url string) string {
	s.urlMu.Lock()
	defer s.urlMu.Unlock()
	s.currentURL = url
	return url
}

// OnLoad registers fn to run after every load of the page, including
// reloads and in-page navigations. fn runs on the Playwright dispatcher
// goroutine and must not wait on page calls.
func (s *Session) OnLoad(fn func(url string)) {
	s.Page.OnLoad(func(p playwright.Page) {
		fn(s.setURL(p.URL()))
	})
}

// Content returns the serialized HTML of the page as it is now.
func (s *Session) Content() (string, error) {
	content, err := s.Page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return content, nil
}

// Close releases the page, its context and the browser.
func (s *Session) Close() error {
	var errs []error
	if err := s.Page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing session: %w", errors.Join(errs...))
	}
	return nil
}
