package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/entrhq/alttext/pkg/browser"
	"github.com/entrhq/alttext/pkg/mutator"
	"github.com/entrhq/alttext/pkg/page"
	"github.com/entrhq/alttext/pkg/page/htmldoc"
)

const maxPageBytes = 20 << 20

// openedPage is a loaded page plus how to write it back out.
type openedPage struct {
	Doc      page.Document
	Notifier mutator.Notifier
	Session  *browser.Session

	render func(w io.Writer) error
	close  func() error
}

// Render writes the current state of the page as HTML.
func (p *openedPage) Render(w io.Writer) error {
	return p.render(w)
}

// Close releases the browser when one was started.
func (p *openedPage) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// openPage loads opts.Source into a live browser or a parsed HTML document.
func openPage(ctx context.Context, opts *Options) (*openedPage, error) {
	if opts.Browser {
		return openBrowserPage(opts)
	}
	return openHTMLPage(ctx, opts)
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func openHTMLPage(ctx context.Context, opts *Options) (*openedPage, error) {
	var (
		r       io.ReadCloser
		baseURL = opts.BaseURL
		err     error
	)

	switch {
	case opts.Source == "-":
		r = io.NopCloser(os.Stdin)
	case isRemote(opts.Source):
		r, err = fetchPage(ctx, opts.Source)
		if baseURL == "" {
			baseURL = opts.Source
		}
	default:
		r, err = os.Open(opts.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", opts.Source, err)
	}
	defer r.Close()

	doc, err := htmldoc.Parse(io.LimitReader(r, maxPageBytes), baseURL)
	if err != nil {
		return nil, err
	}
	debugLog.Infof("Parsed %s", opts.Source)

	return &openedPage{
		Doc:      doc,
		Notifier: mutator.LogNotifier{Logger: debugLog},
		render:   doc.Render,
	}, nil
}

func fetchPage(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// pageURL turns a local path into a file:// URL for the browser.
func pageURL(source string) (string, error) {
	if isRemote(source) || strings.HasPrefix(strings.ToLower(source), "file://") {
		return source, nil
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func openBrowserPage(opts *Options) (*openedPage, error) {
	if opts.Source == "-" {
		return nil, fmt.Errorf("stdin is not supported with -browser")
	}
	target, err := pageURL(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("invalid page %s: %w", opts.Source, err)
	}

	manager := browser.NewManager()
	if err := manager.Initialize(); err != nil {
		return nil, err
	}

	session, err := manager.NewSession(browser.SessionOptions{Headless: !opts.Headful})
	if err != nil {
		_ = manager.Shutdown()
		return nil, err
	}

	if err := session.Navigate(target, browser.NavigateOptions{}); err != nil {
		_ = manager.Shutdown()
		return nil, err
	}

	return &openedPage{
		Doc:      session.Document(),
		Notifier: browser.NewToastNotifier(session.Page, 0),
		Session:  session,
		render: func(w io.Writer) error {
			content, err := session.Content()
			if err != nil {
				return err
			}
			_, err = io.WriteString(w, content)
			return err
		},
		close: manager.Shutdown,
	}, nil
}

// writeOutput renders the page to opts.Output, or stdout when unset.
func writeOutput(p *openedPage, opts *Options) error {
	if opts.Output == "" || opts.Output == "-" {
		return p.Render(os.Stdout)
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := p.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	return f.Close()
}
