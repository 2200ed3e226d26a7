package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/entrhq/alttext/pkg/bridge"
	"github.com/entrhq/alttext/pkg/caption"
	"github.com/entrhq/alttext/pkg/logging"
	"github.com/entrhq/alttext/pkg/mutator"
	"github.com/entrhq/alttext/pkg/proposal"
	"github.com/entrhq/alttext/pkg/review"
	"github.com/entrhq/alttext/pkg/scan"
)

const shutdownTimeout = 5 * time.Second

// session is everything a command needs: the options, the page and a
// caption client.
type session struct {
	opts   *Options
	page   *openedPage
	client *caption.Client
}

func start(ctx context.Context, name string, args []string) (*session, error) {
	opts, err := loadOptions(name, args)
	if err != nil {
		return nil, err
	}

	debugLog.Infof("%s ALT-text Generator started (%s %s)", logging.Prefix, name, opts.Source)

	p, err := openPage(ctx, opts)
	if err != nil {
		return nil, err
	}

	client := caption.NewClient(caption.WithBaseURL(opts.Caption.BaseURL))
	return &session{opts: opts, page: p, client: client}, nil
}

func (s *session) handler() *bridge.Handler {
	return bridge.NewHandler(s.page.Doc, s.client,
		bridge.WithBuilderOptions(proposal.WithCaptionTimeout(s.opts.Caption.ProposalTimeout)),
	)
}

// runScan prints the proposal list as the bridge would return it.
func runScan(ctx context.Context, args []string) error {
	s, err := start(ctx, "scan", args)
	if err != nil {
		return err
	}
	defer s.page.Close()

	resp := s.handler().RequestProposals(ctx, s.opts.OnlyMissingAlt)

	out := os.Stdout
	if s.opts.Output != "" && s.opts.Output != "-" {
		f, err := os.Create(s.opts.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to write proposals: %w", err)
	}
	return nil
}

// runApply captions every image missing alt text and writes the page.
func runApply(ctx context.Context, args []string) error {
	s, err := start(ctx, "apply", args)
	if err != nil {
		return err
	}
	defer s.page.Close()

	images, err := scan.FindImagesMissingAlt(ctx, s.page.Doc)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		log.Printf("No images missing alt text found")
		return writeOutput(s.page, s.opts)
	}

	applier := mutator.NewBulkApplier(s.client,
		mutator.WithNotifier(s.page.Notifier),
		mutator.WithDelay(s.opts.Caption.BulkDelay),
		mutator.WithHighlightDuration(s.opts.Caption.HighlightDuration),
		mutator.WithHealthTimeout(s.opts.Caption.HealthTimeout),
	)

	summary, err := applier.ApplyGeneratedAlt(ctx, images)
	applier.Wait()
	if err != nil {
		return err
	}

	log.Printf("Finished processing images: %d captioned, %d fallback, %d skipped",
		summary.Captioned, summary.Fallback, summary.Skipped)
	return writeOutput(s.page, s.opts)
}

// runReview shows proposals in the terminal and applies the accepted ones.
func runReview(ctx context.Context, args []string) error {
	s, err := start(ctx, "review", args)
	if err != nil {
		return err
	}
	defer s.page.Close()

	h := s.handler()
	resp := h.RequestProposals(ctx, s.opts.OnlyMissingAlt)

	accepted, err := review.Run(ctx, resp.Proposals, os.Stdin, os.Stderr)
	if err != nil {
		return err
	}
	if len(accepted) == 0 {
		log.Printf("No captions accepted")
		return nil
	}

	applied := 0
	for _, a := range accepted {
		if h.ApplyCaption(ctx, a.ID, a.Alt).Applied {
			applied++
		} else {
			log.Printf("Image %s is no longer on the page", a.ID)
		}
	}
	s.page.Notifier.Notify(mutator.NoticeSuccess, fmt.Sprintf("Added alt text to %d image(s).", applied))

	return writeOutput(s.page, s.opts)
}

// runServe answers bridge requests for the open page until interrupted.
func runServe(ctx context.Context, args []string) error {
	s, err := start(ctx, "serve", args)
	if err != nil {
		return err
	}
	defer s.page.Close()

	h := s.handler()
	if s.page.Session != nil {
		// a reload or navigation starts a new page session
		s.page.Session.OnLoad(func(url string) {
			debugLog.Infof("Page loaded: %s", url)
			go h.Reset(s.page.Session.Document())
		})
	}

	token := os.Getenv(bridge.TokenEnv)
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           bridge.NewRouter(h, token),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("Bridge listening on %s", s.opts.Listen)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bridge server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop bridge server: %w", err)
	}

	if s.opts.Output != "" {
		return writeOutput(s.page, s.opts)
	}
	return nil
}
