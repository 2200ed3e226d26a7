// Package main runs the caption service: a small HTTP server that fetches
// an image by URL and describes it with the configured vision engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/entrhq/alttext/pkg/captionsvc"
	appconfig "github.com/entrhq/alttext/pkg/config"
)

const (
	version         = "0.1.0"
	shutdownTimeout = 5 * time.Second
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	SettingsFile string
	Listen       string
	Engine       string
	Model        string
	BaseURL      string
	APIKey       string
	Debug        bool
	ShowVersion  bool
}

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("captiond v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	if err := run(ctx, config); err != nil {
		cancel()
		log.Printf("captiond failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	config := &CLIConfig{}

	flag.StringVar(&config.SettingsFile, "settings", "", "Path to the settings file (default ~/.alttext/config.json)")
	flag.StringVar(&config.Listen, "listen", "", "Listen address (default from settings, 127.0.0.1:8000)")
	flag.StringVar(&config.Engine, "engine", "", "Caption engine: placeholder, openai or gemini")
	flag.StringVar(&config.Model, "model", "", "Vision model name")
	flag.StringVar(&config.BaseURL, "base-url", "", "OpenAI-compatible API base URL")
	flag.StringVar(&config.APIKey, "api-key", "", "API key for the engine")
	flag.BoolVar(&config.Debug, "debug", false, "Run gin in debug mode")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "captiond - image caption service\n\n")
		fmt.Fprintf(os.Stderr, "Usage: captiond [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  captiond\n")
		fmt.Fprintf(os.Stderr, "  captiond -engine openai -model gpt-4o-mini\n")
		fmt.Fprintf(os.Stderr, "  ALTTEXT_ENGINE=gemini captiond -listen :8000\n")
	}

	flag.Parse()
	return config
}

// newServer builds the caption server from settings and flags.
func newServer(cliConfig *CLIConfig) (*captionsvc.Server, string, error) {
	engine, err := appconfig.BuildEngine(cliConfig.Engine, cliConfig.Model, cliConfig.BaseURL, cliConfig.APIKey)
	if err != nil {
		return nil, "", err
	}

	serverConfig := appconfig.GetServer()
	listen := cliConfig.Listen
	if listen == "" {
		listen = serverConfig.GetListenAddr()
	}

	allowed, denied := serverConfig.GetHostPatterns()
	hosts, err := captionsvc.NewHostMatcher(allowed, denied)
	if err != nil {
		return nil, "", fmt.Errorf("invalid host patterns: %w", err)
	}

	srv := captionsvc.NewServer(engine,
		captionsvc.WithHostMatcher(hosts),
		captionsvc.WithFetchTimeout(serverConfig.GetFetchTimeout()),
	)
	return srv, listen, nil
}

func run(ctx context.Context, cliConfig *CLIConfig) error {
	if !cliConfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := appconfig.Initialize(cliConfig.SettingsFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	captionServer, listen, err := newServer(cliConfig)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           captionServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("Caption service listening on %s (engine: %s)", listen, captionServer.EngineName())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
