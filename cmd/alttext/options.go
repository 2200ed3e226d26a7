package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	appconfig "github.com/entrhq/alttext/pkg/config"
)

const defaultListenAddr = "127.0.0.1:8765"

// RunFile is the YAML run file accepted by -config. Every field is optional;
// flags given on the command line win over it.
type RunFile struct {
	Source          string         `yaml:"source"`
	BaseURL         string         `yaml:"base_url"`
	Output          string         `yaml:"output"`
	Browser         bool           `yaml:"browser"`
	Headful         bool           `yaml:"headful"`
	OnlyMissingAlt  *bool          `yaml:"only_missing_alt"`
	CaptionURL      string         `yaml:"caption_url"`
	ProposalTimeout time.Duration  `yaml:"proposal_timeout"`
	BulkDelay       *time.Duration `yaml:"bulk_delay"`
	Listen          string         `yaml:"listen"`
}

// CLIConfig holds the flags shared by every command.
type CLIConfig struct {
	ConfigFile      string
	SettingsFile    string
	BaseURL         string
	Output          string
	Browser         bool
	Headful         bool
	All             bool
	CaptionURL      string
	ProposalTimeout time.Duration
	BulkDelay       time.Duration
	Listen          string

	// set records which flags were given explicitly
	set map[string]bool
}

// Options is the resolved configuration of one command run.
type Options struct {
	Source         string
	BaseURL        string
	Output         string
	Browser        bool
	Headful        bool
	OnlyMissingAlt bool
	Listen         string
	Caption        appconfig.CaptionSettings
}

// parseFlags parses args for the named command.
func parseFlags(name string, args []string) (*CLIConfig, []string, error) {
	cli := &CLIConfig{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&cli.ConfigFile, "config", "", "Path to a run file (YAML)")
	fs.StringVar(&cli.SettingsFile, "settings", "", "Path to the settings file (default ~/.alttext/config.json)")
	fs.StringVar(&cli.BaseURL, "base", "", "Base URL for resolving relative image sources of a local file")
	fs.StringVar(&cli.Output, "out", "", "Write the resulting page here instead of stdout")
	fs.BoolVar(&cli.Browser, "browser", false, "Open the page in Chromium instead of parsing the HTML")
	fs.BoolVar(&cli.Headful, "headful", false, "Show the browser window (implies -browser)")
	fs.BoolVar(&cli.All, "all", false, "Propose captions for every image, not only those missing alt text")
	fs.StringVar(&cli.CaptionURL, "caption-url", "", "Caption service base URL")
	fs.DurationVar(&cli.ProposalTimeout, "timeout", 0, "Per-image caption timeout for proposals")
	fs.DurationVar(&cli.BulkDelay, "delay", 0, "Delay between bulk caption requests (0 disables)")
	fs.StringVar(&cli.Listen, "listen", "", "Bridge listen address (serve)")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: alttext %s [options] <page>\n\nOptions:\n", name)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cli.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		cli.set[f.Name] = true
	})
	return cli, fs.Args(), nil
}

// loadRunFile reads a YAML run file.
func loadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	run := &RunFile{}
	if err := yaml.Unmarshal(data, run); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}
	return run, nil
}

// loadOptions parses flags, loads the settings file and the run file, and
// resolves them into Options.
func loadOptions(name string, args []string) (*Options, error) {
	cli, rest, err := parseFlags(name, args)
	if err != nil {
		return nil, err
	}

	if err := appconfig.Initialize(cli.SettingsFile); err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	var run *RunFile
	if cli.ConfigFile != "" {
		if run, err = loadRunFile(cli.ConfigFile); err != nil {
			return nil, err
		}
	}

	opts := resolveOptions(appconfig.CaptionSettingsOrDefault(), run, cli, rest)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// resolveOptions applies precedence: flags > run file > settings > defaults.
func resolveOptions(settings appconfig.CaptionSettings, run *RunFile, cli *CLIConfig, args []string) *Options {
	opts := &Options{
		OnlyMissingAlt: true,
		Listen:         defaultListenAddr,
		Caption:        settings,
	}

	if run != nil {
		opts.Source = run.Source
		opts.BaseURL = run.BaseURL
		opts.Output = run.Output
		opts.Browser = run.Browser || run.Headful
		opts.Headful = run.Headful
		if run.OnlyMissingAlt != nil {
			opts.OnlyMissingAlt = *run.OnlyMissingAlt
		}
		if run.CaptionURL != "" {
			opts.Caption.BaseURL = run.CaptionURL
		}
		if run.ProposalTimeout > 0 {
			opts.Caption.ProposalTimeout = run.ProposalTimeout
		}
		if run.BulkDelay != nil && *run.BulkDelay >= 0 {
			opts.Caption.BulkDelay = *run.BulkDelay
		}
		if run.Listen != "" {
			opts.Listen = run.Listen
		}
	}

	if len(args) > 0 {
		opts.Source = args[0]
	}
	if cli.set["base"] {
		opts.BaseURL = cli.BaseURL
	}
	if cli.set["out"] {
		opts.Output = cli.Output
	}
	if cli.set["browser"] {
		opts.Browser = cli.Browser
	}
	if cli.set["headful"] {
		opts.Headful = cli.Headful
		opts.Browser = opts.Browser || cli.Headful
	}
	if cli.set["all"] {
		opts.OnlyMissingAlt = !cli.All
	}
	if cli.set["caption-url"] {
		opts.Caption.BaseURL = cli.CaptionURL
	}
	if cli.set["timeout"] && cli.ProposalTimeout > 0 {
		opts.Caption.ProposalTimeout = cli.ProposalTimeout
	}
	if cli.set["delay"] && cli.BulkDelay >= 0 {
		opts.Caption.BulkDelay = cli.BulkDelay
	}
	if cli.set["listen"] {
		opts.Listen = cli.Listen
	}

	return opts
}

// Validate checks that a page was named.
func (o *Options) Validate() error {
	if o.Source == "" {
		return errors.New("no page given: pass a file, URL or - as the last argument, or set source in the run file")
	}
	return nil
}
