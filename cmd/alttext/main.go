// Package main provides the alttext command: it finds images without alt
// text on a page, asks the caption service for descriptions and writes them
// back, either in bulk, after an interactive review, or on request from a
// bridge client.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/entrhq/alttext/pkg/logging"
)

const version = "0.1.0"

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("cli")
	if err != nil {
		debugLog.Warnf("Failed to initialize cli logger, using stderr fallback: %v", err)
	}
}

var commands = map[string]func(ctx context.Context, args []string) error{
	"scan":   runScan,
	"apply":  runApply,
	"review": runReview,
	"serve":  runServe,
}

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	name := os.Args[1]
	switch name {
	case "version", "-version", "--version":
		fmt.Printf("alttext v%s\n", version)
		return
	case "help", "-h", "-help", "--help":
		usage()
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	if err := cmd(ctx, os.Args[2:]); err != nil {
		cancel()
		log.Printf("%s failed: %v", name, err)
		os.Exit(1)
	}
	cancel()
}

func usage() {
	fmt.Fprintf(os.Stderr, "alttext - AI alt text for images on a web page\n\n")
	fmt.Fprintf(os.Stderr, "Usage: alttext <command> [options] <page>\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  scan     print caption proposals as JSON\n")
	fmt.Fprintf(os.Stderr, "  apply    caption every image missing alt text and write the page\n")
	fmt.Fprintf(os.Stderr, "  review   review proposals in the terminal, then apply accepted ones\n")
	fmt.Fprintf(os.Stderr, "  serve    answer bridge requests over HTTP for the open page\n")
	fmt.Fprintf(os.Stderr, "  version  print the version\n\n")
	fmt.Fprintf(os.Stderr, "<page> is a file path, an http(s) URL, or - for stdin.\n")
	fmt.Fprintf(os.Stderr, "Run 'alttext <command> -h' for command options.\n\n")
	fmt.Fprintf(os.Stderr, "Examples:\n")
	fmt.Fprintf(os.Stderr, "  alttext apply -out fixed.html page.html\n")
	fmt.Fprintf(os.Stderr, "  alttext review -browser https://example.com\n")
	fmt.Fprintf(os.Stderr, "  alttext serve -config run.yaml\n")
}
