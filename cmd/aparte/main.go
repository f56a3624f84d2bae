// Package main is the entry point for the aparte XMPP client.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/dshills/aparte/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fd := int(os.Stdin.Fd())
	interactive := term.IsTerminal(fd)

	// Notices go to stdout until the line editor takes over the terminal.
	var out io.Writer = os.Stdout
	opts.Notices = func(msg string) {
		fmt.Fprintln(out, msg)
	}

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	if interactive {
		if err := promptPasswords(application, fd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	input := make(chan string)
	if interactive {
		state, err := term.MakeRaw(fd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to set up terminal: %v\n", err)
			return 1
		}
		defer term.Restore(fd, state)

		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{os.Stdin, os.Stdout}, "> ")
		out = t
		go readTerminal(t, input, stop)
	} else {
		go readLines(os.Stdin, input, stop)
	}

	if err := application.Run(ctx, input); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// promptPasswords asks for the passwords the configuration leaves out.
func promptPasswords(application *app.Application, fd int) error {
	for _, name := range application.MissingPasswords() {
		fmt.Fprintf(os.Stderr, "Password for %s: ", name)
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading password for %s: %w", name, err)
		}
		application.SetPassword(name, string(pw))
	}
	return nil
}

// readTerminal feeds edited lines to input. Ctrl-D on an empty line stops
// the client.
func readTerminal(t *term.Terminal, input chan<- string, stop func()) {
	for {
		line, err := t.ReadLine()
		if err != nil {
			stop()
			return
		}
		input <- line
	}
}

func readLines(r io.Reader, input chan<- string, stop func()) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		input <- sc.Text()
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintf(os.Stderr, "Error: reading input: %v\n", err)
	}
	stop()
}

func parseFlags() app.Options {
	var opts app.Options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&opts.Debug, "d", false, "Enable debug logging (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "aparte - terminal XMPP client\n\n")
		fmt.Fprintf(os.Stderr, "Usage: aparte [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  APARTE_CONFIG       Configuration file\n")
		fmt.Fprintf(os.Stderr, "  APARTE_LOG_LEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  APARTE_LOG_FILE     Log file\n")
		fmt.Fprintf(os.Stderr, "  APARTE_SCRIPTS_DIR  Lua scripts directory\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("aparte %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(1)
	}

	return opts
}
