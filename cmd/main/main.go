package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// defaultConfigPath is used when -config is not given.
const defaultConfigPath = "./nepenthes.json"

// app carries what every command needs.
type app struct {
	config *Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintf(os.Stderr, "nepenthes: %v\n", err)
		}
		os.Exit(1)
	}
}

// run parses the global flags, loads the configuration and dispatches to the
// named command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("nepenthes", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "path to the JSON config file")
	logLevel := fs.String("log-level", "", "log level override (debug, info, warn, error)")
	fs.Usage = func() { printUsage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr, fs)
		return errors.New("no command given")
	}
	if rest[0] == "version" {
		_, err := fmt.Fprintf(stdout, "nepenthes %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		return err
	}

	cmd, ok := lookupCommand(rest[0])
	if !ok {
		printUsage(stderr, fs)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	config, err := LoadConfig(*configPath, stderr)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))
	logger.Debug("Running command", "command", cmd.name, "config", *configPath)

	a := &app{
		config: config,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}
	return cmd.run(ctx, a, rest[1:])
}

// parseLogLevel maps a config string to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintln(w, "Usage: nepenthes [global flags] <command> [flags]")
	_, _ = fmt.Fprintln(w, "\nCommands:")
	for _, cmd := range commandList() {
		_, _ = fmt.Fprintf(w, "  %-8s %s\n", cmd.name, cmd.summary)
	}
	_, _ = fmt.Fprintf(w, "  %-8s %s\n", "version", "print version information")
	_, _ = fmt.Fprintln(w, "\nGlobal flags:")
	fs.PrintDefaults()
}
