// CLAUDE:SUMMARY Entry point for waybackscan: go-flags subcommands serve (HTTP/SSE + MCP), scan (JSON lines) and mcp (stdio).
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	goflags "github.com/jessevdk/go-flags"

	"github.com/hazyhaar/waybackscan/cdx"
	"github.com/hazyhaar/waybackscan/internal/config"
	"github.com/hazyhaar/waybackscan/internal/fetch"
	"github.com/hazyhaar/waybackscan/scan"
)

var version = "dev"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config   string `long:"config" short:"c" description:"Path to YAML config file" env:"WAYBACKSCAN_CONFIG"`
	LogLevel string `long:"log-level" description:"Override log level: debug | info | warn | error"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func run(args []string) error {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "waybackscan"
	parser.LongDescription = "Scan the archived captures of a domain for a keyword."

	parser.AddCommand("serve", "Run the HTTP server", "Serve GET /api/scan as a server-sent event stream, plus /api/snapshots, /health and optionally /mcp.", &ServeCommand{globals: &globals})
	parser.AddCommand("scan", "Run one scan and print events", "Run one scan and print every event as one JSON line on stdout.", &ScanCommand{globals: &globals})
	parser.AddCommand("mcp", "Serve MCP tools on stdio", "Serve the wayback_scan and wayback_snapshots MCP tools over stdin/stdout.", &MCPCommand{globals: &globals})
	parser.AddCommand("version", "Print the version", "Print the version and exit.", &VersionCommand{})

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok && flagsErr.Type == goflags.ErrHelp {
			return nil
		}
		return err
	}
	return nil
}

// VersionCommand prints the build version.
type VersionCommand struct{}

func (c *VersionCommand) Execute(args []string) error {
	fmt.Printf("waybackscan %s\n", version)
	return nil
}

// app is what every subcommand needs: config, logger, scanner.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	scanner *scan.Scanner
}

// setup loads the config and wires fetcher, index client and scanner.
// Logs go to logOut: stdout for the server, stderr when stdout carries data.
func setup(globals *GlobalFlags, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(globals.Config)
	if err != nil {
		return nil, err
	}
	if globals.LogLevel != "" {
		cfg.Log.Level = globals.LogLevel
	}
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	return &app{cfg: cfg, logger: logger, scanner: newScanner(cfg, logger)}, nil
}

func newScanner(cfg *config.Config, logger *slog.Logger) *scan.Scanner {
	fetcher := fetch.New(fetch.Config{
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
		Referer:   cfg.Fetch.Referer,
	})
	index := cdx.New(fetcher, cdx.WithEndpoint(cfg.Index.Endpoint), cdx.WithLogger(logger))

	return scan.New(index, fetcher, scan.Config{
		ArchiveBase:  cfg.Replay.Base,
		DelayMin:     cfg.Scan.DelayMin,
		DelayMax:     cfg.Scan.DelayMax,
		FetchTimeout: cfg.Fetch.Timeout,
		StrictIndex:  cfg.Index.Strict,
		Limits:       scan.Limits{Default: cfg.Scan.DefaultLimit, Max: cfg.Scan.MaxLimit},
	}, scan.WithLogger(logger))
}
