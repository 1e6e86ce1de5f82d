package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/waybackscan/kit"
	"github.com/hazyhaar/waybackscan/scan"
)

// ScanCommand runs one scan from the command line.
type ScanCommand struct {
	Domain  string `long:"domain" short:"d" description:"Domain to scan (required)" required:"true"`
	Keyword string `long:"keyword" short:"k" description:"Keyword to look for (required)" required:"true"`
	Year    string `long:"year" short:"y" description:"Restrict to captures of this year (YYYY)"`
	Limit   int    `long:"limit" short:"n" description:"Max snapshots to scan"`

	globals *GlobalFlags
}

// errScanFailed reports a scan that ended with an error event.
var errScanFailed = errors.New("scan failed")

// Execute implements the go-flags Commander interface for ScanCommand.
func (c *ScanCommand) Execute(args []string) error {
	a, err := setup(c.globals, os.Stderr)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return c.run(kit.WithTransport(ctx, "cli"), a.scanner, os.Stdout)
}

// run prints every event as one JSON line on out.
func (c *ScanCommand) run(ctx context.Context, s *scan.Scanner, out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	req := scan.Request{Domain: c.Domain, Year: c.Year, Keyword: c.Keyword, Limit: c.Limit}
	sum := s.Run(ctx, req, scan.EmitterFunc(func(e scan.Event) error {
		return enc.Encode(e)
	}))
	if sum.Error != "" {
		return errScanFailed
	}
	return nil
}
