package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPCommand serves the MCP tools over stdio.
type MCPCommand struct {
	globals *GlobalFlags
}

// Execute implements the go-flags Commander interface for MCPCommand.
// stdout belongs to the protocol, so logs go to stderr.
func (c *MCPCommand) Execute(args []string) error {
	a, err := setup(c.globals, os.Stderr)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.logger.Info("mcp stdio starting", "version", version)
	if err := newMCPServer(a.scanner).Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		a.logger.Error("mcp stdio", "error", err)
		return err
	}
	return nil
}
