package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/waybackscan/scan"
	"github.com/hazyhaar/waybackscan/shield"
)

// ServeCommand runs the HTTP server.
type ServeCommand struct {
	Addr string `long:"addr" description:"Listen address (overrides config)"`
	MCP  bool   `long:"mcp" description:"Expose the MCP tools on /mcp"`

	globals *GlobalFlags
}

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	a, err := setup(c.globals, os.Stdout)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		a.cfg.Addr = c.Addr
	}
	if c.MCP {
		a.cfg.MCP.HTTP = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := newServer(ctx, a)

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", a.cfg.Addr, "mcp", a.cfg.MCP.HTTP, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			a.logger.Error("server error", "error", err)
			return err
		}
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("shutdown", "error", err)
	}
	a.logger.Info("server stopped")
	return nil
}

// newServer builds the HTTP server. Request contexts derive from ctx so
// running scans stop at their next snapshot boundary on shutdown.
// WriteTimeout bounds the short JSON routes; long-running ones lift it.
func newServer(ctx context.Context, a *app) *http.Server {
	return &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           newRouter(a),
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// newRouter mounts the scan API under /api behind the shield stack. HEAD on
// /api/scan is left alone so a health check never starts a scan.
func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack("/api/scan") {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Mount("/api", scan.NewHandler(a.scanner).Routes())

	if a.cfg.MCP.HTTP {
		mcpSrv := newMCPServer(a.scanner)
		r.Handle("/mcp", noWriteDeadline(mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil)))
	}
	return r
}

// noWriteDeadline lifts the server WriteTimeout. A wayback_scan call answers
// only once every snapshot is scanned, which takes minutes at full limit.
func noWriteDeadline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
		next.ServeHTTP(w, r)
	})
}

func newMCPServer(s *scan.Scanner) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "waybackscan",
		Version: version,
	}, nil)
	s.RegisterMCP(srv)
	return srv
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
