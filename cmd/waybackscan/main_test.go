package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/waybackscan/internal/config"
	"github.com/hazyhaar/waybackscan/scan"
)

const testPage = `<html><body><p>Our secret recipe</p><script>var secret = 1;</script></body></html>`

// fakeArchive serves the CDX index and replay pages from one host.
func fakeArchive(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		serveArchive(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// serveArchive is a bare handler so the "http://" inside replay paths stays uncleaned.
func serveArchive(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/cdx/search/cdx":
		fmt.Fprint(w, `[["timestamp","original"],["20200101000000","http://example.com/"]]`)
	case strings.HasPrefix(r.URL.Path, "/web/20200101000000/"):
		fmt.Fprint(w, testPage)
	default:
		http.NotFound(w, r)
	}
}

func testApp(t *testing.T, archiveURL string, mcpHTTP bool) *app {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Index.Endpoint = archiveURL + "/cdx/search/cdx"
	cfg.Replay.Base = archiveURL
	cfg.Scan.DelayMin = time.Millisecond
	cfg.Scan.DelayMax = 2 * time.Millisecond
	cfg.MCP.HTTP = mcpHTTP

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return &app{cfg: cfg, logger: logger, scanner: newScanner(cfg, logger)}
}

func TestRouter_Health(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(newRouter(testApp(t, fakeArchive(t, &hits).URL, false)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != 200 || body["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Trace-ID") == "" {
		t.Error("shield stack not applied")
	}
}

func TestRouter_ScanEndToEnd(t *testing.T) {
	// WHAT: A real scan through router, index client, fetcher and extractor.
	// WHY: Catches wiring mistakes no package test can see.
	var hits atomic.Int32
	archive := fakeArchive(t, &hits)
	srv := httptest.NewServer(newRouter(testApp(t, archive.URL, false)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/scan?domain=example.com&keyword=SECRET")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	var events []scan.Event
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
			var e scan.Event
			if err := json.Unmarshal([]byte(data), &e); err != nil {
				t.Fatalf("decode: %v", err)
			}
			events = append(events, e)
		}
	}

	var matches []string
	for _, e := range events {
		if e.Type == scan.EventMatch {
			matches = append(matches, string(e.Match.MatchType))
			want := archive.URL + "/web/20200101000000/http://example.com/"
			if e.Match.ArchiveURL != want {
				t.Errorf("archiveUrl = %q, want %q", e.Match.ArchiveURL, want)
			}
		}
	}
	if strings.Join(matches, ",") != "TEXT,JS" {
		t.Errorf("matches = %v", matches)
	}
	if last := events[len(events)-1]; last.Type != scan.EventComplete || last.Message != scan.MsgComplete {
		t.Errorf("terminal = %+v", last)
	}
	if hits.Load() != 2 {
		t.Errorf("archive hits = %d, want 2", hits.Load())
	}
}

func TestRouter_HeadDoesNotScan(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(newRouter(testApp(t, fakeArchive(t, &hits).URL, false)))
	defer srv.Close()

	resp, err := http.Head(srv.URL + "/api/scan?domain=example.com&keyword=secret")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
	if hits.Load() != 0 {
		t.Errorf("archive contacted %d times", hits.Load())
	}
}

func TestRouter_MCP(t *testing.T) {
	var hits atomic.Int32
	archiveURL := fakeArchive(t, &hits).URL

	t.Run("disabled", func(t *testing.T) {
		srv := httptest.NewServer(newRouter(testApp(t, archiveURL, false)))
		defer srv.Close()
		resp, err := http.Post(srv.URL+"/mcp", "application/json", strings.NewReader("{}"))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		srv := httptest.NewServer(newRouter(testApp(t, archiveURL, true)))
		defer srv.Close()

		ctx := context.Background()
		client := mcp.NewClient(&mcp.Implementation{Name: "waybackscan-test", Version: "0.1.0"}, nil)
		session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: srv.URL + "/mcp"}, nil)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		defer session.Close()

		tools, err := session.ListTools(ctx, nil)
		if err != nil {
			t.Fatalf("list tools: %v", err)
		}
		names := map[string]bool{}
		for _, tool := range tools.Tools {
			names[tool.Name] = true
		}
		if !names["wayback_scan"] || !names["wayback_snapshots"] {
			t.Errorf("tools = %v", names)
		}
	})
}

func TestRouter_MCPOutlivesWriteTimeout(t *testing.T) {
	// WHAT: A wayback_scan slower than the server WriteTimeout still returns its result.
	// WHY: At full limit the politeness delays alone run past any fixed write deadline.
	var hits atomic.Int32
	a := testApp(t, fakeArchive(t, &hits).URL, true)
	a.cfg.Scan.DelayMin = 300 * time.Millisecond
	a.cfg.Scan.DelayMax = 300 * time.Millisecond
	a.scanner = newScanner(a.cfg, a.logger)

	srv := httptest.NewUnstartedServer(nil)
	srv.Config = newServer(context.Background(), a)
	srv.Config.WriteTimeout = 100 * time.Millisecond
	srv.Start()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client := mcp.NewClient(&mcp.Implementation{Name: "waybackscan-test", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: srv.URL + "/mcp"}, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "wayback_scan",
		Arguments: map[string]any{"domain": "example.com", "keyword": "secret"},
	})
	if err != nil {
		t.Fatalf("wayback_scan: %v", err)
	}
	if res.IsError || len(res.Content) == 0 {
		t.Fatalf("tool error: %+v", res.Content)
	}
	text := res.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, `"matchType":"TEXT"`) {
		t.Errorf("result = %s", text)
	}
}

func TestNewScanner_SendsReferer(t *testing.T) {
	// WHAT: Index and replay requests built from the default config carry the archive Referer.
	// WHY: The archive refuses replay content to requests it did not refer.
	var mu sync.Mutex
	referers := map[string]string{}
	archive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		referers[r.URL.Path] = r.Header.Get("Referer")
		mu.Unlock()
		serveArchive(w, r)
	}))
	defer archive.Close()

	t.Setenv("WAYBACKSCAN_ARCHIVE_BASE", archive.URL)
	t.Setenv("WAYBACKSCAN_CDX_URL", archive.URL+"/cdx/search/cdx")
	t.Setenv("WAYBACKSCAN_DELAY_MIN", "1ms")
	t.Setenv("WAYBACKSCAN_DELAY_MAX", "2ms")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	s := newScanner(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	var c scan.Collector
	s.Run(context.Background(), scan.Request{Domain: "example.com", Keyword: "secret"}, &c)
	if len(c.Matches()) == 0 {
		t.Fatalf("scan found nothing: %+v", c.Events)
	}

	mu.Lock()
	defer mu.Unlock()
	want := archive.URL + "/"
	for _, path := range []string{"/cdx/search/cdx", "/web/20200101000000/http://example.com/"} {
		got, ok := referers[path]
		if !ok {
			t.Errorf("%s never requested; saw %v", path, referers)
			continue
		}
		if got != want {
			t.Errorf("%s Referer = %q, want %q", path, got, want)
		}
	}
}

func TestScanCommand_JSONLines(t *testing.T) {
	// WHAT: The scan subcommand prints one JSON event per line.
	var hits atomic.Int32
	a := testApp(t, fakeArchive(t, &hits).URL, false)

	var out bytes.Buffer
	cmd := &ScanCommand{Domain: "example.com", Keyword: "recipe"}
	if err := cmd.run(context.Background(), a.scanner, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	var last scan.Event
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &last); err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
	}
	if last.Type != scan.EventComplete {
		t.Errorf("last event = %+v", last)
	}
	if !strings.Contains(out.String(), `"matchType":"TEXT"`) {
		t.Errorf("no TEXT match in output:\n%s", out.String())
	}
}

func TestScanCommand_InvalidInput(t *testing.T) {
	var hits atomic.Int32
	a := testApp(t, fakeArchive(t, &hits).URL, false)

	var out bytes.Buffer
	cmd := &ScanCommand{Domain: "not a domain", Keyword: "x"}
	if err := cmd.run(context.Background(), a.scanner, &out); err != errScanFailed {
		t.Errorf("err = %v, want errScanFailed", err)
	}
	if !strings.Contains(out.String(), `"type":"error"`) {
		t.Errorf("output = %s", out.String())
	}
}

func TestRun_Help(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Errorf("help: %v", err)
	}
}
