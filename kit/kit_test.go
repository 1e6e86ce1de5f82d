package kit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	chained := Chain(mw("a"), mw("b"), mw("c"))(base)
	resp, err := chained(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "c_before", "endpoint", "c_after", "b_after", "a_after"}
	if len(order) != len(expected) {
		t.Fatalf("order length: got %d, want %d", len(order), len(expected))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], v)
		}
	}
}

func TestChain_ErrorPropagation(t *testing.T) {
	errFail := errors.New("fail")
	base := func(_ context.Context, _ any) (any, error) {
		return nil, errFail
	}

	noop := func(next Endpoint) Endpoint { return next }
	chained := Chain(noop)(base)

	_, err := chained(context.Background(), nil)
	if !errors.Is(err, errFail) {
		t.Fatalf("error: got %v, want %v", err, errFail)
	}
}

func TestWithTransportTag(t *testing.T) {
	var seen string
	base := func(ctx context.Context, _ any) (any, error) {
		seen = GetTransport(ctx)
		return nil, nil
	}
	WithTransportTag("mcp")(base)(context.Background(), nil)
	if seen != "mcp" {
		t.Fatalf("transport: got %q, want mcp", seen)
	}
}

func TestContext_Transport_Default(t *testing.T) {
	ctx := context.Background()
	if v := GetTransport(ctx); v != "http" {
		t.Fatalf("default transport: got %q, want 'http'", v)
	}
}

func TestContext_TraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trc_xyz")
	if v := GetTraceID(ctx); v != "trc_xyz" {
		t.Fatalf("trace_id: got %q", v)
	}
}

func TestContext_ScanID(t *testing.T) {
	ctx := context.Background()
	if v := GetScanID(ctx); v != "" {
		t.Fatalf("scan_id default: got %q", v)
	}
	ctx = WithScanID(ctx, "0190a0b0-0000-7000-8000-000000000000")
	if v := GetScanID(ctx); v != "0190a0b0-0000-7000-8000-000000000000" {
		t.Fatalf("scan_id: got %q", v)
	}
}

func TestWithLogging(t *testing.T) {
	// WHAT: Failed calls are logged at warn with the endpoint name.
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	failing := func(context.Context, any) (any, error) { return nil, errors.New("boom") }

	_, err := WithLogging(logger, "wayback_scan")(failing)(context.Background(), nil)
	if err == nil {
		t.Fatal("error must pass through")
	}
	out := buf.String()
	if !strings.Contains(out, `"endpoint":"wayback_scan"`) || !strings.Contains(out, `"level":"WARN"`) {
		t.Errorf("log = %s", out)
	}
}
