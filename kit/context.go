// CLAUDE:SUMMARY Context keys shared by HTTP, MCP and CLI entry points: trace id, scan id, transport.
package kit

import "context"

type contextKey string

const (
	TransportKey contextKey = "kit_transport" // "http", "mcp", "cli"
	TraceIDKey   contextKey = "kit_trace_id"
	ScanIDKey    contextKey = "kit_scan_id"
)

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

func WithScanID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ScanIDKey, id)
}
func GetScanID(ctx context.Context) string {
	v, _ := ctx.Value(ScanIDKey).(string)
	return v
}
