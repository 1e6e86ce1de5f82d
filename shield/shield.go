// Package shield provides the HTTP middleware stack of the scan server:
// security headers, request tracing with a per-request structured logger,
// and HEAD method handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack("/api/scan") {
//	    r.Use(mw)
//	}
package shield

import "net/http"

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultStack returns the standard middleware stack.
// Middleware is ordered: HeadToGet → SecurityHeaders → TraceID.
// headExclude lists path prefixes whose HEAD requests are not rewritten.
func DefaultStack(headExclude ...string) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet(headExclude...),
		SecurityHeaders(DefaultHeaders()),
		TraceID,
	}
}

