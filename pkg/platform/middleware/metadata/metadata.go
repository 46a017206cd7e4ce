// Package metadata captures who is calling: client IP and a parsed
// User-Agent, stored on the request context for the access log.
package metadata

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// Client describes the caller of one request.
type Client struct {
	IP      string
	Browser string
	OS      string
	Bot     bool
}

type contextKeyClient struct{}

// ClientMetadata extracts client metadata from the request and adds it to
// the context. Apply it before the request logger.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClient(r.Context(), ClientFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithClient injects client metadata into a context.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, contextKeyClient{}, c)
}

// GetClient retrieves client metadata from the context.
func GetClient(ctx context.Context) (Client, bool) {
	c, ok := ctx.Value(contextKeyClient{}).(Client)
	return c, ok
}

// ClientFromRequest builds client metadata from headers and the remote address.
func ClientFromRequest(r *http.Request) Client {
	c := Client{IP: ClientIPFromRequest(r)}
	raw := r.Header.Get("User-Agent")
	if raw == "" {
		return c
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	c.Browser = strings.TrimSpace(name + " " + version)
	c.OS = ua.OS()
	c.Bot = ua.Bot()
	return c
}

// ClientIPFromRequest extracts the real client IP, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// first entry of X-Forwarded-For is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port"
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
