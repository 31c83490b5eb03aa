// Package request attaches request-scoped metadata (request id, client IP,
// normalized user agent) to the context. The audit recorder and the auth
// middleware read these values; handlers never touch headers directly.
package request

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

type (
	requestIDKey struct{}
	clientIPKey  struct{}
	userAgentKey struct{}
)

var (
	ContextKeyRequestID = requestIDKey{}
	ContextKeyClientIP  = clientIPKey{}
	ContextKeyUserAgent = userAgentKey{}
)

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// GetClientIP retrieves the client IP from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// GetUserAgent retrieves the normalized user agent from the context.
func GetUserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithRequestID injects a request ID; exported for tests.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// WithClientIP injects a client IP; exported for tests.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}

// Metadata assigns a request ID and resolves client IP and user agent once per
// request. X-Forwarded-For wins over RemoteAddr so the gateway works behind a
// proxy, matching what the audit trail expects.
func Metadata() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			ctx = context.WithValue(ctx, ContextKeyRequestID, requestID)
			ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP(r))
			ctx = context.WithValue(ctx, ContextKeyUserAgent, normalizeUserAgent(r.UserAgent()))

			w.Header().Set("X-Request-Id", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop is the original client.
		if idx := strings.IndexByte(forwarded, ','); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// normalizeUserAgent reduces a raw User-Agent header to "Browser/Version (OS)"
// so audit rows stay short and comparable. Non-browser agents fall back to the
// raw string.
func normalizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	out := name
	if version != "" {
		out += "/" + version
	}
	if os := ua.OS(); os != "" {
		out += " (" + os + ")"
	}
	return out
}
