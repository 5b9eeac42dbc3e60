package clientinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// UnknownIP is the sentinel substituted when the client address cannot be
// resolved. Lookup failure never aborts the operation that asked for it.
const UnknownIP = "Unknown"

// ClientMetadata describes where a request came from
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// IPLookup resolves the caller's public IP address. Implementations are
// best-effort: callers substitute UnknownIP on error.
type IPLookup interface {
	ClientIP(ctx context.Context) (string, error)
}

// ExtractFromRequest builds client metadata from an HTTP request, preferring
// proxy-forwarded addresses over the raw remote address
func ExtractFromRequest(r *http.Request) ClientMetadata {
	return ClientMetadata{
		IPAddress: extractIP(r),
		UserAgent: r.UserAgent(),
	}
}

func extractIP(r *http.Request) string {
	// X-Forwarded-For may carry a chain; the first hop is the client
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return UnknownIP
	}
	return host
}
