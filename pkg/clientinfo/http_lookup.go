package clientinfo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultLookupTimeout = 3 * time.Second

// HTTPIPLookup resolves the public IP address through an external echo
// service (one that answers GET with the caller's address in the body)
type HTTPIPLookup struct {
	endpoint string
	client   *http.Client
}

// NewHTTPIPLookup creates a lookup against the given echo endpoint
func NewHTTPIPLookup(endpoint string) *HTTPIPLookup {
	return &HTTPIPLookup{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: defaultLookupTimeout,
		},
	}
}

// ClientIP fetches the public IP address. The call is bounded by the client
// timeout so a slow lookup service cannot stall session creation.
func (l *HTTPIPLookup) ClientIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build lookup request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ip lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("failed to read lookup response: %w", err)
	}

	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", fmt.Errorf("ip lookup returned empty body")
	}

	slog.Debug("Resolved client IP", "ip", ip)
	return ip, nil
}

// StaticIPLookup always returns a fixed address. Useful in tests and for
// deployments where the address is known out-of-band.
type StaticIPLookup struct {
	IP string
}

// ClientIP returns the configured address
func (l StaticIPLookup) ClientIP(ctx context.Context) (string, error) {
	if l.IP == "" {
		return "", fmt.Errorf("no static ip configured")
	}
	return l.IP, nil
}
