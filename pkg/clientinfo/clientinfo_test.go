package clientinfo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromRequest(t *testing.T) {
	t.Run("ForwardedForFirstHop", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		r.Header.Set("User-Agent", "test-agent")

		meta := ExtractFromRequest(r)
		assert.Equal(t, "203.0.113.7", meta.IPAddress)
		assert.Equal(t, "test-agent", meta.UserAgent)
	})

	t.Run("RealIPFallback", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Real-IP", "198.51.100.4")

		meta := ExtractFromRequest(r)
		assert.Equal(t, "198.51.100.4", meta.IPAddress)
	})

	t.Run("RemoteAddrFallback", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.9:43210"

		meta := ExtractFromRequest(r)
		assert.Equal(t, "192.0.2.9", meta.IPAddress)
	})

	t.Run("UnknownWhenNothingAvailable", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = ""

		meta := ExtractFromRequest(r)
		assert.Equal(t, UnknownIP, meta.IPAddress)
	})
}

func TestHTTPIPLookup(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("203.0.113.7\n"))
		}))
		defer server.Close()

		lookup := NewHTTPIPLookup(server.URL)
		ip, err := lookup.ClientIP(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.7", ip)
	})

	t.Run("NonOKStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		lookup := NewHTTPIPLookup(server.URL)
		_, err := lookup.ClientIP(context.Background())
		assert.Error(t, err)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		lookup := NewHTTPIPLookup(server.URL)
		_, err := lookup.ClientIP(context.Background())
		assert.Error(t, err)
	})

	t.Run("Unreachable", func(t *testing.T) {
		lookup := NewHTTPIPLookup("http://127.0.0.1:1/ip")
		_, err := lookup.ClientIP(context.Background())
		assert.Error(t, err)
	})
}

func TestStaticIPLookup(t *testing.T) {
	ip, err := StaticIPLookup{IP: "203.0.113.7"}.ClientIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)

	_, err = StaticIPLookup{}.ClientIP(context.Background())
	assert.Error(t, err)
}
