package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortenerReturnsShortURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "https://example.com/very/long", r.URL.Query().Get("url"))
		fmt.Fprint(w, "https://tinyurl.com/abc123")
	}))
	defer server.Close()

	s := NewShortener()
	s.endpoint = server.URL

	short := s.Shorten(context.Background(), "https://example.com/very/long")
	require.Equal(t, "https://tinyurl.com/abc123", short)
}

func TestShortenerDegradesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := NewShortener()
	s.endpoint = server.URL

	short := s.Shorten(context.Background(), "https://example.com/very/long")
	require.Equal(t, "https://example.com/very/long", short)
}

func TestShortenerDegradesOnJunkBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Error: invalid url")
	}))
	defer server.Close()

	s := NewShortener()
	s.endpoint = server.URL

	short := s.Shorten(context.Background(), "https://example.com/very/long")
	require.Equal(t, "https://example.com/very/long", short)
}

func TestShortenerDegradesWhenUnreachable(t *testing.T) {
	s := NewShortener()
	s.endpoint = "http://127.0.0.1:1"

	short := s.Shorten(context.Background(), "https://example.com/very/long")
	require.Equal(t, "https://example.com/very/long", short)
}
