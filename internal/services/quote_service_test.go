package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnverse/internal/config"
	"learnverse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuoteService(url string, timeout time.Duration) *QuoteService {
	cfg := config.Default()
	cfg.Quotes.URL = url
	cfg.Quotes.Timeout = timeout
	return NewQuoteService(cfg, testLogger())
}

func TestQuoteService_RandomQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("Should decode an upstream object", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"content": "Stay curious.", "author": "Someone"}`))
		}))
		defer server.Close()

		q := newQuoteService(server.URL, time.Second).RandomQuote(ctx)
		assert.Equal(t, models.Quote{Text: "Stay curious.", Author: "Someone"}, q)
	})

	t.Run("Should decode an upstream array", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"q": "Keep going.", "a": "Anon"}]`))
		}))
		defer server.Close()

		q := newQuoteService(server.URL, time.Second).RandomQuote(ctx)
		assert.Equal(t, models.Quote{Text: "Keep going.", Author: "Anon"}, q)
	})

	fallbackCases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
		"empty list": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
		"no text": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"author": "Nobody"}`))
		},
		"slow upstream": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		},
	}
	for name, handler := range fallbackCases {
		t.Run("Should fall back on "+name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			q := newQuoteService(server.URL, 100*time.Millisecond).RandomQuote(ctx)
			assert.Contains(t, FallbackQuotes, q)
		})
	}

	t.Run("Should fall back without an upstream", func(t *testing.T) {
		q := newQuoteService("", 0).RandomQuote(ctx)
		assert.Contains(t, FallbackQuotes, q)
	})
}

func TestDecodeQuote_DefaultsAuthor(t *testing.T) {
	q, err := decodeQuote([]byte(`{"text": "Learn daily."}`))
	require.NoError(t, err)
	assert.Equal(t, "Unknown", q.Author)
}
