package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeRetriesOnRetryableStatus(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	body, err := Scrape(context.Background(), srv.URL, ScrapeOptions{
		Retries:       5,
		BackoffFactor: 0.001,
	})
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.EqualValues(t, 3, attempts.Load())
}

func TestScrapeDoesNotRetryOtherStatuses(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Scrape(context.Background(), srv.URL, ScrapeOptions{
		Retries:       5,
		BackoffFactor: 0.001,
	})
	require.Error(t, err)
	assert.EqualValues(t, 1, attempts.Load())
}

func TestScrapeExhaustsRetries(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Scrape(context.Background(), srv.URL, ScrapeOptions{
		Retries:       3,
		BackoffFactor: 0.001,
	})
	require.Error(t, err)

	// 3 retries on top of the initial attempt
	assert.EqualValues(t, 4, attempts.Load())
}

func TestScrapeRotatesUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := Scrape(context.Background(), srv.URL, ScrapeOptions{Randomize: true})
	require.NoError(t, err)
	assert.Contains(t, userAgents, gotUA)
}

func TestScrapeSetsExtraHeaders(t *testing.T) {
	t.Parallel()

	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := Scrape(context.Background(), srv.URL, ScrapeOptions{
		Headers: map[string]string{"Accept": "application/gzip"},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/gzip", gotAccept)
}
