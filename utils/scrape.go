package utils

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// userAgents is rotated per attempt to reduce anti-scraping friction on
// upstream mirrors.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.5790.102 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:113.0) Gecko/20100101 Firefox/113.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.5790.102 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_4_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.5790.102 Safari/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:102.0) Gecko/20100101 Firefox/102.0",
	"Mozilla/5.0 (Linux; Android 13; SM-G998B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.5790.110 Mobile Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1",
}

// ScrapeOptions controls retry and identification behaviour of Scrape.
// Zero values fall back to the defaults below.
type ScrapeOptions struct {
	Timeout       time.Duration // per-request timeout, default 10s
	Retries       int           // retries after the initial attempt, default 5
	BackoffFactor float64       // initial backoff interval in seconds, default 1.0
	RetryStatuses []int         // statuses that trigger a retry, default 403/502/503/504
	Randomize     bool          // rotate the User-Agent header per attempt
	Headers       map[string]string
}

func (o *ScrapeOptions) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Retries <= 0 {
		o.Retries = 5
	}
	if o.BackoffFactor <= 0 {
		o.BackoffFactor = 1.0
	}
	if o.RetryStatuses == nil {
		o.RetryStatuses = []int{
			http.StatusForbidden,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		}
	}
}

// Scrape fetches url with bounded exponential-backoff retries. Transport
// errors and the configured status codes are retried; any other non-2xx
// status fails immediately.
func Scrape(ctx context.Context, url string, opts ScrapeOptions) ([]byte, error) {
	opts.defaults()

	client := &http.Client{Timeout: opts.Timeout}

	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if opts.Randomize {
			req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
		}
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			err := fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
			for _, s := range opts.RetryStatuses {
				if resp.StatusCode == s {
					return nil, err
				}
			}
			return nil, backoff.Permanent(err)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return body, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = time.Duration(opts.BackoffFactor * float64(time.Second))

	return backoff.Retry(
		ctx,
		operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(opts.Retries)+1),
	)
}
