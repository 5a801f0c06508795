package remote

import (
	"context"
	"log/slog"
	"time"
)

// Result is the outcome of Client.Load.
type Result struct {
	Data []byte
	// Stale is set when the fetch failed and Data is the stored copy.
	Stale bool
	// FetchErr is the fetch failure behind a stale result.
	FetchErr error
}

// Client fetches remote configurations and falls back to stored copies.
type Client struct {
	fetcher Fetcher
	store   *Store
	logger  *slog.Logger
}

// NewClient returns a client. store may be nil to disable local copies.
func NewClient(fetcher Fetcher, store *Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{fetcher: fetcher, store: store, logger: logger}
}

// Load fetches url. When a stored copy exists the shorter timeoutIfCached
// applies, and a failed fetch returns that copy marked Stale. Without a
// stored copy a failed fetch is returned as an error.
func (c *Client) Load(ctx context.Context, url string, timeout, timeoutIfCached time.Duration) (Result, error) {
	cached, hasCached := c.cached(url)
	if hasCached {
		timeout = timeoutIfCached
	}

	c.logger.Debug("fetching remote configuration", "url", url, "timeout", timeout, "cached", hasCached)
	data, err := c.fetcher.Fetch(ctx, url, timeout)
	if err != nil {
		if hasCached {
			return Result{Data: cached, Stale: true, FetchErr: err}, nil
		}
		return Result{}, err
	}

	if c.store != nil {
		if err := c.store.Put(url, data); err != nil {
			c.logger.Warn("storing remote configuration", "url", url, "error", err)
		}
	}
	return Result{Data: data}, nil
}

func (c *Client) cached(url string) ([]byte, bool) {
	if c.store == nil {
		return nil, false
	}
	return c.store.Get(url)
}
