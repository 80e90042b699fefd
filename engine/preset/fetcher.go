package preset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/renovate-resolver/resolver/pkg/logger"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheSize  = 256
	defaultCacheTTL   = 15 * time.Minute
	defaultTimeout    = 20 * time.Second
	defaultMaxRetries = 2
	retryBaseDelay    = 200 * time.Millisecond
)

// FetchObserver is told about every remote fetch, cache hits excluded.
type FetchObserver func(kind Kind, duration time.Duration, err error)

// fetcher shares one body cache and one in-flight group across all remote sources.
// Only successful bodies are cached; misses and failures are fetched again next time.
type fetcher struct {
	cache      *expirable.LRU[string, []byte]
	group      singleflight.Group
	timeout    time.Duration
	maxRetries uint64
	observer   FetchObserver
}

func newFetcher(size int, ttl, timeout time.Duration, maxRetries int) *fetcher {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &fetcher{
		cache:      expirable.NewLRU[string, []byte](size, nil, ttl),
		timeout:    timeout,
		maxRetries: uint64(maxRetries), // #nosec G115 -- non-negative
	}
}

// statusError carries the HTTP status of a failed fetch.
type statusError struct {
	Code int
	URL  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// classify turns a status code into a terminal, retryable or not-found error.
func classify(code int, url string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrPresetNotFound, &statusError{Code: code, URL: url})
	case code >= http.StatusInternalServerError || code == http.StatusTooManyRequests:
		return retry.RetryableError(&statusError{Code: code, URL: url})
	default:
		return &statusError{Code: code, URL: url}
	}
}

// get returns the body stored under key, calling load at most once per key at a time.
// The load runs detached from the caller's cancellation so that concurrent waiters
// are not failed by one client going away.
func (f *fetcher) get(ctx context.Context, kind Kind, key string, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if body, ok := f.cache.Get(key); ok {
		return body, nil
	}
	ch := f.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		start := time.Now()
		body, err := f.retrying(loadCtx, load)
		if f.observer != nil {
			f.observer(kind, time.Since(start), err)
		}
		if err != nil {
			return nil, err
		}
		f.cache.Add(key, body)
		return body, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			logger.FromContext(ctx).Debug("Preset fetch shared", "key", key)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (f *fetcher) retrying(ctx context.Context, load func(context.Context) ([]byte, error)) ([]byte, error) {
	backoff := retry.WithMaxRetries(f.maxRetries, retry.NewExponential(retryBaseDelay))
	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := load(ctx)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrPresetNotFound)
}
