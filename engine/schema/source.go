package schema

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/renovate-resolver/resolver/pkg/logger"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/afero"
)

const (
	defaultFetchTimeout = 30 * time.Second
	retryBaseDelay      = 250 * time.Millisecond
)

// Source supplies the raw schema document.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
	Location() string
}

// -----------------------------------------------------------------------------
// HTTPSource
// -----------------------------------------------------------------------------

// HTTPSource downloads the schema document over HTTP.
type HTTPSource struct {
	url        string
	client     *resty.Client
	maxRetries uint64
}

type HTTPOption func(*HTTPSource)

// WithHTTPTimeout bounds each download attempt.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if d > 0 {
			s.client.SetTimeout(d)
		}
	}
}

// WithMaxRetries sets how many times a failed download is retried.
func WithMaxRetries(n int) HTTPOption {
	return func(s *HTTPSource) {
		if n >= 0 {
			s.maxRetries = uint64(n) // #nosec G115 -- checked above
		}
	}
}

func NewHTTPSource(url string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		url: url,
		client: resty.New().
			SetTimeout(defaultFetchTimeout).
			SetHeader("Accept", "application/json"),
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) Location() string {
	return s.url
}

func (s *HTTPSource) Load(ctx context.Context) ([]byte, error) {
	log := logger.FromContext(ctx)
	log.Info("Fetching Renovate schema", "url", s.url)
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(retryBaseDelay))
	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := s.client.R().SetContext(ctx).Get(s.url)
		if err != nil {
			return retry.RetryableError(err)
		}
		code := resp.StatusCode()
		if code >= http.StatusInternalServerError || code == http.StatusTooManyRequests {
			return retry.RetryableError(fmt.Errorf("unexpected status %s", resp.Status()))
		}
		if code != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status())
		}
		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", ErrSchemaAcquisition, s.url, err)
	}
	log.Info("Renovate schema downloaded successfully", "bytes", len(body))
	return body, nil
}

// -----------------------------------------------------------------------------
// FileSource
// -----------------------------------------------------------------------------

// FileSource reads the schema document from a filesystem, the OS one by default.
type FileSource struct {
	fs   afero.Fs
	path string
}

func NewFileSource(path string) *FileSource {
	return NewFileSourceFS(afero.NewOsFs(), path)
}

func NewFileSourceFS(fs afero.Fs, path string) *FileSource {
	return &FileSource{fs: fs, path: path}
}

func (s *FileSource) Location() string {
	return s.path
}

func (s *FileSource) Load(_ context.Context) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaAcquisition, err)
	}
	return data, nil
}

// -----------------------------------------------------------------------------
// StaticSource
// -----------------------------------------------------------------------------

// StaticSource serves a schema document already held in memory.
type StaticSource struct {
	location string
	data     []byte
}

func NewStaticSource(location string, data []byte) *StaticSource {
	return &StaticSource{location: location, data: data}
}

func (s *StaticSource) Location() string {
	return s.location
}

func (s *StaticSource) Load(_ context.Context) ([]byte, error) {
	if len(s.data) == 0 {
		return nil, fmt.Errorf("%w: empty schema document", ErrSchemaAcquisition)
	}
	return s.data, nil
}
