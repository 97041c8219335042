package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/unknproject/loader/internal/domain"
	"github.com/unknproject/loader/internal/metrics"
)

// Config selects the content endpoints and transport behaviour.
type Config struct {
	PrimaryURL  string
	FallbackURL string

	// Retries is the number of extra attempts per endpoint before giving up on it.
	Retries int

	// Timeout bounds a single request including the body transfer. Zero means none.
	Timeout time.Duration
}

// Fetcher downloads files from the primary content endpoint, falling back to
// the secondary one.
type Fetcher struct {
	primary  string
	fallback string

	http    *retryablehttp.Client
	metrics metrics.Collector
	logger  *slog.Logger
}

// New creates a Fetcher. A nil collector disables metrics.
func New(cfg Config, collector metrics.Collector, logger *slog.Logger) *Fetcher {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = logger
	retryClient.ErrorHandler = lastResponse
	if cfg.Timeout > 0 {
		retryClient.HTTPClient.Timeout = cfg.Timeout
	}

	if collector == nil {
		collector = metrics.NewNoop()
	}

	return &Fetcher{
		primary:  cfg.PrimaryURL,
		fallback: cfg.FallbackURL,
		http:     retryClient,
		metrics:  collector,
		logger:   logger,
	}
}

// Fetch stores remoteName at dest. An existing dest is treated as complete and
// no request is made.
func (f *Fetcher) Fetch(ctx context.Context, remoteName, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		f.logger.Debug("using cached file", "path", dest)
		f.metrics.FetchCompleted("cache", nil)
		return nil
	}

	f.logger.Info("downloading", "file", remoteName)

	source := "primary"
	resp, err := f.get(ctx, f.primary+remoteName)
	if err != nil || resp.StatusCode != http.StatusOK {
		attrs := []any{"file", remoteName}
		if err != nil {
			attrs = append(attrs, "err", err)
		} else {
			attrs = append(attrs, "status", resp.StatusCode)
			resp.Body.Close()
		}
		f.logger.Warn("primary endpoint unavailable, trying fallback", attrs...)
		f.metrics.FetchFallback()

		source = "fallback"
		resp, err = f.get(ctx, f.fallback+remoteName)
		if err != nil {
			fetchErr := &domain.FetchError{Kind: domain.FetchNetwork, File: remoteName, Err: err}
			f.metrics.FetchCompleted(source, fetchErr)
			return fetchErr
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			fetchErr := &domain.FetchError{Kind: domain.FetchHTTPStatus, File: remoteName, Code: resp.StatusCode}
			f.metrics.FetchCompleted(source, fetchErr)
			return fetchErr
		}
	}
	defer resp.Body.Close()

	if err := writeFile(dest, resp.Body); err != nil {
		fetchErr := &domain.FetchError{Kind: domain.FetchIO, File: remoteName, Err: err}
		f.metrics.FetchCompleted(source, fetchErr)
		return fetchErr
	}

	f.metrics.FetchCompleted(source, nil)
	f.logger.Info("download complete", "file", remoteName, "path", dest, "source", source)
	return nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return f.http.Do(req)
}

// lastResponse hands back the final response once retries run out so a
// persistent 5xx is reported as a status rather than a transport error.
func lastResponse(resp *http.Response, err error, _ int) (*http.Response, error) {
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// writeFile streams body into a temp file next to dest and renames it into
// place, so dest only ever holds a complete download.
func writeFile(dest string, body io.Reader) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write body: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
