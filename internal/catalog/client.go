package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/unknproject/loader/internal/domain"
)

// ErrEmpty is returned when the catalog endpoint lists no payloads.
var ErrEmpty = errors.New("no payloads available")

// Client downloads the payload catalog.
type Client struct {
	endpoint  string
	cacheRoot string
	lowercase bool

	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a catalog client. Payloads it returns keep their local
// copies under cacheRoot; lowercase folds names and descriptions.
func NewClient(endpoint, cacheRoot string, lowercase bool, logger *slog.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil // suppress default logging

	return &Client{
		endpoint:  endpoint,
		cacheRoot: cacheRoot,
		lowercase: lowercase,
		http:      retryClient.StandardClient(),
		logger:    logger,
	}
}

// Fetch downloads and parses the catalog.
func (c *Client) Fetch(ctx context.Context) (*List, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("catalog error",
			"url", c.endpoint,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return nil, fmt.Errorf("catalog request failed with status %d", resp.StatusCode)
	}

	var entries []domain.CatalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmpty
	}

	payloads := make([]domain.Payload, 0, len(entries))
	for _, e := range entries {
		if c.lowercase {
			e.Name = strings.ToLower(e.Name)
			e.Description = strings.ToLower(e.Description)
		}
		payloads = append(payloads, domain.NewPayload(c.cacheRoot, e))
	}

	c.logger.Debug("fetched catalog", "payloads", len(payloads))
	return NewList(payloads), nil
}
