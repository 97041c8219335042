package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/unknproject/loader/internal/domain"
)

// Registry holds the most recently fetched catalog.
type Registry struct {
	client *Client
	logger *slog.Logger

	mu        sync.RWMutex
	list      *List
	fetchedAt time.Time
	lastErr   error
}

func NewRegistry(client *Client, logger *slog.Logger) *Registry {
	return &Registry{
		client: client,
		logger: logger,
		list:   NewList(nil),
	}
}

// Refresh re-downloads the catalog. On failure the previous list is kept and
// the error is remembered for Err.
func (r *Registry) Refresh(ctx context.Context) error {
	list, err := r.client.Fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastErr = err
	if err != nil {
		r.logger.Error("failed to fetch catalog", "err", err)
		return err
	}
	r.list = list
	r.fetchedAt = time.Now()
	r.logger.Info("catalog loaded", "payloads", list.Len())
	return nil
}

// List returns the current catalog, empty before the first successful refresh.
func (r *Registry) List() *List {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list
}

// Err returns the error of the last refresh, if it failed.
func (r *Registry) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

func (r *Registry) FetchedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fetchedAt
}

// Lookup finds a payload by name in the current catalog.
func (r *Registry) Lookup(name string) (domain.Payload, error) {
	p, ok := r.List().ByName(name)
	if !ok {
		return domain.Payload{}, domain.ErrPayloadNotFound{Name: name}
	}
	return p, nil
}
