package storage

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru"
	"github.com/ruteri/name-registrar/interfaces"
)

type cacheKey struct {
	id          interfaces.ContentID
	contentType interfaces.ContentType
}

// CachedBackend keeps recently fetched or stored blobs in memory in front of
// a slower backend. Content is immutable per id so entries never go stale.
type CachedBackend struct {
	backend interfaces.StorageBackend
	cache   *lru.Cache
	log     *slog.Logger
}

func NewCachedBackend(backend interfaces.StorageBackend, size int, log *slog.Logger) (*CachedBackend, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("creating content cache: %w", err)
	}
	return &CachedBackend{backend: backend, cache: cache, log: log}, nil
}

func (c *CachedBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	key := cacheKey{id: id, contentType: contentType}
	if v, ok := c.cache.Get(key); ok {
		c.log.Debug("Content cache hit", slog.String("content_id", shortID(id)))
		return v.([]byte), nil
	}

	data, err := c.backend.Fetch(ctx, id, contentType)
	if err != nil {
		return nil, err
	}
	if err := verifyContent(id, data); err != nil {
		return nil, err
	}
	c.cache.Add(key, data)
	return data, nil
}

func (c *CachedBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id, err := c.backend.Store(ctx, data, contentType)
	if err != nil {
		return id, err
	}
	c.cache.Add(cacheKey{id: id, contentType: contentType}, data)
	return id, nil
}

func (c *CachedBackend) Available(ctx context.Context) bool {
	return c.backend.Available(ctx)
}

func (c *CachedBackend) Name() string {
	return "cached-" + c.backend.Name()
}

func (c *CachedBackend) LocationURI() string {
	return c.backend.LocationURI()
}

// Len returns the number of cached blobs.
func (c *CachedBackend) Len() int {
	return c.cache.Len()
}
