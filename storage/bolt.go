package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ruteri/name-registrar/interfaces"
	bolt "go.etcd.io/bbolt"
)

// BoltBackend keeps blobs in an embedded bbolt database, one bucket per
// content type.
type BoltBackend struct {
	db   *bolt.DB
	path string
	log  *slog.Logger
}

// NewBoltBackend opens (creating if needed) the database file at path.
func NewBoltBackend(path string, log *slog.Logger) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create dir for bolt database: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, ct := range interfaces.ContentTypes {
			if _, err := tx.CreateBucketIfNotExists([]byte(ct.String())); err != nil {
				return fmt.Errorf("could not create bucket %s: %w", ct, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltBackend{db: db, path: path, log: log}, nil
}

func (b *BoltBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(contentType.String()))
		if bucket == nil {
			return fmt.Errorf("unknown content type %d", contentType)
		}
		// Values are only valid for the life of the transaction.
		if v := bucket.Get(id[:]); v != nil {
			data = bytes.Clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, interfaces.ErrContentNotFound
	}
	return data, nil
}

func (b *BoltBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(contentType.String()))
		if bucket == nil {
			return fmt.Errorf("unknown content type %d", contentType)
		}
		return bucket.Put(id[:], data)
	})
	if err != nil {
		b.log.Error("Failed to store content in bolt", slog.String("path", b.path), "err", err)
		return id, err
	}
	b.log.Debug("Stored content in bolt", slog.String("content_id", shortID(id)), slog.Int("size", len(data)))
	return id, nil
}

func (b *BoltBackend) Available(ctx context.Context) bool {
	return b.db.View(func(*bolt.Tx) error { return nil }) == nil
}

func (b *BoltBackend) Name() string {
	return "bolt"
}

func (b *BoltBackend) LocationURI() string {
	return "bolt://" + b.path
}

// Close releases the database file lock.
func (b *BoltBackend) Close() error {
	return b.db.Close()
}
