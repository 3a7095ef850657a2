// Package storage persists registrar snapshots and exported event logs as
// content-addressed blobs.
//
// A blob is identified by the SHA-256 hash of its bytes and lives in one of
// two namespaces, interfaces.SnapshotType and interfaces.EventLogType. Every
// backend lays blobs out under "<type>/<hex id>", optionally below a
// backend-specific prefix.
//
// # Backends
//
//   - FileBackend: a local directory, written atomically
//   - BoltBackend: an embedded bbolt database, one bucket per type
//   - S3Backend: an S3 or S3-compatible bucket, read-only without credentials
//   - IPFSBackend: pinned IPFS objects indexed in the node's MFS
//   - VaultBackend: a KV v2 mount, authenticated by token or client certificate
//
// CachedBackend adds an LRU in front of any backend and MultiStorageBackend
// replicates writes across several of them. Reads through either verify that
// the returned bytes hash to the requested id.
//
// # Location URIs
//
// StorageBackendFactory builds backends from location URIs:
//
//	file:///var/lib/registrar/blobs
//	bolt:///var/lib/registrar/blobs.db?cache=64
//	s3://KEY:SECRET@bucket/prefix?region=eu-west-1&endpoint=http://minio:9000&path_style=true
//	ipfs://127.0.0.1:5001/name-registrar?timeout=30s
//	vault://vault.internal:8200/secret/registrar?token=...
//
// Example:
//
//	factory := storage.NewStorageBackendFactory(logger)
//	backend, err := factory.CreateMultiBackend(locations)
//	if err != nil {
//	    return err
//	}
//	id, err := backend.Store(ctx, snapshot, interfaces.SnapshotType)
package storage
