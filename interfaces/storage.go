package interfaces

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ContentID addresses a stored blob by the SHA-256 of its bytes. Snapshots
// and event exports are immutable, so the same state always maps to the
// same id on every backend.
type ContentID [32]byte

// ComputeID returns the id data is stored under.
func ComputeID(data []byte) ContentID {
	return ContentID(sha256.Sum256(data))
}

// ParseContentID decodes a 64 character hex id, with or without 0x.
func ParseContentID(s string) (ContentID, error) {
	var id ContentID
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return id, fmt.Errorf("%w: content id %q: %v", ErrInvalidParameter, s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("%w: content id must be %d bytes, got %d", ErrInvalidParameter, len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func (id ContentID) String() string {
	return hex.EncodeToString(id[:])
}

// ContentType separates the blobs a registrar persists. Backends keep one
// namespace (directory, bucket prefix, bolt bucket) per type.
type ContentType int

const (
	SnapshotType ContentType = iota
	EventLogType
)

// ContentTypes lists every namespace a backend has to provide.
var ContentTypes = []ContentType{SnapshotType, EventLogType}

func (ct ContentType) String() string {
	switch ct {
	case SnapshotType:
		return "snapshot"
	case EventLogType:
		return "events"
	default:
		return "unknown"
	}
}

// StorageSchemes are the URI schemes NewStorageBackendLocation accepts.
var StorageSchemes = []string{"file", "bolt", "s3", "ipfs", "vault"}

// StorageBackendLocation is a parsed storage URI of the form
// scheme://[auth@]host[/path][?params], e.g. s3://KEY:SECRET@bucket/prefix
// or bolt:///var/lib/registrar/state.db?cache=64.
type StorageBackendLocation struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
	Query  url.Values
	// Auth is the userinfo part, still percent-encoded.
	Auth string
}

func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if !slices.Contains(StorageSchemes, scheme) {
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, u.Scheme)
	}
	loc := StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   u.Host,
		Path:   u.Path,
		Query:  u.Query(),
	}
	if u.User != nil {
		loc.Auth = u.User.String()
	}
	return loc, nil
}

func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// GetParam returns the query parameter name, or "".
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool treats "true", "1" and "yes" as set.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	switch strings.ToLower(loc.Query.Get(name)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

var (
	ErrContentNotFound    = errors.New("content not found")
	ErrBackendUnavailable = errors.New("storage backend unavailable")
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend persists snapshots and event exports by content id.
type StorageBackend interface {
	// Fetch returns ErrContentNotFound when id is not stored under
	// contentType.
	Fetch(ctx context.Context, id ContentID, contentType ContentType) ([]byte, error)
	// Store is idempotent: storing the same bytes twice yields the same id.
	Store(ctx context.Context, data []byte, contentType ContentType) (ContentID, error)
	Available(ctx context.Context) bool
	Name() string
	LocationURI() string
}

// StorageBackendFactory turns configured storage URIs into backends.
type StorageBackendFactory interface {
	StorageBackendFor(location StorageBackendLocation) (StorageBackend, error)
	// CreateMultiBackend skips locations that cannot be opened and fails
	// only when none can.
	CreateMultiBackend(locations []StorageBackendLocation) (StorageBackend, error)
	// WithTLSAuth supplies the client certificate vault backends log in
	// with.
	WithTLSAuth(getCert func() (tls.Certificate, error)) StorageBackendFactory
}
