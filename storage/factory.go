package storage

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ruteri/name-registrar/interfaces"
)

const defaultIPFSTimeout = 30 * time.Second

// StorageBackendFactory creates storage backends from location URIs and
// combines them into multi-backends for redundant snapshot storage.
type StorageBackendFactory struct {
	log         *slog.Logger
	tlsAuthCert func() (tls.Certificate, error)
}

func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{log: logger}
}

// WithTLSAuth returns a factory whose Vault backends log in with the client
// certificate returned by getCert when no token is given.
func (sf *StorageBackendFactory) WithTLSAuth(getCert func() (tls.Certificate, error)) interfaces.StorageBackendFactory {
	return &StorageBackendFactory{log: sf.log, tlsAuthCert: getCert}
}

// StorageBackendFor creates a storage backend from a location URI of the
// form [scheme]://[auth@]host[:port][/path][?params].
//
// Supported schemes:
//   - file:///var/lib/registrar/blobs
//   - bolt:///var/lib/registrar/blobs.db
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-west-2&endpoint=...&path_style=true
//   - ipfs://host:5001/root?timeout=30s
//   - vault://host:8200/mount/path?token=...&insecure=true
//
// Any location accepts cache=N to keep the N most recent blobs in memory.
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating storage backend", slog.String("scheme", location.Scheme), slog.String("host", location.Host))

	var (
		backend interfaces.StorageBackend
		err     error
	)
	switch strings.ToLower(location.Scheme) {
	case "file":
		backend, err = sf.createFileBackend(location)
	case "bolt":
		backend, err = sf.createBoltBackend(location)
	case "s3":
		backend, err = sf.createS3Backend(location)
	case "ipfs":
		backend, err = sf.createIPFSBackend(location)
	case "vault":
		backend, err = sf.createVaultBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme %q", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
	if err != nil {
		return nil, err
	}

	if size := location.GetParam("cache"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: invalid cache size %q", interfaces.ErrInvalidLocationURI, size)
		}
		return NewCachedBackend(backend, n, sf.log)
	}
	return backend, nil
}

// CreateMultiBackend aggregates every location that yields a valid backend.
// It fails only if none do.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("location", redactLocation(location)))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

func localPath(location interfaces.StorageBackendLocation) (string, error) {
	p := location.Path
	if location.Host != "" {
		// file://./relative/dir
		p = location.Host + "/" + strings.TrimPrefix(p, "/")
	}
	if p == "" {
		return "", fmt.Errorf("%w: empty path in %s URI", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
	return p, nil
}

func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	p, err := localPath(location)
	if err != nil {
		return nil, err
	}
	return NewFileBackend(p, sf.log)
}

func (sf *StorageBackendFactory) createBoltBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	p, err := localPath(location)
	if err != nil {
		return nil, err
	}
	return NewBoltBackend(p, sf.log)
}

func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	cfg := S3Config{
		Bucket:    location.Host,
		Prefix:    strings.TrimPrefix(location.Path, "/"),
		Region:    location.GetParam("region"),
		Endpoint:  location.GetParam("endpoint"),
		PathStyle: location.GetParamBool("path_style"),
	}
	if location.Auth != "" {
		accessKey, secretKey, err := splitAuth(location.Auth)
		if err != nil {
			return nil, err
		}
		cfg.AccessKey, cfg.SecretKey = accessKey, secretKey
	} else {
		sf.log.Debug("No S3 credentials provided, backend is read-only", slog.String("bucket", cfg.Bucket))
	}
	return NewS3Backend(cfg, sf.log)
}

func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	u := url.URL{Host: location.Host}
	port := u.Port()
	if port == "" {
		port = "5001"
	}

	timeout := defaultIPFSTimeout
	if raw := location.GetParam("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid IPFS timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
		timeout = parsed
	}

	return NewIPFSBackend(u.Hostname(), port, location.Path, timeout, sf.log)
}

// createVaultBackend expects vault://host:port/<mount>/<path>. The KV mount
// is the first path segment.
func (sf *StorageBackendFactory) createVaultBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	segments := strings.SplitN(strings.Trim(location.Path, "/"), "/", 2)
	if segments[0] == "" {
		return nil, fmt.Errorf("%w: vault URI needs a mount path", interfaces.ErrInvalidLocationURI)
	}
	mount := segments[0]
	dataPath := ""
	if len(segments) == 2 {
		dataPath = segments[1]
	}

	scheme := "https"
	if location.GetParamBool("insecure") {
		scheme = "http"
	}
	address := scheme + "://" + location.Host

	auth := VaultAuth{Token: location.GetParam("token")}
	if auth.Token == "" {
		if sf.tlsAuthCert == nil {
			return nil, fmt.Errorf("%w: vault backend needs token= or TLS client authentication", interfaces.ErrInvalidLocationURI)
		}
		cert, err := sf.tlsAuthCert()
		if err != nil {
			return nil, fmt.Errorf("loading vault client certificate: %w", err)
		}
		auth.ClientCert = &cert
	}

	return NewVaultBackend(address, mount, dataPath, auth, sf.log)
}

func splitAuth(auth string) (string, string, error) {
	user, pass, ok := strings.Cut(auth, ":")
	if !ok {
		return "", "", fmt.Errorf("%w: credentials must be KEY:SECRET", interfaces.ErrInvalidLocationURI)
	}
	var err error
	if user, err = url.PathUnescape(user); err != nil {
		return "", "", fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}
	if pass, err = url.PathUnescape(pass); err != nil {
		return "", "", fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}
	return user, pass, nil
}

// redactLocation drops credentials before a location is logged.
func redactLocation(location interfaces.StorageBackendLocation) string {
	u, err := url.Parse(location.Raw)
	if err != nil {
		return location.Scheme + "://"
	}
	u.User = nil
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "redacted")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
