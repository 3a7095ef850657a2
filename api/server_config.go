package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig contains all configuration parameters for the HTTP server.
type HTTPServerConfig struct {
	// ListenAddr is the address and port the HTTP server will listen on.
	ListenAddr string

	// MetricsAddr is the address and port for the metrics server.
	// If empty, metrics server will not be started.
	MetricsAddr string

	// DNSAddr is the UDP address of the TXT resolution front. Empty disables it.
	DNSAddr string

	// EnablePprof enables the pprof debugging API when true.
	EnablePprof bool

	// RequireSignatures rejects calls whose X-Signature does not recover to
	// the X-Caller address.
	RequireSignatures bool

	// SignatureWindow bounds the skew between X-Timestamp and the server
	// clock. Zero means DefaultSignatureWindow.
	SignatureWindow time.Duration

	Log *slog.Logger

	// DrainDuration is the time to wait after marking server not ready
	// before shutting down, allowing load balancers to detect the change.
	DrainDuration time.Duration

	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}
