package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/name-registrar/api"
	"github.com/ruteri/name-registrar/common"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		DNSAddr:                  cCtx.String(DNSAddrFlag.Name),
		RequireSignatures:        cCtx.Bool(RequireSignaturesFlag.Name),
		SignatureWindow:          cCtx.Duration(SignatureWindowFlag.Name),
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var RpcAddrFlag = &cli.StringFlag{
	Name:  "rpc-addr",
	Usage: "Ethereum JSON-RPC endpoint whose latest block time is used as ledger time. Local clock if empty",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var DNSAddrFlag = &cli.StringFlag{
	Name:  "dns-addr",
	Usage: "UDP address to answer TXT queries on, e.g. 127.0.0.1:5353. Disabled if empty",
}

var ConfigFileFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "YAML deployment file with protocol, pricing and storage sections",
}

var AdminFlag = &cli.StringFlag{
	Name:  "admin",
	Usage: "protocol admin address, overrides the config file",
}

var StorageFlag = &cli.StringSliceFlag{
	Name:  "storage",
	Usage: "storage location URI for snapshots and event exports, repeatable (file://, bolt://, s3://, ipfs://, vault://)",
}

var RestoreSnapshotFlag = &cli.StringFlag{
	Name:  "restore-snapshot",
	Usage: "content id of a snapshot to restore from storage on startup",
}

var SnapshotOnExitFlag = &cli.BoolFlag{
	Name:  "snapshot-on-exit",
	Value: true,
	Usage: "store a final snapshot when shutting down (requires --storage)",
}

var RequireSignaturesFlag = &cli.BoolFlag{
	Name:  "require-signatures",
	Value: false,
	Usage: "require a secp256k1 signature by X-Caller on every mutating call",
}

var SignatureWindowFlag = &cli.DurationFlag{
	Name:  "signature-window",
	Value: api.DefaultSignatureWindow,
	Usage: "maximum skew between a signed X-Timestamp and the server clock",
}

var ServerURLFlag = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8080",
	EnvVars: []string{"REGISTRAR_URL"},
	Usage:   "registrar API base URL",
}

var PrivateKeyFlag = &cli.StringFlag{
	Name:    "private-key",
	EnvVars: []string{"REGISTRAR_PRIVATE_KEY"},
	Usage:   "hex secp256k1 key to sign calls with; the caller is derived from it",
}

var CallerFlag = &cli.StringFlag{
	Name:  "caller",
	Usage: "caller address for unsigned calls, ignored with --private-key",
}

var SecretPassphraseFlag = &cli.StringFlag{
	Name:    "secret-passphrase",
	EnvVars: []string{"REGISTRAR_SECRET_PASSPHRASE"},
	Usage:   "derive the commitment secret from this passphrase (argon2id over name and owner)",
}

var PaymentFlag = &cli.StringFlag{
	Name:  "payment",
	Usage: "decimal amount attached to the call",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
