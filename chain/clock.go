package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ruteri/name-registrar/interfaces"
)

// ErrNoHeader is returned when the endpoint answers without a header.
var ErrNoHeader = errors.New("no block header returned")

// HeaderReader is the subset of ethclient.Client used by LedgerClock.
type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// LedgerClock reports the timestamp of the latest block, in milliseconds.
// Readings never go backwards, even across reorgs.
type LedgerClock struct {
	reader HeaderReader
	log    *slog.Logger

	mu   sync.Mutex
	last interfaces.Timestamp
}

func NewLedgerClock(reader HeaderReader, log *slog.Logger) *LedgerClock {
	return &LedgerClock{reader: reader, log: log}
}

// DialLedgerClock connects to the JSON-RPC endpoint at rpcAddr.
func DialLedgerClock(ctx context.Context, rpcAddr string, log *slog.Logger) (*LedgerClock, func(), error) {
	client, err := ethclient.DialContext(ctx, rpcAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing %s: %w", rpcAddr, err)
	}
	return NewLedgerClock(client, log), client.Close, nil
}

func (c *LedgerClock) Now(ctx context.Context) (interfaces.Timestamp, error) {
	header, err := c.reader.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("fetching latest header: %w", err)
	}
	if header == nil {
		return 0, ErrNoHeader
	}

	now := interfaces.Timestamp(header.Time * 1000)

	c.mu.Lock()
	defer c.mu.Unlock()
	if now < c.last {
		c.log.Warn("Ledger time went backwards, keeping last reading",
			slog.Uint64("block", header.Number.Uint64()),
			slog.Uint64("reported", uint64(now)),
			slog.Uint64("last", uint64(c.last)))
		return c.last, nil
	}
	c.last = now
	return now, nil
}

// SystemClock reads the local wall clock.
var SystemClock interfaces.Clock = interfaces.ClockFunc(func(context.Context) (interfaces.Timestamp, error) {
	return interfaces.Timestamp(time.Now().UnixMilli()), nil
})
