package interfaces

import (
	"context"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Address identifies an account (owner, manager, admin, caller).
type Address = common.Address

// Hash is a 32-byte keccak256 digest.
type Hash = common.Hash

// Timestamp is a point in ledger time, in milliseconds.
type Timestamp uint64

// Duration is a span of ledger time, in milliseconds.
type Duration uint64

// Add returns t+d, reporting false when the result does not fit.
func (t Timestamp) Add(d Duration) (Timestamp, bool) {
	if uint64(d) > math.MaxUint64-uint64(t) {
		return 0, false
	}
	return t + Timestamp(d), true
}

// SaturatingAdd returns t+d clamped to the maximum timestamp.
func (t Timestamp) SaturatingAdd(d Duration) Timestamp {
	if sum, ok := t.Add(d); ok {
		return sum
	}
	return Timestamp(math.MaxUint64)
}

// Since returns t-earlier, or zero when earlier is in the future.
func (t Timestamp) Since(earlier Timestamp) Duration {
	if earlier > t {
		return 0
	}
	return Duration(t - earlier)
}

// Amount is a payment or price in the smallest currency unit. A nil Amount
// reads as zero.
type Amount = *uint256.Int

// AmountOrZero returns a, or a fresh zero when a is nil.
func AmountOrZero(a Amount) Amount {
	if a == nil {
		return new(uint256.Int)
	}
	return a
}

// ZeroAddress is never a valid owner, manager or admin.
var ZeroAddress = Address{}

// PriceOracle quotes registration and renewal fees.
type PriceOracle interface {
	// Price is deterministic and non-decreasing in duration.
	Price(name string, duration Duration) (*uint256.Int, error)
}

// Clock supplies the current ledger time.
type Clock interface {
	Now(ctx context.Context) (Timestamp, error)
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func(ctx context.Context) (Timestamp, error)

func (f ClockFunc) Now(ctx context.Context) (Timestamp, error) {
	return f(ctx)
}

// FixedClock always reports the same instant. Useful for tests and replays.
func FixedClock(t Timestamp) Clock {
	return ClockFunc(func(context.Context) (Timestamp, error) { return t, nil })
}
