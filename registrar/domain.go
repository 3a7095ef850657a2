package registrar

import (
	"github.com/ruteri/name-registrar/interfaces"
)

// Status is the lifecycle phase of a domain at a given instant.
type Status int

const (
	StatusUnregistered Status = iota
	StatusActive
	StatusGrace
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusGrace:
		return "Grace"
	default:
		return "Unregistered"
	}
}

// MarshalText renders the status name on the wire.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Live reports whether the name is still held (Active or Grace).
func (s Status) Live() bool {
	return s != StatusUnregistered
}

// Domain is a registered name. Epoch counts registrations of the name and
// ties subdomains to the registration they were created under.
type Domain struct {
	Name         string               `json:"name"`
	ID           interfaces.Hash      `json:"id"`
	Owner        interfaces.Address   `json:"owner"`
	Resolver     interfaces.Address   `json:"resolver"`
	RegisteredAt interfaces.Timestamp `json:"registered_at"`
	Expiry       interfaces.Timestamp `json:"expiry"`
	Epoch        uint64               `json:"epoch"`
}

// StatusAt derives the status lazily from the expiry and the grace period.
func (d *Domain) StatusAt(now interfaces.Timestamp, grace interfaces.Duration) Status {
	if d == nil {
		return StatusUnregistered
	}
	if now < d.Expiry {
		return StatusActive
	}
	if now < d.Expiry.SaturatingAdd(grace) {
		return StatusGrace
	}
	return StatusUnregistered
}

// Call carries the already-authenticated identity, the attached payment and
// the ledger time sampled once for the whole operation.
type Call struct {
	Caller  interfaces.Address
	Payment interfaces.Amount
	Now     interfaces.Timestamp
}
