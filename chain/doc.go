// Package chain sources ledger time for the registrar.
//
// Commitment windows, expiries and grace periods are all evaluated against
// the timestamp returned by an interfaces.Clock. LedgerClock reads it from the
// latest block header of an Ethereum JSON-RPC endpoint, so a deployment can
// anchor registrations to an external chain. SystemClock is the wall-clock
// fallback used when no RPC endpoint is configured.
package chain
