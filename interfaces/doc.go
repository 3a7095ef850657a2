// Package interfaces defines core types, errors and interfaces for the name
// registrar, separating interface definitions from implementations.
//
// # Naming
//
// Names are dot-separated labels ending in the protocol TLD ("example.vne").
// NormalizeName canonicalizes user input, and NameHash derives the stable
// 32-byte node identifier used for content addressing and events.
//
// # Time and amounts
//
// Timestamp and Duration are milliseconds of ledger time. Prices and payments
// are 256-bit unsigned integers (holiman/uint256).
//
// # Collaborators
//
//   - PriceOracle: quotes the fee for a name and duration
//   - Clock: supplies the current ledger time once per call
//   - EventSink: receives an event for every successful mutation
//   - StorageBackend: content-addressed storage for snapshots and event logs
//
// # Errors
//
// Every failure returned by the registrar wraps exactly one of the sentinel
// errors in errors.go, so callers can match with errors.Is and transports can
// map failures with ErrorKind.
package interfaces
