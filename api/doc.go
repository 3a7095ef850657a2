/*
Package api defines the closed set of registrar operations and the
dispatcher that executes them.

Each wire method (readAdmin, makeCommitment, register, setContentHash, ...)
is a typed struct implementing Operation. DecodeOperation maps a method name
and its JSON parameters onto that struct, and Dispatcher.Execute routes it to
the registrar with a single clock sample per call.

# Wire format

Transports exchange a Response envelope: {"ok": <result>} on success, or
{"error": {"kind": "NameUnavailable", "message": "..."}} on failure. The
caller identity travels in the X-Caller header, the attached payment in
X-Payment, and an optional secp256k1 signature in X-Signature. The
signature covers the method, body, payment and the X-Timestamp header (see
SigningDigest); servers reject timestamps outside their window and any
timestamp not newer than the caller's previous one.

The clients subpackage provides a Go client for the HTTP transport.
*/
package api
