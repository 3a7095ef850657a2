/*
Package httpserver exposes the registrar over HTTP.

# Call API

  - POST /api/call/{method} - execute one typed operation. The body holds
    the operation parameters as JSON. X-Caller names the caller, X-Payment
    the attached amount and X-Signature an optional secp256k1 signature over
    keccak256(method || body). With signature enforcement enabled, mutating
    calls without a matching signature are rejected with 401.

Responses use the api.Response envelope. Error kinds map to status codes:

  - InvalidParameter, DurationTooShort: 400
  - Unauthorized: 403
  - InsufficientPayment: 402
  - NotFound, CommitmentNotFound: 404
  - ParentExpired: 410
  - commitment and availability conflicts: 409
  - anything else: 500

# Admin API

  - POST /api/admin/snapshot - store a full state snapshot on the storage
    backends and return its content id
  - POST /api/admin/events/export - store the retained event log

Admin requests are signed over the request path instead of a method name
and must come from the protocol admin.

# Health Endpoints

  - GET /livez - liveness probe
  - GET /readyz - readiness probe, 503 while draining
  - GET /drain, GET /undrain - toggle readiness for load balancers
  - /debug/* - pprof, when enabled
*/
package httpserver
