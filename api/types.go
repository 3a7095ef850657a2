package api

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/ruteri/name-registrar/interfaces"
)

// Request headers carrying the caller identity and the attached payment.
// X-Timestamp is the signing time in unix milliseconds and is required
// alongside X-Signature.
const (
	HeaderCaller    = "X-Caller"
	HeaderPayment   = "X-Payment"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
)

// DefaultSignatureWindow is how far X-Timestamp may drift from the server
// clock.
const DefaultSignatureWindow = 5 * time.Minute

// Route prefixes served by the HTTP transport.
const (
	CallPath           = "/api/call/"
	AdminSnapshotPath  = "/api/admin/snapshot"
	AdminEventsPath    = "/api/admin/events/export"
	SignatureLength    = crypto.SignatureLength
	MaxRequestBodySize = 1 << 20
)

// ErrorBody is the wire form of a failed call.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Response is the envelope every call endpoint returns. Exactly one of OK
// and Error is set.
type Response struct {
	OK    json.RawMessage `json:"ok,omitempty"`
	Error *ErrorBody      `json:"error,omitempty"`
}

// RemoteError is a failure reported by the server. It unwraps to the
// matching interfaces sentinel so callers can use errors.Is.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return interfaces.ErrorForKind(e.Kind)
}

// Err returns the envelope failure as a *RemoteError, or nil on success.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}
	return &RemoteError{Kind: r.Error.Kind, Message: r.Error.Message}
}

// NewErrorResponse builds the failure envelope for err.
func NewErrorResponse(err error) Response {
	return Response{Error: &ErrorBody{Kind: interfaces.ErrorKind(err), Message: err.Error()}}
}

// SnapshotResponse reports where a snapshot or event export was stored.
type SnapshotResponse struct {
	ContentID string               `json:"content_id"`
	Backends  []string             `json:"backends"`
	TakenAt   interfaces.Timestamp `json:"taken_at"`
}

// SigningDigest is the hash a caller signs to authenticate a call:
//
//	keccak256(keccak256(method) || keccak256(body) || keccak256(payment) || uint64be(timestamp))
//
// payment is the decimal amount, zero when nil.
func SigningDigest(method string, body []byte, payment interfaces.Amount, timestamp int64) []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(timestamp))
	return crypto.Keccak256(
		crypto.Keccak256([]byte(method)),
		crypto.Keccak256(body),
		crypto.Keccak256([]byte(interfaces.AmountOrZero(payment).Dec())),
		ts[:],
	)
}

// ParseTimestamp decodes the X-Timestamp header.
func ParseTimestamp(header string) (int64, error) {
	if header == "" {
		return 0, fmt.Errorf("%w: missing %s header", interfaces.ErrUnauthorized, HeaderTimestamp)
	}
	ts, err := strconv.ParseInt(header, 10, 64)
	if err != nil || ts <= 0 {
		return 0, fmt.Errorf("%w: malformed %s header %q", interfaces.ErrInvalidParameter, HeaderTimestamp, header)
	}
	return ts, nil
}

// ParsePayment decodes the decimal X-Payment header. An empty value is zero.
func ParsePayment(header string) (interfaces.Amount, error) {
	if header == "" {
		return uint256.NewInt(0), nil
	}
	v, err := uint256.FromDecimal(header)
	if err != nil {
		return nil, fmt.Errorf("%w: payment %q: %v", interfaces.ErrInvalidParameter, header, err)
	}
	return v, nil
}
