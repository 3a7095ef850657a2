package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/name-registrar/api"
	"github.com/ruteri/name-registrar/interfaces"
)

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

var errMissingSignature = errors.New("missing or invalid signature")

// Handler serves POST /api/call/{method}.
type Handler struct {
	dispatcher        *api.Dispatcher
	requireSignatures bool
	replay            *replayGuard
	log               *slog.Logger
}

// NewHandler creates the call handler. With cfg.RequireSignatures set,
// mutating calls must carry an X-Signature recovering to X-Caller.
func NewHandler(dispatcher *api.Dispatcher, cfg *api.HTTPServerConfig) *Handler {
	window := cfg.SignatureWindow
	if window <= 0 {
		window = api.DefaultSignatureWindow
	}
	return &Handler{
		dispatcher:        dispatcher,
		requireSignatures: cfg.RequireSignatures,
		replay:            newReplayGuard(window),
		log:               cfg.Log,
	}
}

// HandleCall decodes the typed operation named in the URL, authenticates the
// caller and executes it.
//
// URL format: POST /api/call/{method}
// Headers:
//   - X-Caller: hex address the call is made on behalf of
//   - X-Payment: decimal amount attached to the call (optional)
//   - X-Timestamp: signing time in unix milliseconds (with X-Signature)
//   - X-Signature: hex secp256k1 signature over api.SigningDigest
//
// Response: {"ok": <result>} or {"error": {"kind": ..., "message": ...}}
func (h *Handler) HandleCall(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")

	body, err := io.ReadAll(io.LimitReader(r.Body, api.MaxRequestBodySize))
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("%w: reading body: %v", interfaces.ErrInvalidParameter, err)})
		return
	}

	op, err := api.DecodeOperation(method, body)
	if err != nil {
		h.writeError(w, err)
		return
	}

	payment, err := api.ParsePayment(r.Header.Get(api.HeaderPayment))
	if err != nil {
		h.writeError(w, err)
		return
	}

	caller, err := h.authenticate(r, method, body, payment, op.Mutating())
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.dispatcher.Execute(r.Context(), api.Call{Caller: caller, Payment: payment, Op: op})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, result)
}

// authenticate resolves the caller of a request. A present signature is
// always checked, together with its timestamp; it is mandatory for
// privileged requests when the handler enforces signatures.
func (h *Handler) authenticate(r *http.Request, method string, body []byte, payment interfaces.Amount, privileged bool) (interfaces.Address, error) {
	callerHex := r.Header.Get(api.HeaderCaller)
	var caller interfaces.Address
	if callerHex != "" {
		if !common.IsHexAddress(callerHex) {
			return caller, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("%w: malformed %s header", interfaces.ErrInvalidParameter, api.HeaderCaller)}
		}
		caller = common.HexToAddress(callerHex)
	}

	sigHex := r.Header.Get(api.HeaderSignature)
	if sigHex == "" {
		if privileged && h.requireSignatures {
			return caller, &RequestError{StatusCode: http.StatusUnauthorized, Err: fmt.Errorf("%w: %v", interfaces.ErrUnauthorized, errMissingSignature)}
		}
		return caller, nil
	}

	ts, err := api.ParseTimestamp(r.Header.Get(api.HeaderTimestamp))
	if err != nil {
		return caller, &RequestError{StatusCode: http.StatusUnauthorized, Err: err}
	}

	signer, err := RecoverSigner(api.SigningDigest(method, body, payment, ts), sigHex)
	if err != nil {
		h.log.Warn("Authentication failed: invalid signature", slog.String("method", method), "err", err)
		return caller, &RequestError{StatusCode: http.StatusUnauthorized, Err: fmt.Errorf("%w: %v", interfaces.ErrUnauthorized, err)}
	}
	if signer != caller {
		h.log.Warn("Authentication failed: signer mismatch", slog.String("signer", signer.Hex()), slog.String("caller", caller.Hex()))
		return caller, &RequestError{StatusCode: http.StatusUnauthorized, Err: fmt.Errorf("%w: signature does not match %s", interfaces.ErrUnauthorized, api.HeaderCaller)}
	}
	if err := h.replay.check(signer, ts); err != nil {
		h.log.Warn("Authentication failed: stale or replayed request", slog.String("method", method), slog.String("caller", caller.Hex()), "err", err)
		return caller, &RequestError{StatusCode: http.StatusUnauthorized, Err: err}
	}
	return caller, nil
}

// RecoverSigner returns the address that produced sigHex over digest. Both
// 0/1 and 27/28 recovery ids are accepted.
func RecoverSigner(digest []byte, sigHex string) (interfaces.Address, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("decoding signature: %w", err)
	}
	if len(sig) != api.SignatureLength {
		return interfaces.Address{}, fmt.Errorf("signature must be %d bytes, got %d", api.SignatureLength, len(sig))
	}
	sig = bytes.Clone(sig)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("recovering signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// StatusForKind maps an error kind onto the HTTP status returned with it.
func StatusForKind(kind string) int {
	switch kind {
	case "":
		return http.StatusOK
	case "InvalidParameter", "DurationTooShort":
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusForbidden
	case "InsufficientPayment":
		return http.StatusPaymentRequired
	case "NotFound", "CommitmentNotFound":
		return http.StatusNotFound
	case "ParentExpired":
		return http.StatusGone
	case "DuplicateCommitment", "CommitmentTooYoung", "CommitmentExpired",
		"NameUnavailable", "NameNotActive", "ParentNotActive":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := StatusForKind(interfaces.ErrorKind(err))
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		status = reqErr.StatusCode
	}
	writeJSON(w, status, api.NewErrorResponse(err), h.log)
}

func (h *Handler) writeResult(w http.ResponseWriter, result any) {
	encoded, err := json.Marshal(result)
	if err != nil {
		h.log.Error("Failed to encode result", "err", err)
		h.writeError(w, fmt.Errorf("encoding result: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, api.Response{OK: encoded}, h.log)
}

func writeJSON(w http.ResponseWriter, status int, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "err", err)
	}
}
