package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/ruteri/name-registrar/api"
	"github.com/ruteri/name-registrar/interfaces"
)

// RegistrarAPI is the client surface used by the command line tools.
type RegistrarAPI interface {
	// Call executes op with the given payment and decodes the result into
	// out, which may be nil.
	Call(ctx context.Context, op api.Operation, payment *uint256.Int, out any) error
	Snapshot(ctx context.Context) (*api.SnapshotResponse, error)
	ExportEvents(ctx context.Context) (*api.SnapshotResponse, error)
}

// RegistrarClient talks to the registrar HTTP API. Every request carries the
// caller address and, when a private key is configured, a timestamped
// signature over SigningDigest.
type RegistrarClient struct {
	baseURL    string
	caller     interfaces.Address
	privateKey *ecdsa.PrivateKey
	httpClient *http.Client

	mu            sync.Mutex
	lastTimestamp int64
}

// NewRegistrarClient creates a client acting as the holder of privateKey.
// The request timeout defaults to 30 seconds.
func NewRegistrarClient(baseURL string, privateKey *ecdsa.PrivateKey, timeout ...time.Duration) *RegistrarClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	c := &RegistrarClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		privateKey: privateKey,
		httpClient: &http.Client{Timeout: clientTimeout},
	}
	if privateKey != nil {
		c.caller = crypto.PubkeyToAddress(privateKey.PublicKey)
	}
	return c
}

// NewUnsignedClient creates a client that claims to be caller without
// signing. Only useful against servers that do not require signatures.
func NewUnsignedClient(baseURL string, caller interfaces.Address, timeout ...time.Duration) *RegistrarClient {
	c := NewRegistrarClient(baseURL, nil, timeout...)
	c.caller = caller
	return c
}

// Caller is the address requests are sent on behalf of.
func (c *RegistrarClient) Caller() interfaces.Address {
	return c.caller
}

func (c *RegistrarClient) Call(ctx context.Context, op api.Operation, payment *uint256.Int, out any) error {
	body, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("encoding %s parameters: %w", op.Method(), err)
	}
	return c.do(ctx, api.CallPath+op.Method(), op.Method(), body, payment, out)
}

func (c *RegistrarClient) Snapshot(ctx context.Context) (*api.SnapshotResponse, error) {
	var resp api.SnapshotResponse
	if err := c.do(ctx, api.AdminSnapshotPath, api.AdminSnapshotPath, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RegistrarClient) ExportEvents(ctx context.Context) (*api.SnapshotResponse, error) {
	var resp api.SnapshotResponse
	if err := c.do(ctx, api.AdminEventsPath, api.AdminEventsPath, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RegistrarClient) do(ctx context.Context, path, method string, body []byte, payment *uint256.Int, out any) error {
	req, err := c.newSignedRequest(ctx, path, method, body, payment)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var envelope api.Response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%s returned %d with unparseable body: %s", method, resp.StatusCode, string(raw))
	}
	if err := envelope.Err(); err != nil {
		return err
	}
	if out == nil || len(envelope.OK) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.OK, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

// nextTimestamp returns the wall clock in milliseconds, bumped past the
// previous value so concurrent requests never share a timestamp.
func (c *RegistrarClient) nextTimestamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := time.Now().UnixMilli()
	if ts <= c.lastTimestamp {
		ts = c.lastTimestamp + 1
	}
	c.lastTimestamp = ts
	return ts
}

// newSignedRequest builds a POST request with the caller and payment headers
// and, when a key is available, the X-Timestamp and X-Signature headers.
func (c *RegistrarClient) newSignedRequest(ctx context.Context, path, method string, body []byte, payment *uint256.Int) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderCaller, c.caller.Hex())
	if payment != nil {
		req.Header.Set(api.HeaderPayment, payment.Dec())
	}

	if c.privateKey != nil {
		ts := c.nextTimestamp()
		sig, err := crypto.Sign(api.SigningDigest(method, body, payment, ts), c.privateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
		req.Header.Set(api.HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(api.HeaderSignature, hexutil.Encode(sig))
	}
	return req, nil
}

// Commit is a convenience wrapper submitting a commitment hash.
func (c *RegistrarClient) Commit(ctx context.Context, hash interfaces.Hash) error {
	return c.Call(ctx, &api.Commit{Hash: hash}, nil, nil)
}

// MakeCommitment asks the server to compute a commitment hash.
func (c *RegistrarClient) MakeCommitment(ctx context.Context, op *api.MakeCommitment) (interfaces.Hash, error) {
	var h interfaces.Hash
	err := c.Call(ctx, op, nil, &h)
	return h, err
}

// Price quotes the fee for name and duration.
func (c *RegistrarClient) Price(ctx context.Context, name string, duration interfaces.Duration) (*uint256.Int, error) {
	price := new(uint256.Int)
	if err := c.Call(ctx, &api.ReadDomainPrice{Name: name, Duration: duration}, nil, price); err != nil {
		return nil, err
	}
	return price, nil
}
