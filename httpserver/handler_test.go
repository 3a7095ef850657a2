package httpserver

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/ruteri/name-registrar/api"
	"github.com/ruteri/name-registrar/api/clients"
	"github.com/ruteri/name-registrar/events"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/registrar"
	"github.com/ruteri/name-registrar/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server   *Server
	handler  *Handler
	clock    *mutableClock
	recorder *events.Recorder
}

type mutableClock struct {
	now interfaces.Timestamp
}

func (c *mutableClock) Now(context.Context) (interfaces.Timestamp, error) {
	return c.now, nil
}

func newTestEnv(t *testing.T, admin interfaces.Address, requireSignatures bool) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	recorder := events.NewRecorder(0)
	reg, err := registrar.New(registrar.Options{
		Config: registrar.DefaultConfig(admin),
		Sink:   recorder,
		Log:    logger,
	})
	require.NoError(t, err)

	clock := &mutableClock{now: 10_000_000}
	dispatcher := api.NewDispatcher(api.DispatcherOpts{
		Registrar: reg,
		Clock:     clock,
		Recorder:  recorder,
		Log:       logger,
	})

	fileBackend, err := storage.NewFileBackend(t.TempDir(), logger)
	require.NoError(t, err)

	cfg := &api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      logger,
		RequireSignatures:        requireSignatures,
		GracefulShutdownDuration: time.Second,
	}
	handler := NewHandler(dispatcher, cfg)
	adminHandler := NewAdminHandler(handler, fileBackend, recorder, logger)

	srv, err := New(cfg, handler, adminHandler, nil)
	require.NoError(t, err)

	return &testEnv{server: srv, handler: handler, clock: clock, recorder: recorder}
}

// signedHeaders signs a call at ts with key.
func signedHeaders(t *testing.T, key *ecdsa.PrivateKey, method string, body []byte, payment string, ts int64) map[string]string {
	t.Helper()
	amount, err := api.ParsePayment(payment)
	require.NoError(t, err)
	sig, err := crypto.Sign(api.SigningDigest(method, body, amount, ts), key)
	require.NoError(t, err)
	headers := map[string]string{
		api.HeaderCaller:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		api.HeaderTimestamp: strconv.FormatInt(ts, 10),
		api.HeaderSignature: hexutil.Encode(sig),
	}
	if payment != "" {
		headers[api.HeaderPayment] = payment
	}
	return headers
}

func (e *testEnv) post(t *testing.T, path string, body []byte, headers map[string]string) (*httptest.ResponseRecorder, api.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)

	var resp api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestHandleCall_ReadsAndErrors(t *testing.T) {
	admin := common.HexToAddress("0x00000000000000000000000000000000000000ad")
	env := newTestEnv(t, admin, false)

	w, resp := env.post(t, "/api/call/readAdmin", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)
	var got common.Address
	require.NoError(t, json.Unmarshal(resp.OK, &got))
	assert.Equal(t, admin, got)

	w, resp = env.post(t, "/api/call/currentTimestamp", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `10000000`, string(resp.OK))

	w, resp = env.post(t, "/api/call/noSuchMethod", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidParameter", resp.Error.Kind)

	w, resp = env.post(t, "/api/call/readDomain", []byte(`{"name":"ghost.vne"}`), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", resp.Error.Kind)

	w, resp = env.post(t, "/api/call/changeManager", []byte(`{"new_manager":"0x00000000000000000000000000000000000000b2"}`),
		map[string]string{api.HeaderCaller: "0x00000000000000000000000000000000000000b2"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Unauthorized", resp.Error.Kind)

	w, _ = env.post(t, "/api/call/readAdmin", nil, map[string]string{api.HeaderCaller: "not-an-address"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = env.post(t, "/api/call/readAdmin", nil, map[string]string{api.HeaderPayment: "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidParameter", resp.Error.Kind)
}

func TestHandleCall_SignatureEnforcement(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	caller := crypto.PubkeyToAddress(key.PublicKey)
	env := newTestEnv(t, caller, true)
	now := time.Now().UnixMilli()

	body := []byte(`{"value":1000}`)

	// Unsigned mutation is refused before reaching the registrar.
	w, resp := env.post(t, "/api/call/setGracePeriod", body, map[string]string{api.HeaderCaller: caller.Hex()})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", resp.Error.Kind)

	// Reads stay open.
	w, _ = env.post(t, "/api/call/readGracePeriod", nil, map[string]string{api.HeaderCaller: caller.Hex()})
	assert.Equal(t, http.StatusOK, w.Code)

	// A signature over a different body does not authenticate.
	headers := signedHeaders(t, key, "setGracePeriod", body, "", now)
	w, _ = env.post(t, "/api/call/setGracePeriod", []byte(`{"value":1}`), headers)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Neither does one without its timestamp.
	noTimestamp := signedHeaders(t, key, "setGracePeriod", body, "", now)
	delete(noTimestamp, api.HeaderTimestamp)
	w, _ = env.post(t, "/api/call/setGracePeriod", body, noTimestamp)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp = env.post(t, "/api/call/setGracePeriod", body, headers)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)

	w, resp = env.post(t, "/api/call/readGracePeriod", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `1000`, string(resp.OK))
}

func TestHandleCall_RejectsReplayedSignatures(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	env := newTestEnv(t, crypto.PubkeyToAddress(key.PublicKey), true)

	serverNow := time.UnixMilli(50_000_000)
	env.handler.replay.now = func() time.Time { return serverNow }
	ts := serverNow.UnixMilli()

	body := []byte(`{"value":1000}`)
	headers := signedHeaders(t, key, "setGracePeriod", body, "", ts)

	w, _ := env.post(t, "/api/call/setGracePeriod", body, headers)
	require.Equal(t, http.StatusOK, w.Code)

	// The identical request is refused while still inside the window.
	w, resp := env.post(t, "/api/call/setGracePeriod", body, headers)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", resp.Error.Kind)

	// Older timestamps from the same caller are refused too.
	w, _ = env.post(t, "/api/call/setGracePeriod", body, signedHeaders(t, key, "setGracePeriod", body, "", ts-1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Much later, the captured request is outside the window.
	serverNow = serverNow.Add(10_000 * time.Second)
	w, _ = env.post(t, "/api/call/setGracePeriod", body, headers)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Timestamps from the future are refused.
	future := serverNow.Add(api.DefaultSignatureWindow + time.Second).UnixMilli()
	w, _ = env.post(t, "/api/call/setGracePeriod", body, signedHeaders(t, key, "setGracePeriod", body, "", future))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A fresh signature is accepted again.
	w, _ = env.post(t, "/api/call/setGracePeriod", body, signedHeaders(t, key, "setGracePeriod", body, "", serverNow.UnixMilli()))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleCall_SignatureCoversPayment(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	env := newTestEnv(t, crypto.PubkeyToAddress(key.PublicKey), true)

	body := []byte(`{"hash":"0x00000000000000000000000000000000000000000000000000000000000000aa"}`)
	headers := signedHeaders(t, key, "commit", body, "5", time.Now().UnixMilli())

	headers[api.HeaderPayment] = "6"
	w, _ := env.post(t, "/api/call/commit", body, headers)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	headers[api.HeaderPayment] = "5"
	w, _ = env.post(t, "/api/call/commit", body, headers)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReplayGuard_ForgetsIdleCallers(t *testing.T) {
	g := newReplayGuard(time.Minute)
	now := time.UnixMilli(1_000_000)
	g.now = func() time.Time { return now }

	a := common.HexToAddress("0xa1")
	b := common.HexToAddress("0xb2")
	require.NoError(t, g.check(a, now.UnixMilli()))
	require.NoError(t, g.check(b, now.UnixMilli()))
	assert.Equal(t, 2, g.tracked())

	now = now.Add(2 * time.Minute)
	require.NoError(t, g.check(b, now.UnixMilli()))
	assert.Equal(t, 1, g.tracked())
}

func TestRecoverSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)
	digest := api.SigningDigest("commit", []byte("{}"), nil, 1)

	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)

	got, err := RecoverSigner(digest, hexutil.Encode(sig))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Legacy 27/28 recovery ids are accepted.
	legacy := bytes.Clone(sig)
	legacy[64] += 27
	got, err = RecoverSigner(digest, hexutil.Encode(legacy))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The timestamp is part of the signed message.
	got, err = RecoverSigner(api.SigningDigest("commit", []byte("{}"), nil, 2), hexutil.Encode(sig))
	if err == nil {
		assert.NotEqual(t, want, got)
	}

	_, err = RecoverSigner(digest, "0x1234")
	assert.Error(t, err)
	_, err = RecoverSigner(digest, "zz")
	assert.Error(t, err)
}

func TestStatusForKind(t *testing.T) {
	cases := map[string]int{
		"":                    http.StatusOK,
		"InvalidParameter":    http.StatusBadRequest,
		"DurationTooShort":    http.StatusBadRequest,
		"Unauthorized":        http.StatusForbidden,
		"InsufficientPayment": http.StatusPaymentRequired,
		"NotFound":            http.StatusNotFound,
		"ParentExpired":       http.StatusGone,
		"NameUnavailable":     http.StatusConflict,
		"CommitmentTooYoung":  http.StatusConflict,
		"Internal":            http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, StatusForKind(kind), kind)
	}
}

func TestClient_EndToEndRegistration(t *testing.T) {
	adminKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	admin := crypto.PubkeyToAddress(adminKey.PublicKey)
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)

	env := newTestEnv(t, admin, true)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx := context.Background()
	client := clients.NewRegistrarClient(ts.URL, ownerKey)
	assert.Equal(t, owner, client.Caller())

	secret := clients.DeriveSecret("correct horse", "e2e.vne", owner)
	hash, err := client.MakeCommitment(ctx, &api.MakeCommitment{Name: "e2e.vne", Owner: owner, Duration: 400000, Secret: secret})
	require.NoError(t, err)
	require.NoError(t, client.Commit(ctx, hash))

	env.clock.now += interfaces.Timestamp(registrar.DefaultMinCommitAge)

	price, err := client.Price(ctx, "e2e.vne", 400000)
	require.NoError(t, err)

	register := &api.Register{Name: "e2e.vne", Owner: owner, Duration: 400000, CommitHash: hash, Secret: &secret}
	err = client.Call(ctx, register, new(uint256.Int).SubUint64(price, 1), nil)
	assert.ErrorIs(t, err, interfaces.ErrInsufficientPayment)

	var reg registrar.Registration
	require.NoError(t, client.Call(ctx, register, price, &reg))
	assert.Equal(t, owner, reg.Domain.Owner)
	assert.True(t, reg.Refund.IsZero())

	require.NoError(t, client.Call(ctx, &api.SetDomainContentText{Name: "e2e.vne", Key: "url", Text: "https://e2e"}, nil, nil))

	var text map[string]string
	require.NoError(t, client.Call(ctx, &api.ReadDomainContentText{Name: "e2e.vne"}, nil, &text))
	assert.Equal(t, "https://e2e", text["url"])

	// Only the admin may snapshot.
	_, err = client.Snapshot(ctx)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	adminClient := clients.NewRegistrarClient(ts.URL, adminKey)
	snap, err := adminClient.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.ContentID, 64)
	assert.Equal(t, env.clock.now, snap.TakenAt)

	exported, err := adminClient.ExportEvents(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, snap.ContentID, exported.ContentID)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, common.HexToAddress("0xad"), false)
	get := func(path string) int {
		w := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("/livez"))
	assert.Equal(t, http.StatusOK, get("/readyz"))
	assert.Equal(t, http.StatusOK, get("/drain"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))
	assert.Equal(t, http.StatusOK, get("/undrain"))
	assert.Equal(t, http.StatusOK, get("/readyz"))
}
