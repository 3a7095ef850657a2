package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/ruteri/name-registrar/events"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/registrar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testAdmin = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	testOwner = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testOther = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) ObserveCall(method, kind string, elapsed time.Duration) {
	m.Called(method, kind, elapsed)
}

type testClock struct {
	now interfaces.Timestamp
	err error
}

func (c *testClock) Now(context.Context) (interfaces.Timestamp, error) {
	return c.now, c.err
}

func newTestDispatcher(t *testing.T, observer Observer) (*Dispatcher, *testClock) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := events.NewRecorder(16)
	r, err := registrar.New(registrar.Options{
		Config: registrar.DefaultConfig(testAdmin),
		Sink:   recorder,
		Log:    log,
	})
	require.NoError(t, err)
	clock := &testClock{now: 10_000_000}
	return NewDispatcher(DispatcherOpts{
		Registrar: r,
		Clock:     clock,
		Recorder:  recorder,
		Observer:  observer,
		Log:       log,
	}), clock
}

func lots() *uint256.Int {
	return uint256.MustFromDecimal("1000000000000000000000000")
}

func TestDecodeOperation(t *testing.T) {
	op, err := DecodeOperation("register", []byte(`{"name":"a.vne","owner":"0x00000000000000000000000000000000000000a1","duration":120000,"commit_hash":"0x0000000000000000000000000000000000000000000000000000000000000001","resolver":"0x0000000000000000000000000000000000000000","secret":"0x0000000000000000000000000000000000000000000000000000000000000002"}`))
	require.NoError(t, err)
	reg, ok := op.(*Register)
	require.True(t, ok)
	assert.Equal(t, "a.vne", reg.Name)
	assert.Equal(t, testOwner, reg.Owner)
	assert.Equal(t, interfaces.Duration(120000), reg.Duration)
	require.NotNil(t, reg.Secret)
	assert.Equal(t, common.HexToHash("0x02"), *reg.Secret)
	assert.True(t, op.Mutating())

	op, err = DecodeOperation("readAdmin", nil)
	require.NoError(t, err)
	assert.IsType(t, &ReadAdmin{}, op)
	assert.False(t, op.Mutating())

	_, err = DecodeOperation("mintNFT", nil)
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)

	_, err = DecodeOperation("commit", []byte(`{"hash":"0x01","extra":1}`))
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)

	_, err = DecodeOperation("commit", []byte(`{`))
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)

	// Every decode gets a fresh operation to fill.
	first, err := DecodeOperation("commit", []byte(`{"hash":"0x00000000000000000000000000000000000000000000000000000000000000aa"}`))
	require.NoError(t, err)
	second, err := DecodeOperation("commit", nil)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, interfaces.Hash{}, second.(*Commit).Hash)
}

func TestMethods_AllDispatched(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	methods := Methods()
	assert.Contains(t, methods, "makeCommitment")
	assert.Contains(t, methods, "listEvents")

	for _, method := range methods {
		op, err := DecodeOperation(method, nil)
		require.NoError(t, err, method)
		assert.Equal(t, method, op.Method())

		_, err = d.Execute(context.Background(), Call{Caller: testOther, Op: op})
		if err != nil {
			assert.NotContains(t, err.Error(), "unsupported operation", method)
			assert.NotEqual(t, "Internal", interfaces.ErrorKind(err), method)
		}
	}
}

func TestDispatcher_RegistrationFlow(t *testing.T) {
	observer := &MockObserver{}
	observer.On("ObserveCall", mock.Anything, mock.Anything, mock.Anything).Return()
	d, clock := newTestDispatcher(t, observer)
	ctx := context.Background()
	exec := func(caller interfaces.Address, op Operation) (any, error) {
		return d.Execute(ctx, Call{Caller: caller, Payment: lots(), Op: op})
	}

	secret := common.HexToHash("0x5ec2e7")
	res, err := exec(testOwner, &MakeCommitment{Name: "flow.vne", Owner: testOwner, Duration: 400000, Secret: secret})
	require.NoError(t, err)
	hash := res.(interfaces.Hash)

	_, err = exec(testOwner, &Commit{Hash: hash})
	require.NoError(t, err)

	_, err = exec(testOwner, &Register{Name: "flow.vne", Owner: testOwner, Duration: 400000, CommitHash: hash, Secret: &secret})
	assert.ErrorIs(t, err, interfaces.ErrCommitmentTooYoung)

	clock.now += interfaces.Timestamp(registrar.DefaultMinCommitAge)
	res, err = exec(testOwner, &Register{Name: "flow.vne", Owner: testOwner, Duration: 400000, CommitHash: hash, Secret: &secret})
	require.NoError(t, err)
	reg := res.(*registrar.Registration)
	assert.Equal(t, clock.now+400000, reg.Domain.Expiry)

	res, err = exec(testOther, &ReadDomainOwner{Name: "flow.vne"})
	require.NoError(t, err)
	assert.Equal(t, testOwner, res)

	res, err = exec(testOther, &CurrentTimestamp{})
	require.NoError(t, err)
	assert.Equal(t, clock.now, res)

	_, err = exec(testOther, &SetContentHash{Name: "flow.vne", ContentHash: hexutil.Bytes{0xe3}})
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
	_, err = exec(testOwner, &SetContentHash{Name: "flow.vne", ContentHash: hexutil.Bytes{0xe3}})
	require.NoError(t, err)

	res, err = exec(testOther, &ReadContentHash{Name: "flow.vne"})
	require.NoError(t, err)
	assert.Equal(t, hexutil.Bytes{0xe3}, res)

	res, err = exec(testOther, &ReadDomainStatus{Name: "flow.vne"})
	require.NoError(t, err)
	encoded, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `"Active"`, string(encoded))

	res, err = exec(testOther, &ListEvents{})
	require.NoError(t, err)
	kinds := []interfaces.EventKind{}
	for _, ev := range res.([]interfaces.Event) {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []interfaces.EventKind{interfaces.EventCommitted, interfaces.EventRegistered, interfaces.EventContentHashChanged}, kinds)

	observer.AssertCalled(t, "ObserveCall", "register", "CommitmentTooYoung", mock.Anything)
	observer.AssertCalled(t, "ObserveCall", "register", "", mock.Anything)
	observer.AssertCalled(t, "ObserveCall", "setContentHash", "Unauthorized", mock.Anything)
}

func TestDispatcher_ClockFailureIsInternal(t *testing.T) {
	d, clock := newTestDispatcher(t, nil)
	clock.err = errors.New("rpc down")

	_, err := d.Execute(context.Background(), Call{Caller: testOwner, Op: &CurrentTimestamp{}})
	require.Error(t, err)
	assert.Equal(t, "Internal", interfaces.ErrorKind(err))
	assert.True(t, strings.Contains(err.Error(), "rpc down"))

	_, err = d.Execute(context.Background(), Call{Caller: testOwner})
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)
}

func TestResponse_ErrRoundTrip(t *testing.T) {
	resp := NewErrorResponse(fmt.Errorf("%w: taken.vne", interfaces.ErrNameUnavailable))
	assert.Equal(t, "NameUnavailable", resp.Error.Kind)
	assert.ErrorIs(t, resp.Err(), interfaces.ErrNameUnavailable)

	resp = NewErrorResponse(errors.New("boom"))
	assert.Equal(t, "Internal", resp.Error.Kind)
	assert.Error(t, resp.Err())

	assert.NoError(t, (&Response{OK: json.RawMessage(`true`)}).Err())
}

func TestParsePayment(t *testing.T) {
	v, err := ParsePayment("")
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	v, err = ParsePayment("1000")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), v.Uint64())

	_, err = ParsePayment("-1")
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)
}
