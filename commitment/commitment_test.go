package commitment

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	resolver = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	secret   = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	window   = Window{MinAge: 60000, MaxAge: 120000}
)

func TestMake_Deterministic(t *testing.T) {
	a, err := Make("a.vne", owner, 400000, secret, resolver)
	require.NoError(t, err)
	b, err := Make("a.vne", owner, 400000, secret, resolver)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	otherSecret, err := Make("a.vne", owner, 400000, common.Hash{}, resolver)
	require.NoError(t, err)
	assert.NotEqual(t, a, otherSecret)

	otherDuration, err := Make("a.vne", owner, 400001, secret, resolver)
	require.NoError(t, err)
	assert.NotEqual(t, a, otherDuration)
}

func TestMake_InvalidInput(t *testing.T) {
	_, err := Make("", owner, 1, secret, resolver)
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)

	_, err = Make("a.vne", owner, 0, secret, resolver)
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)
}

func TestStore_Window(t *testing.T) {
	s := NewStore()
	h, err := Make("a.vne", owner, 400000, secret, resolver)
	require.NoError(t, err)

	const t0 = interfaces.Timestamp(1_000_000)
	require.NoError(t, s.Commit(h, t0, window))

	assert.ErrorIs(t, s.Check(h, t0+59999, window), interfaces.ErrCommitmentTooYoung)
	assert.NoError(t, s.Check(h, t0+60000, window))
	assert.NoError(t, s.Check(h, t0+120000, window))
	assert.ErrorIs(t, s.Check(h, t0+120001, window), interfaces.ErrCommitmentExpired)

	// A clock behind the submission time reads as age zero.
	assert.ErrorIs(t, s.Check(h, t0-5, window), interfaces.ErrCommitmentTooYoung)
}

func TestStore_ConsumeIsSingleUse(t *testing.T) {
	s := NewStore()
	h := common.HexToHash("0x01")
	require.NoError(t, s.Commit(h, 0, window))

	require.NoError(t, s.Consume(h, 60000, window))
	assert.ErrorIs(t, s.Consume(h, 60000, window), interfaces.ErrCommitmentNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestStore_FailedConsumeKeepsCommitment(t *testing.T) {
	s := NewStore()
	h := common.HexToHash("0x02")
	require.NoError(t, s.Commit(h, 0, window))

	assert.ErrorIs(t, s.Consume(h, 10, window), interfaces.ErrCommitmentTooYoung)
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Consume(h, 60000, window))
}

func TestStore_Duplicate(t *testing.T) {
	s := NewStore()
	h := common.HexToHash("0x03")
	require.NoError(t, s.Commit(h, 0, window))

	assert.ErrorIs(t, s.Commit(h, 1000, window), interfaces.ErrDuplicateCommitment)

	// Once stale the same hash may be committed again, restarting its age.
	require.NoError(t, s.Commit(h, 120001, window))
	assert.ErrorIs(t, s.Check(h, 120001+59999, window), interfaces.ErrCommitmentTooYoung)
	require.NoError(t, s.Check(h, 120001+60000, window))

	assert.ErrorIs(t, s.Commit(common.Hash{}, 0, window), interfaces.ErrInvalidParameter)
}

func TestStore_PruneAndExport(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Commit(common.HexToHash("0x0a"), 0, window))
	require.NoError(t, s.Commit(common.HexToHash("0x0b"), 100000, window))

	assert.Equal(t, 1, s.Prune(150000, window.MaxAge))
	exported := s.Export()
	require.Len(t, exported, 1)
	assert.Equal(t, common.HexToHash("0x0b"), exported[0].Hash)

	other := NewStore()
	other.Import(exported)
	assert.NoError(t, other.Check(common.HexToHash("0x0b"), 160000, window))
}
