package main

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/name-registrar/api"
	"github.com/ruteri/name-registrar/api/clients"
	"github.com/ruteri/name-registrar/commitment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandName(t *testing.T) {
	assert.Equal(t, "read-admin", commandName("readAdmin"))
	assert.Equal(t, "read-min-commit-age", commandName("readMinCommitAge"))
	assert.Equal(t, "commit", commandName("commit"))
}

func TestOperationCommands_Unique(t *testing.T) {
	seen := map[string]bool{}
	for _, cmd := range operationCommands() {
		assert.False(t, seen[cmd.Name], cmd.Name)
		seen[cmd.Name] = true
	}
	assert.Len(t, seen, len(api.Methods()))
}

func TestPrepareOperation(t *testing.T) {
	caller := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	mc := &api.MakeCommitment{Name: "x.vne", Duration: 200000}
	require.NoError(t, prepareOperation(mc, caller, "pass"))
	assert.Equal(t, caller, mc.Owner)
	assert.Equal(t, clients.DeriveSecret("pass", "x.vne", caller), mc.Secret)

	reg := &api.Register{Name: "x.vne", Duration: 200000}
	require.NoError(t, prepareOperation(reg, caller, "pass"))
	require.NotNil(t, reg.Secret)
	want, err := commitment.Make("x.vne", caller, 200000, *reg.Secret, reg.Resolver)
	require.NoError(t, err)
	assert.Equal(t, want, reg.CommitHash)

	assert.Error(t, prepareOperation(&api.Register{Name: "x.vne"}, caller, ""))
}
