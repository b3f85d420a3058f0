package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/membership"
	"github.com/eigerco/fraudledger/internal/safemath"
	"github.com/eigerco/fraudledger/internal/store"
	"github.com/eigerco/fraudledger/internal/vault"
	"github.com/eigerco/fraudledger/pkg/db/pebble"
)

const genesisJSON = `{
	"owner": "0x00000000000000000000000000000000000000ff",
	"members": [
		"0x00000000000000000000000000000000000000a1",
		"0x00000000000000000000000000000000000000b1"
	],
	"balances": {
		"0x00000000000000000000000000000000000000a1": 1000000000,
		"0x00000000000000000000000000000000000000b1": 500000000
	}
}`

var (
	owner = crypto.MustParseAddress("0x00000000000000000000000000000000000000ff")
	bankA = crypto.MustParseAddress("0x00000000000000000000000000000000000000a1")
	bankB = crypto.MustParseAddress("0x00000000000000000000000000000000000000b1")
)

func writeGenesis(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadGenesis(t *testing.T) {
	g, err := LoadGenesis(writeGenesis(t, genesisJSON))
	require.NoError(t, err)
	assert.Equal(t, owner, g.Owner)
	assert.Equal(t, []crypto.Address{bankA, bankB}, g.Members)
	assert.Equal(t, map[crypto.Address]uint64{bankA: 1_000_000_000, bankB: 500_000_000}, g.Balances)
}

func TestLoadGenesisInvalid(t *testing.T) {
	tests := map[string]string{
		"no owner":     `{"members": []}`,
		"zero member":  `{"owner": "0x00000000000000000000000000000000000000ff", "members": ["0x0000000000000000000000000000000000000000"]}`,
		"twice":        `{"owner": "0x00000000000000000000000000000000000000ff", "members": ["0x00000000000000000000000000000000000000a1", "0x00000000000000000000000000000000000000a1"]}`,
		"zero balance": `{"owner": "0x00000000000000000000000000000000000000ff", "balances": {"0x0000000000000000000000000000000000000000": 1}}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadGenesis(writeGenesis(t, content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := LoadGenesis(writeGenesis(t, `{"owner": "0x12"}`))
	assert.ErrorIs(t, err, crypto.ErrInvalidAddress)
}

func newLedger(t *testing.T) *store.Ledger {
	t.Helper()
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	l := store.NewLedger(kv)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestGenesisApply(t *testing.T) {
	l := newLedger(t)
	r := membership.NewRegistry(l, zerolog.Nop())
	v := vault.New(l)

	g, err := LoadGenesis(writeGenesis(t, genesisJSON))
	require.NoError(t, err)

	applied, err := g.Apply(l)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, r.IsMember(bankA))

	got, err := r.Owner()
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	// a restart must not fund twice
	applied, err = g.Apply(l)
	require.NoError(t, err)
	assert.False(t, applied)

	bal, err := v.Balance(bankA)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), bal)
	bal, err = v.Balance(bankB)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000_000), bal)
}

func TestGenesisApplyIsAtomic(t *testing.T) {
	l := newLedger(t)
	r := membership.NewRegistry(l, zerolog.Nop())
	v := vault.New(l)

	g, err := LoadGenesis(writeGenesis(t, genesisJSON))
	require.NoError(t, err)

	// crediting bankA overflows, so nothing of the genesis may land
	require.NoError(t, v.Fund(bankA, math.MaxUint64))
	_, err = g.Apply(l)
	require.ErrorIs(t, err, safemath.ErrOverflow)

	got, err := r.Owner()
	require.NoError(t, err)
	assert.True(t, got.IsZero())
	assert.False(t, r.IsMember(bankB))
	bal, err := v.Balance(bankB)
	require.NoError(t, err)
	assert.Zero(t, bal)

	// the next start still applies the whole genesis
	delete(g.Balances, bankA)
	applied, err := g.Apply(l)
	require.NoError(t, err)
	assert.True(t, applied)
	bal, err = v.Balance(bankB)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000_000), bal)
}

func TestGenesisApplyValidates(t *testing.T) {
	l := newLedger(t)
	_, err := Genesis{}.Apply(l)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
