package stacks_test

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/providers/stacks"
)

func TestNewStaticKeyProvider_Addresses(t *testing.T) {
	for _, key := range []string{DEPLOYER_KEY, DEPLOYER_KEY[:64], "0x" + DEPLOYER_KEY} {
		keys, err := stacks.NewStaticKeyProvider(key)
		require.NoError(t, err)

		assert.Equal(t, "0390a5cac7c33fda49f70bc1b0866fa0ba7a9440d9de647fecb8132ceb76a94dfa", hex.EncodeToString(keys.PublicKey()))

		testnet, err := keys.Address(domain.NetworkTestnet)
		require.NoError(t, err)
		assert.Equal(t, DEPLOYER, testnet)

		devnet, err := keys.Address(domain.NetworkDevnet)
		require.NoError(t, err)
		assert.Equal(t, DEPLOYER, devnet)

		mainnet, err := keys.Address(domain.NetworkMainnet)
		require.NoError(t, err)
		assert.Equal(t, "SP1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRCBGD7R", mainnet)
	}
}

func TestNewStaticKeyProvider_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "empty", key: ""},
		{name: "not hex", key: "zz3b7cc01a1a2e86221266a154af739463fce51219d97e4f856cd7200c3bd2a6"},
		{name: "short", key: "753b7cc0"},
		{name: "wrong suffix", key: DEPLOYER_KEY[:64] + "02"},
		{name: "zero", key: "0000000000000000000000000000000000000000000000000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, err := stacks.NewStaticKeyProvider(tt.key)
			assert.Nil(t, keys)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestStaticKeyProvider_NeverPrintsKey(t *testing.T) {
	keys, err := stacks.NewStaticKeyProvider(DEPLOYER_KEY)
	require.NoError(t, err)

	for _, out := range []string{
		fmt.Sprintf("%v", keys),
		fmt.Sprintf("%+v", keys),
		fmt.Sprintf("%s", keys),
		fmt.Sprintf("%#v", keys),
	} {
		assert.NotContains(t, out, DEPLOYER_KEY[:64])
		assert.Contains(t, out, "REDACTED")
	}
}

func TestStaticKeyProvider_Sign(t *testing.T) {
	keys, err := stacks.NewStaticKeyProvider(DEPLOYER_KEY)
	require.NoError(t, err)

	hash := crypto.Keccak256([]byte("mint"))
	sig, err := keys.Sign(hash)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.LessOrEqual(t, sig[0], byte(1))

	// recover with the go-ethereum layout r || s || v
	ethSig := append(append([]byte{}, sig[1:]...), sig[0])
	pub, err := crypto.SigToPub(hash, ethSig)
	require.NoError(t, err)
	assert.Equal(t, keys.PublicKey(), crypto.CompressPubkey(pub))
}

func TestStaticKeyProvider_SignRejectsBadHash(t *testing.T) {
	keys, err := stacks.NewStaticKeyProvider(DEPLOYER_KEY)
	require.NoError(t, err)

	_, err = keys.Sign([]byte("short"))
	assert.Error(t, err)
}
