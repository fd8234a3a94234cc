package stacks

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/feral-file/ff-stacks-mint/internal/clarity"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
)

const redacted = "[REDACTED]"

// KeyProvider supplies the signing capability of the service account.
// Implementations never expose the private key.
//
//go:generate mockgen -source=keys.go -destination=../../mocks/key_provider.go -package=mocks -mock_names=KeyProvider=MockKeyProvider
type KeyProvider interface {
	// PublicKey returns the 33-byte compressed public key
	PublicKey() []byte
	// Address returns the single-signature principal of the key on a network
	Address(network domain.Network) (string, error)
	// Sign returns a recoverable signature of a 32-byte hash as recovery id || r || s
	Sign(hash []byte) ([]byte, error)
}

type staticKeyProvider struct {
	key *ecdsa.PrivateKey
}

// NewStaticKeyProvider parses a hex private key. A 33-byte key must carry the 0x01
// compressed-public-key suffix used by Stacks wallets.
func NewStaticKeyProvider(hexKey string) (KeyProvider, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: signing key is not hex", domain.ErrInvalidConfig)
	}

	switch {
	case len(b) == 33 && b[32] == 0x01:
		b = b[:32]
	case len(b) != 32:
		return nil, fmt.Errorf("%w: signing key must be 32 bytes, optionally followed by 0x01", domain.ErrInvalidConfig)
	}

	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signing key", domain.ErrInvalidConfig)
	}
	return &staticKeyProvider{key: key}, nil
}

func (p *staticKeyProvider) PublicKey() []byte {
	return crypto.CompressPubkey(&p.key.PublicKey)
}

func (p *staticKeyProvider) Address(network domain.Network) (string, error) {
	return clarity.AddressFromPublicKey(network.SingleSigAddressVersion(), p.PublicKey())
}

func (p *staticKeyProvider) Sign(hash []byte) ([]byte, error) {
	sig, err := crypto.Sign(hash, p.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// go-ethereum returns r || s || v
	out := make([]byte, 65)
	out[0] = sig[64]
	copy(out[1:], sig[:64])
	return out, nil
}

func (p *staticKeyProvider) String() string {
	return redacted
}

func (p *staticKeyProvider) GoString() string {
	return redacted
}
