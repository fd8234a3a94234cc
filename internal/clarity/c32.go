package clarity

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck,SA1019
)

const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var big32 = big.NewInt(32)

// c32Encode encodes bytes as c32. Leading zero bytes become leading '0' digits.
func c32Encode(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		if b != 0 {
			break
		}
		sb.WriteByte('0')
	}

	n := new(big.Int).SetBytes(data)
	var digits []byte
	mod := new(big.Int)
	for n.Sign() > 0 {
		n.DivMod(n, big32, mod)
		digits = append(digits, c32Alphabet[mod.Int64()])
	}
	for i := len(digits) - 1; i >= 0; i-- {
		sb.WriteByte(digits[i])
	}
	return sb.String()
}

func c32Normalize(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "O", "0")
	s = strings.ReplaceAll(s, "L", "1")
	s = strings.ReplaceAll(s, "I", "1")
	return s
}

func c32Decode(s string) ([]byte, error) {
	s = c32Normalize(s)
	zeros := 0
	for zeros < len(s) && s[zeros] == '0' {
		zeros++
	}

	n := new(big.Int)
	for i := zeros; i < len(s); i++ {
		idx := strings.IndexByte(c32Alphabet, s[i])
		if idx < 0 {
			return nil, fmt.Errorf("invalid c32 character %q", s[i])
		}
		n.Mul(n, big32)
		n.Add(n, big.NewInt(int64(idx)))
	}

	out := make([]byte, zeros, zeros+len(n.Bytes()))
	return append(out, n.Bytes()...), nil
}

func c32Checksum(version byte, hash160 []byte) []byte {
	payload := append([]byte{version}, hash160...)
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// EncodeAddress renders a version and hash160 as a c32check Stacks address
func EncodeAddress(version byte, hash160 []byte) (string, error) {
	if version >= 32 {
		return "", fmt.Errorf("invalid address version %d", version)
	}
	if len(hash160) != 20 {
		return "", fmt.Errorf("invalid hash160 length %d", len(hash160))
	}
	data := append(append([]byte{}, hash160...), c32Checksum(version, hash160)...)
	return "S" + string(c32Alphabet[version]) + c32Encode(data), nil
}

// DecodeAddress parses a c32check Stacks address into its version and hash160
func DecodeAddress(addr string) (byte, []byte, error) {
	if len(addr) < 3 || addr[0] != 'S' {
		return 0, nil, fmt.Errorf("invalid stacks address %q", addr)
	}
	norm := c32Normalize(addr[1:])
	version := strings.IndexByte(c32Alphabet, norm[0])
	if version < 0 {
		return 0, nil, fmt.Errorf("invalid stacks address version in %q", addr)
	}

	data, err := c32Decode(norm[1:])
	if err != nil {
		return 0, nil, fmt.Errorf("invalid stacks address %q: %w", addr, err)
	}
	if len(data) != 24 {
		return 0, nil, fmt.Errorf("invalid stacks address length %q", addr)
	}

	hash160, checksum := data[:20], data[20:]
	if !bytes.Equal(checksum, c32Checksum(byte(version), hash160)) {
		return 0, nil, fmt.Errorf("invalid stacks address checksum %q", addr)
	}
	return byte(version), hash160, nil
}

// IsValidAddress reports whether s is a standard principal or a contract principal
func IsValidAddress(s string) bool {
	addr, name, isContract := strings.Cut(s, ".")
	if isContract && name == "" {
		return false
	}
	_, _, err := DecodeAddress(addr)
	return err == nil
}

// Hash160 returns RIPEMD160(SHA256(data))
func Hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	_, _ = h.Write(sum[:])
	return h.Sum(nil)
}

// AddressFromPublicKey derives the single-signature address of a compressed public key
func AddressFromPublicKey(version byte, compressedPubKey []byte) (string, error) {
	if len(compressedPubKey) != 33 {
		return "", fmt.Errorf("expected compressed public key, got %d bytes", len(compressedPubKey))
	}
	return EncodeAddress(version, Hash160(compressedPubKey))
}
