package stacks

import (
	"bytes"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/feral-file/ff-stacks-mint/internal/clarity"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
)

// Wire constants of a single-signature contract-call transaction
const (
	authTypeStandard        byte = 0x04
	hashModeP2PKH           byte = 0x00
	keyEncodingCompressed   byte = 0x00
	anchorModeAny           byte = 0x03
	postConditionModeDeny   byte = 0x02
	payloadTypeContractCall byte = 0x02

	signatureLength = 65
	maxNameLength   = 128
)

// ContractCall describes a contract-call transaction to build
type ContractCall struct {
	Network      domain.Network
	ContractID   string // address.name
	FunctionName string
	Args         []clarity.Value
	Nonce        uint64
	Fee          uint64 // micro-STX
}

// SignedTransaction is a serialized, signed transaction ready to broadcast
type SignedTransaction struct {
	TxID string
	Raw  []byte
}

// unsignedTx holds the encoded parts of a transaction around its spending condition
type unsignedTx struct {
	version byte
	chainID uint32
	signer  []byte
	nonce   uint64
	fee     uint64
	payload []byte
}

// BuildContractCall builds and signs a contract-call transaction with standard single-sig
// authorization, anchor mode any and post-condition mode deny.
func BuildContractCall(call ContractCall, keys KeyProvider) (*SignedTransaction, error) {
	payload, err := encodeContractCallPayload(call)
	if err != nil {
		return nil, err
	}

	tx := unsignedTx{
		version: call.Network.TransactionVersion(),
		chainID: call.Network.ChainID(),
		signer:  clarity.Hash160(keys.PublicKey()),
		nonce:   call.Nonce,
		fee:     call.Fee,
		payload: payload,
	}

	// The initial sighash covers the transaction with its spending condition cleared
	initialSighash := sha512.Sum512_256(tx.encode(0, 0, make([]byte, signatureLength)))

	presign := make([]byte, 0, 32+1+8+8)
	presign = append(presign, initialSighash[:]...)
	presign = append(presign, authTypeStandard)
	presign = binary.BigEndian.AppendUint64(presign, tx.fee)
	presign = binary.BigEndian.AppendUint64(presign, tx.nonce)
	presignHash := sha512.Sum512_256(presign)

	signature, err := keys.Sign(presignHash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if len(signature) != signatureLength {
		return nil, fmt.Errorf("unexpected signature length %d", len(signature))
	}

	raw := tx.encode(tx.nonce, tx.fee, signature)
	txID := sha512.Sum512_256(raw)

	return &SignedTransaction{
		TxID: "0x" + hex.EncodeToString(txID[:]),
		Raw:  raw,
	}, nil
}

func (t unsignedTx) encode(nonce, fee uint64, signature []byte) []byte {
	var buf bytes.Buffer

	buf.WriteByte(t.version)
	buf.Write(binary.BigEndian.AppendUint32(nil, t.chainID))

	// authorization
	buf.WriteByte(authTypeStandard)
	buf.WriteByte(hashModeP2PKH)
	buf.Write(t.signer)
	buf.Write(binary.BigEndian.AppendUint64(nil, nonce))
	buf.Write(binary.BigEndian.AppendUint64(nil, fee))
	buf.WriteByte(keyEncodingCompressed)
	buf.Write(signature)

	buf.WriteByte(anchorModeAny)
	buf.WriteByte(postConditionModeDeny)
	buf.Write(binary.BigEndian.AppendUint32(nil, 0))

	buf.Write(t.payload)
	return buf.Bytes()
}

func encodeContractCallPayload(call ContractCall) ([]byte, error) {
	address, name, ok := strings.Cut(call.ContractID, ".")
	if !ok {
		return nil, fmt.Errorf("invalid contract id %q", call.ContractID)
	}
	version, hash160, err := clarity.DecodeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("invalid contract address: %w", err)
	}
	if name == "" || len(name) > maxNameLength {
		return nil, fmt.Errorf("invalid contract name %q", name)
	}
	if call.FunctionName == "" || len(call.FunctionName) > maxNameLength {
		return nil, fmt.Errorf("invalid function name %q", call.FunctionName)
	}

	var buf bytes.Buffer
	buf.WriteByte(payloadTypeContractCall)
	buf.WriteByte(version)
	buf.Write(hash160)
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.WriteByte(byte(len(call.FunctionName)))
	buf.WriteString(call.FunctionName)
	buf.Write(binary.BigEndian.AppendUint32(nil, uint32(len(call.Args)))) //nolint:gosec,G115

	for i, arg := range call.Args {
		encoded, err := clarity.Serialize(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode argument %d: %w", i, err)
		}
		buf.Write(encoded)
	}

	return buf.Bytes(), nil
}

// MintArgs returns the arguments of the creator contract's mint function
func MintArgs(creator, metadataURL string) ([]clarity.Value, error) {
	principal, err := clarity.Principal(creator)
	if err != nil {
		return nil, fmt.Errorf("invalid creator principal: %w", err)
	}
	return []clarity.Value{principal, clarity.StringUTF8(metadataURL)}, nil
}
