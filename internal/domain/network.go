package domain

import "fmt"

// Network is the Stacks network a process is bound to
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkDevnet  Network = "devnet"
)

// Address versions for c32check principals
const (
	AddressVersionMainnetSingleSig byte = 22
	AddressVersionMainnetMultiSig  byte = 20
	AddressVersionTestnetSingleSig byte = 26
	AddressVersionTestnetMultiSig  byte = 21
)

// ParseNetwork parses a configured network name. There is no default.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case NetworkMainnet, NetworkTestnet, NetworkDevnet:
		return Network(s), nil
	case "":
		return "", fmt.Errorf("%w: stacks network is required", ErrInvalidConfig)
	default:
		return "", fmt.Errorf("%w: unknown stacks network %q", ErrInvalidConfig, s)
	}
}

// IsMainnet reports whether the network is mainnet
func (n Network) IsMainnet() bool {
	return n == NetworkMainnet
}

// DefaultAPIURL returns the public gateway for the network
func (n Network) DefaultAPIURL() string {
	switch n {
	case NetworkMainnet:
		return DEFAULT_STACKS_API_MAINNET
	case NetworkTestnet:
		return DEFAULT_STACKS_API_TESTNET
	default:
		return DEFAULT_STACKS_API_DEVNET
	}
}

// TransactionVersion returns the transaction version byte
func (n Network) TransactionVersion() byte {
	if n.IsMainnet() {
		return 0x00
	}
	return 0x80
}

// ChainID returns the chain id used in transactions
func (n Network) ChainID() uint32 {
	if n.IsMainnet() {
		return 0x00000001
	}
	return 0x80000000
}

// SingleSigAddressVersion returns the address version for single-signature principals
func (n Network) SingleSigAddressVersion() byte {
	if n.IsMainnet() {
		return AddressVersionMainnetSingleSig
	}
	return AddressVersionTestnetSingleSig
}
