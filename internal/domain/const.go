package domain

const (
	// Stacks API gateway defaults, keyed by network
	DEFAULT_STACKS_API_MAINNET = "https://api.hiro.so"
	DEFAULT_STACKS_API_TESTNET = "https://api.testnet.hiro.so"
	DEFAULT_STACKS_API_DEVNET  = "http://localhost:3999"

	// Content store folders
	MEDIA_FOLDER    = "nfts/media"
	METADATA_FOLDER = "nfts/metadata"

	// Gateways for content-addressed token uris
	DEFAULT_IPFS_GATEWAY    = "https://ipfs.io"
	DEFAULT_ARWEAVE_GATEWAY = "https://arweave.net"

	// Contract functions
	FUNCTION_GET_LAST_TOKEN_ID = "get-last-token-id"
	FUNCTION_GET_TOKEN_URI     = "get-token-uri"
	FUNCTION_MINT              = "mint"

	// MICRO_STX_PER_STX is the number of micro-STX in one STX
	MICRO_STX_PER_STX = 1_000_000
)
