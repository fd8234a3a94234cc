package metadata

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/providers/stacks"
)

// NormalizedMetadata represents the normalized SIP-016 metadata of a token
type NormalizedMetadata struct {
	Raw         map[string]interface{} `json:"raw"`
	URI         string                 `json:"uri"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Image       string                 `json:"image"`
	Creator     string                 `json:"creator"`
}

// Config holds the gateways used for content-addressed uris
type Config struct {
	IPFSGateway    string
	ArweaveGateway string
}

// Resolver defines the interface for resolving the metadata of a token
//
//go:generate mockgen -source=resolver.go -destination=../mocks/metadata_resolver.go -package=mocks -mock_names=Resolver=MockMetadataResolver
type Resolver interface {
	// Resolve fetches the metadata document of a token. When uri is empty the token uri is
	// read from the contract. Returns nil when the token has no uri.
	Resolve(ctx context.Context, tokenID uint64, uri string) (*NormalizedMetadata, error)
}

type resolver struct {
	stacksClient stacks.Client
	httpClient   adapter.HTTPClient
	json         adapter.JSON
	config       Config
}

func NewResolver(stacksClient stacks.Client, httpClient adapter.HTTPClient, json adapter.JSON, config Config) Resolver {
	if config.IPFSGateway == "" {
		config.IPFSGateway = domain.DEFAULT_IPFS_GATEWAY
	}
	if config.ArweaveGateway == "" {
		config.ArweaveGateway = domain.DEFAULT_ARWEAVE_GATEWAY
	}
	return &resolver{
		stacksClient: stacksClient,
		httpClient:   httpClient,
		json:         json,
		config:       config,
	}
}

func (r *resolver) Resolve(ctx context.Context, tokenID uint64, uri string) (*NormalizedMetadata, error) {
	if uri == "" {
		var err error
		uri, err = r.stacksClient.GetTokenURI(ctx, tokenID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch token uri: %w", err)
		}
		if uri == "" {
			return nil, nil
		}
	}

	// SIP-016 allows an {id} placeholder
	uri = strings.ReplaceAll(uri, "{id}", strconv.FormatUint(tokenID, 10))

	raw, err := r.fetch(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata from URI %s: %w", uri, err)
	}

	return r.normalize(ctx, uri, raw), nil
}

// normalize reads the SIP-016 fields, falling back to the names older documents use
func (r *resolver) normalize(ctx context.Context, uri string, raw map[string]interface{}) *NormalizedMetadata {
	md := &NormalizedMetadata{Raw: raw, URI: uri}

	md.Name = firstString(raw, "name", "title")
	md.Description = firstString(raw, "description")
	md.Image = r.toGateway(firstString(raw, "image", "image_url"))

	if props, ok := raw["properties"].(map[string]interface{}); ok {
		md.Creator = firstString(props, "creator", "artist")
		if md.Image == "" {
			md.Image = r.toGateway(firstString(props, "image"))
		}
	}
	if md.Creator == "" {
		md.Creator = firstString(raw, "creator", "artist")
	}

	if md.Name == "" {
		logger.WarnCtx(ctx, "Metadata has no name", zap.String("uri", uri))
	}
	return md
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// fetch fetches a metadata document, handling data, ipfs, ar and http(s) uris
func (r *resolver) fetch(ctx context.Context, uri string) (map[string]interface{}, error) {
	switch {
	case strings.HasPrefix(uri, "data:"):
		return r.parseDataURI(uri)
	case strings.HasPrefix(uri, "ipfs://"), strings.HasPrefix(uri, "ar://"):
		return r.fetchFromHTTP(ctx, r.toGateway(uri))
	case strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://"):
		return r.fetchFromHTTP(ctx, uri)
	default:
		return nil, fmt.Errorf("unsupported URI scheme: %s", uri)
	}
}

// parseDataURI parses data:application/json[;base64],<data>
func (r *resolver) parseDataURI(uri string) (map[string]interface{}, error) {
	header, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI format")
	}

	if strings.Contains(header, "base64") {
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64: %w", err)
		}
		data = string(decoded)
	} else if unescaped, err := url.PathUnescape(data); err == nil {
		data = unescaped
	}

	var metadata map[string]interface{}
	if err := r.json.Unmarshal([]byte(data), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return metadata, nil
}

func (r *resolver) fetchFromHTTP(ctx context.Context, link string) (map[string]interface{}, error) {
	var metadata map[string]interface{}
	if err := r.httpClient.Get(ctx, link, &metadata); err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	return metadata, nil
}

// toGateway converts a content-addressed uri to a gateway URL
func (r *resolver) toGateway(uri string) string {
	if after, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		return fmt.Sprintf("%s/ipfs/%s", strings.TrimSuffix(r.config.IPFSGateway, "/"), strings.TrimPrefix(after, "ipfs/"))
	}
	if after, ok := strings.CutPrefix(uri, "ar://"); ok {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(r.config.ArweaveGateway, "/"), after)
	}
	return uri
}
