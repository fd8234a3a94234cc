package cloudflare

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudflare/cloudflare-go"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/content"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
)

const (
	CLOUDFLARE_PROVIDER_NAME = "cloudflare"
	PUBLIC_VARIANT           = "public"

	DEFAULT_MAX_ATTEMPTS = 3
)

// Config holds configuration for Cloudflare Images and Workers KV
type Config struct {
	// AccountID is the Cloudflare account ID
	AccountID string
	// KVNamespaceID is the Workers KV namespace that holds metadata documents
	KVNamespaceID string
	// PublicBaseURL is the worker route that serves KV entries by key
	PublicBaseURL string
	// MaxAttempts bounds the attempts per upload
	MaxAttempts uint64
}

// contentStore implements content.Store on Cloudflare: images go to Cloudflare Images,
// everything else to Workers KV
type contentStore struct {
	cfClient adapter.CloudflareClient
	config   Config
	rc       *cloudflare.ResourceContainer
}

// NewContentStore creates a new Cloudflare content store
func NewContentStore(cfClient adapter.CloudflareClient, config Config) content.Store {
	if config.MaxAttempts == 0 {
		config.MaxAttempts = DEFAULT_MAX_ATTEMPTS
	}
	config.PublicBaseURL = strings.TrimRight(config.PublicBaseURL, "/")

	return &contentStore{
		cfClient: cfClient,
		config:   config,
		rc: &cloudflare.ResourceContainer{
			Level:      cloudflare.AccountRouteLevel,
			Identifier: config.AccountID,
		},
	}
}

// Upload stores data under folder/key
func (s *contentStore) Upload(ctx context.Context, data []byte, folder, key string) (*content.UploadResult, error) {
	if err := content.ValidatePath(folder, key); err != nil {
		return nil, err
	}

	mtype := mimetype.Detect(data)
	objectKey := path.Join(folder, key)

	var url string
	var err error
	if strings.HasPrefix(mtype.String(), "image/") {
		url, err = s.uploadImage(ctx, data, objectKey, mtype)
	} else {
		url, err = s.writeKV(ctx, data, objectKey)
	}
	if err != nil {
		return nil, err
	}

	return &content.UploadResult{
		URL:         url,
		ContentType: mtype.String(),
		Size:        len(data),
	}, nil
}

// uploadImage uploads an image to Cloudflare Images and returns its public variant URL
func (s *contentStore) uploadImage(ctx context.Context, data []byte, objectKey string, mtype *mimetype.MIME) (string, error) {
	logger.InfoCtx(ctx, "Uploading to Cloudflare Images",
		zap.String("key", objectKey),
		zap.String("content_type", mtype.String()),
		zap.Int("size", len(data)))

	var image cloudflare.Image
	operation := func() error {
		params := cloudflare.UploadImageParams{
			File:     io.NopCloser(bytes.NewReader(data)),
			Name:     strings.ReplaceAll(objectKey, "/", "-") + mtype.Extension(),
			Metadata: map[string]interface{}{"key": objectKey},
		}

		var err error
		image, err = s.cfClient.UploadImage(ctx, s.rc, params)
		if err != nil {
			logger.WarnCtx(ctx, "Cloudflare Images upload failed", zap.String("key", objectKey), zap.Error(err))
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, s.newBackOff(ctx)); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	url := publicVariant(image.Variants)
	if url == "" {
		return "", fmt.Errorf("uploaded image %s has no variants", image.ID)
	}

	logger.InfoCtx(ctx, "Successfully uploaded to Cloudflare Images",
		zap.String("imageID", image.ID),
		zap.String("url", url),
		zap.String("uploaded_at", image.Uploaded.Format(time.RFC3339)))

	return url, nil
}

// writeKV stores a document in Workers KV under its object key
func (s *contentStore) writeKV(ctx context.Context, data []byte, objectKey string) (string, error) {
	operation := func() error {
		err := s.cfClient.WriteWorkersKVEntry(ctx, s.rc, cloudflare.WriteWorkersKVEntryParams{
			NamespaceID: s.config.KVNamespaceID,
			Key:         objectKey,
			Value:       data,
		})
		if err != nil {
			logger.WarnCtx(ctx, "Workers KV write failed", zap.String("key", objectKey), zap.Error(err))
		}
		return err
	}

	if err := backoff.Retry(operation, s.newBackOff(ctx)); err != nil {
		return "", fmt.Errorf("failed to write %s to workers kv: %w", objectKey, err)
	}

	url := fmt.Sprintf("%s/%s", s.config.PublicBaseURL, objectKey)
	logger.InfoCtx(ctx, "Successfully wrote to Workers KV", zap.String("key", objectKey), zap.String("url", url))
	return url, nil
}

func (s *contentStore) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, s.config.MaxAttempts-1), ctx)
}

// publicVariant picks the public variant, falling back to the first one
// Format: https://imagedelivery.net/{account_hash}/{image_id}/{variant_name}
func publicVariant(variants []string) string {
	for _, v := range variants {
		if path.Base(v) == PUBLIC_VARIANT {
			return v
		}
	}
	if len(variants) > 0 {
		return variants[0]
	}
	return ""
}
