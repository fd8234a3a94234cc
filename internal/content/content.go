package content

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
)

// UploadResult describes a stored object
type UploadResult struct {
	URL         string
	ContentType string
	Size        int
}

// Store persists media and metadata documents under folder/key and returns their public URL
//
//go:generate mockgen -source=content.go -destination=../mocks/content.go -package=mocks -mock_names=Store=MockContentStore
type Store interface {
	Upload(ctx context.Context, data []byte, folder, key string) (*UploadResult, error)
}

// ValidatePath rejects folders and keys that would escape the store root
func ValidatePath(folder, key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid key %q", key)
	}
	if folder == "" || path.IsAbs(folder) || strings.Contains(folder, `\`) {
		return fmt.Errorf("invalid folder %q", folder)
	}
	for _, part := range strings.Split(folder, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid folder %q", folder)
		}
	}
	return nil
}

// DetectContentType sniffs the media type of data
func DetectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// localStore writes objects to a directory served by the API
type localStore struct {
	dir     string
	baseURL string
	fs      adapter.FileSystem
	clock   adapter.Clock
}

// NewLocalStore creates a content store on the local filesystem. Objects are reachable at
// baseURL/folder/key.
func NewLocalStore(dir, baseURL string, fs adapter.FileSystem, clock adapter.Clock) Store {
	return &localStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		fs:      fs,
		clock:   clock,
	}
}

// Upload writes to a temporary file first and renames it into place so readers never see
// a partial object
func (s *localStore) Upload(ctx context.Context, data []byte, folder, key string) (*UploadResult, error) {
	if err := ValidatePath(folder, key); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.dir, filepath.FromSlash(folder))
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	target := filepath.Join(dir, key)
	tmp := fmt.Sprintf("%s.%d.tmp", target, s.clock.Now().UnixNano())
	if err := s.fs.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		if rmErr := s.fs.Remove(tmp); rmErr != nil {
			logger.WarnCtx(ctx, "Failed to remove temp file", zap.String("file", tmp), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("failed to move %s into place: %w", target, err)
	}

	result := &UploadResult{
		URL:         fmt.Sprintf("%s/%s/%s", s.baseURL, folder, key),
		ContentType: DetectContentType(data),
		Size:        len(data),
	}

	logger.InfoCtx(ctx, "Stored content locally",
		zap.String("url", result.URL),
		zap.String("content_type", result.ContentType),
		zap.Int("size", result.Size))

	return result, nil
}
