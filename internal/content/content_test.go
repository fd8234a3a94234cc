package content_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-stacks-mint/internal/content"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/mocks"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testContentMocks struct {
	ctrl  *gomock.Controller
	fs    *mocks.MockFileSystem
	clock *mocks.MockClock
	store content.Store
}

func setupTestContent(t *testing.T) *testContentMocks {
	ctrl := gomock.NewController(t)
	tm := &testContentMocks{
		ctrl:  ctrl,
		fs:    mocks.NewMockFileSystem(ctrl),
		clock: mocks.NewMockClock(ctrl),
	}
	tm.clock.EXPECT().Now().Return(time.Unix(0, 42)).AnyTimes()
	tm.store = content.NewLocalStore("/srv/uploads", "http://localhost:8080/media/", tm.fs, tm.clock)
	return tm
}

func TestLocalStore_Upload(t *testing.T) {
	tm := setupTestContent(t)
	defer tm.ctrl.Finish()

	dir := filepath.Join("/srv/uploads", "nfts", "media")
	tmp := filepath.Join(dir, "3") + ".42.tmp"
	gomock.InOrder(
		tm.fs.EXPECT().MkdirAll(dir, os.FileMode(0o755)).Return(nil),
		tm.fs.EXPECT().WriteFile(tmp, pngHeader, os.FileMode(0o644)).Return(nil),
		tm.fs.EXPECT().Rename(tmp, filepath.Join(dir, "3")).Return(nil),
	)

	result, err := tm.store.Upload(context.Background(), pngHeader, "nfts/media", "3")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/nfts/media/3", result.URL)
	assert.Equal(t, "image/png", result.ContentType)
	assert.Equal(t, len(pngHeader), result.Size)
}

func TestLocalStore_UploadRenameFails(t *testing.T) {
	tm := setupTestContent(t)
	defer tm.ctrl.Finish()

	tm.fs.EXPECT().MkdirAll(gomock.Any(), gomock.Any()).Return(nil)
	tm.fs.EXPECT().WriteFile(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	tm.fs.EXPECT().Rename(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	tm.fs.EXPECT().Remove(gomock.Any()).Return(nil)

	_, err := tm.store.Upload(context.Background(), []byte(`{}`), "nfts/metadata", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestLocalStore_UploadWriteFails(t *testing.T) {
	tm := setupTestContent(t)
	defer tm.ctrl.Finish()

	tm.fs.EXPECT().MkdirAll(gomock.Any(), gomock.Any()).Return(nil)
	tm.fs.EXPECT().WriteFile(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("read-only file system"))

	_, err := tm.store.Upload(context.Background(), []byte(`{}`), "nfts/metadata", "3")
	assert.Error(t, err)
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		folder string
		key    string
		valid  bool
	}{
		{folder: "nfts/media", key: "0", valid: true},
		{folder: "nfts/metadata", key: "12", valid: true},
		{folder: "nfts/media", key: "", valid: false},
		{folder: "nfts/media", key: "../x", valid: false},
		{folder: "nfts/media", key: "..", valid: false},
		{folder: "../nfts", key: "1", valid: false},
		{folder: "/etc", key: "passwd", valid: false},
		{folder: "nfts//media", key: "1", valid: false},
		{folder: "", key: "1", valid: false},
	}

	for _, tt := range tests {
		err := content.ValidatePath(tt.folder, tt.key)
		if tt.valid {
			assert.NoError(t, err, "%s/%s", tt.folder, tt.key)
		} else {
			assert.Error(t, err, "%s/%s", tt.folder, tt.key)
		}
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/png", content.DetectContentType(pngHeader))
	assert.Equal(t, "application/json", content.DetectContentType([]byte(`{"title":"x"}`)))
}
