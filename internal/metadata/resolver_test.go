package metadata_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
	"github.com/feral-file/ff-stacks-mint/internal/metadata"
	"github.com/feral-file/ff-stacks-mint/internal/mocks"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testResolverMocks struct {
	ctrl         *gomock.Controller
	stacksClient *mocks.MockStacksClient
	httpClient   *mocks.MockHTTPClient
	resolver     metadata.Resolver
}

func setupTestResolver(t *testing.T) *testResolverMocks {
	ctrl := gomock.NewController(t)
	tm := &testResolverMocks{
		ctrl:         ctrl,
		stacksClient: mocks.NewMockStacksClient(ctrl),
		httpClient:   mocks.NewMockHTTPClient(ctrl),
	}
	tm.resolver = metadata.NewResolver(tm.stacksClient, tm.httpClient, adapter.NewJSON(), metadata.Config{})
	return tm
}

// respondWith makes a mocked Get decode body into its result argument
func respondWith(body string) func(context.Context, string, interface{}) error {
	return func(_ context.Context, _ string, result interface{}) error {
		return adapter.NewJSON().Unmarshal([]byte(body), result)
	}
}

func TestResolve_FromContractURI(t *testing.T) {
	tm := setupTestResolver(t)
	defer tm.ctrl.Finish()

	tm.stacksClient.EXPECT().GetTokenURI(gomock.Any(), uint64(3)).Return("https://cdn.example.com/nfts/metadata/{id}", nil)
	tm.httpClient.EXPECT().Get(gomock.Any(), "https://cdn.example.com/nfts/metadata/3", gomock.Any()).
		DoAndReturn(respondWith(`{
			"sip": 16,
			"name": "Sunset",
			"description": "desc",
			"image": "ipfs://bafyimage",
			"properties": {"creator": "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"}
		}`))

	md, err := tm.resolver.Resolve(context.Background(), 3, "")
	require.NoError(t, err)
	require.NotNil(t, md)

	assert.Equal(t, "https://cdn.example.com/nfts/metadata/3", md.URI)
	assert.Equal(t, "Sunset", md.Name)
	assert.Equal(t, "desc", md.Description)
	assert.Equal(t, "https://ipfs.io/ipfs/bafyimage", md.Image)
	assert.Equal(t, "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", md.Creator)
	assert.EqualValues(t, 16, md.Raw["sip"])
}

func TestResolve_EventURISkipsContractRead(t *testing.T) {
	tm := setupTestResolver(t)
	defer tm.ctrl.Finish()

	tm.httpClient.EXPECT().Get(gomock.Any(), "https://ipfs.io/ipfs/bafymeta", gomock.Any()).
		DoAndReturn(respondWith(`{"title": "Legacy", "image_url": "https://x.io/1.png", "artist": "someone"}`))

	md, err := tm.resolver.Resolve(context.Background(), 1, "ipfs://bafymeta")
	require.NoError(t, err)
	assert.Equal(t, "Legacy", md.Name)
	assert.Equal(t, "https://x.io/1.png", md.Image)
	assert.Equal(t, "someone", md.Creator)
}

func TestResolve_NoTokenURI(t *testing.T) {
	tm := setupTestResolver(t)
	defer tm.ctrl.Finish()

	tm.stacksClient.EXPECT().GetTokenURI(gomock.Any(), uint64(9)).Return("", nil)

	md, err := tm.resolver.Resolve(context.Background(), 9, "")
	require.NoError(t, err)
	assert.Nil(t, md)
}

func TestResolve_DataURI(t *testing.T) {
	tm := setupTestResolver(t)
	defer tm.ctrl.Finish()

	doc := `{"name":"Inline","image":"ar://abc"}`

	tests := []struct {
		name string
		uri  string
	}{
		{"base64", "data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(doc))},
		{"plain", "data:application/json," + doc},
		{"escaped", "data:application/json,%7B%22name%22%3A%22Inline%22%2C%22image%22%3A%22ar%3A%2F%2Fabc%22%7D"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := tm.resolver.Resolve(context.Background(), 1, tt.uri)
			require.NoError(t, err)
			assert.Equal(t, "Inline", md.Name)
			assert.Equal(t, "https://arweave.net/abc", md.Image)
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	tm := setupTestResolver(t)
	defer tm.ctrl.Finish()

	t.Run("contract read fails", func(t *testing.T) {
		tm.stacksClient.EXPECT().GetTokenURI(gomock.Any(), uint64(2)).Return("", errors.New("node down"))
		_, err := tm.resolver.Resolve(context.Background(), 2, "")
		assert.ErrorContains(t, err, "node down")
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := tm.resolver.Resolve(context.Background(), 2, "ftp://x/1.json")
		assert.ErrorContains(t, err, "unsupported URI scheme")
	})

	t.Run("bad data uri", func(t *testing.T) {
		_, err := tm.resolver.Resolve(context.Background(), 2, "data:application/json;base64")
		assert.Error(t, err)
	})

	t.Run("http error", func(t *testing.T) {
		tm.httpClient.EXPECT().Get(gomock.Any(), "https://x.io/2.json", gomock.Any()).Return(errors.New("404"))
		_, err := tm.resolver.Resolve(context.Background(), 2, "https://x.io/2.json")
		assert.ErrorContains(t, err, "404")
	})
}
