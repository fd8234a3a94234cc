package server_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-stacks-mint/internal/api/middleware"
	"github.com/feral-file/ff-stacks-mint/internal/api/server"
	"github.com/feral-file/ff-stacks-mint/internal/domain"
	"github.com/feral-file/ff-stacks-mint/internal/minting"
	"github.com/feral-file/ff-stacks-mint/internal/mocks"
	"github.com/feral-file/ff-stacks-mint/internal/store"
	"github.com/feral-file/ff-stacks-mint/internal/store/schema"
)

const (
	creator = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"
	txID    = "0x5c3a1e7a2e6a5bd0d4b0b6a1c9d8e7f60123456789abcdef0123456789abcdef"
)

// testServerMocks contains all mocks needed for testing the API server
type testServerMocks struct {
	ctrl        *gomock.Controller
	store       *mocks.MockStore
	coordinator *mocks.MockCoordinator
	router      *gin.Engine
}

func setupTestServer(t *testing.T, cfg server.Config) *testServerMocks {
	ctrl := gomock.NewController(t)

	tm := &testServerMocks{
		ctrl:        ctrl,
		store:       mocks.NewMockStore(ctrl),
		coordinator: mocks.NewMockCoordinator(ctrl),
	}

	if cfg.MaxMediaSize == 0 {
		cfg.MaxMediaSize = 1024
	}
	router, err := server.New(cfg, tm.store, tm.coordinator).Router()
	require.NoError(t, err)
	tm.router = router

	return tm
}

func (tm *testServerMocks) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	tm.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func mintRequest(t *testing.T, fields map[string]string, media []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if media != nil {
		part, err := w.CreateFormFile("file", "art.png")
		require.NoError(t, err)
		_, err = part.Write(media)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mint", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"creator":     creator,
		"title":       "Sunrise",
		"description": "First light",
	}
}

func testAsset() *schema.Asset {
	price := decimal.RequireFromString("12.5")
	minted := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &schema.Asset{
		TokenID:        "7",
		Network:        "testnet",
		ContractID:     "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.creator-nft",
		CreatorAddress: creator,
		OwnerAddress:   creator,
		Title:          "Sunrise",
		MediaURL:       "http://localhost:8080/media/nfts/media/7",
		MetadataURL:    "http://localhost:8080/media/nfts/metadata/7.json",
		Listed:         true,
		ListingPrice:   &price,
		MintTxID:       txID,
		LastTxID:       txID,
		Attributes:     []byte(`{"edition":"1"}`),
		MintedAt:       &minted,
	}
}

func TestHealthCheck(t *testing.T) {
	tm := setupTestServer(t, server.Config{})

	rec := tm.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	_, err := uuid.Parse(rec.Header().Get(middleware.REQUEST_ID_HEADER))
	assert.NoError(t, err)
}

func TestRequestID_ReusesCallerID(t *testing.T) {
	tm := setupTestServer(t, server.Config{})

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.REQUEST_ID_HEADER, id)
	rec := tm.do(req)
	assert.Equal(t, id, rec.Header().Get(middleware.REQUEST_ID_HEADER))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.REQUEST_ID_HEADER, "not-a-uuid")
	rec = tm.do(req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(middleware.REQUEST_ID_HEADER))
}

func TestMint_Success(t *testing.T) {
	tm := setupTestServer(t, server.Config{})

	media := []byte("\x89PNG\r\n\x1a\nimage")
	tm.coordinator.EXPECT().
		Mint(gomock.Any(), minting.MintRequest{
			Creator:     creator,
			Title:       "Sunrise",
			Description: "First light",
			Media:       media,
		}).
		Return(&minting.MintReceipt{
			TxID:          txID,
			TokenID:       7,
			MediaURL:      "http://localhost:8080/media/nfts/media/7",
			MetadataURL:   "http://localhost:8080/media/nfts/metadata/7.json",
			CorrelationID: "01J0000000000000000000000",
		}, nil)

	rec := tm.do(mintRequest(t, validFields(), media))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	env := decode(t, rec)
	assert.True(t, env.Success)
	var receipt minting.MintReceipt
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	assert.Equal(t, txID, receipt.TxID)
	assert.Equal(t, uint64(7), receipt.TokenID)
}

func TestMint_MissingFile(t *testing.T) {
	tm := setupTestServer(t, server.Config{})

	rec := tm.do(mintRequest(t, validFields(), nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "bad_request", env.Error.Code)
}

func TestMint_MissingCreator(t *testing.T) {
	tm := setupTestServer(t, server.Config{})

	fields := validFields()
	delete(fields, "creator")
	rec := tm.do(mintRequest(t, fields, []byte("image")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decode(t, rec).Error.Code)
}

func TestMint_MediaTooLarge(t *testing.T) {
	tm := setupTestServer(t, server.Config{MaxMediaSize: 8})

	rec := tm.do(mintRequest(t, validFields(), bytes.Repeat([]byte("a"), 16)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", decode(t, rec).Error.Code)
}

func TestMint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid request",
			err:        fmt.Errorf("%w: title is required", domain.ErrInvalidRequest),
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_failed",
		},
		{
			name:       "mint in progress",
			err:        domain.ErrMintInProgress,
			wantStatus: http.StatusConflict,
			wantCode:   "mint_in_progress",
		},
		{
			name:       "rejected",
			err:        fmt.Errorf("failed to broadcast: %w", &domain.RejectedError{TxID: txID, Reason: "BadNonce"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "mint_rejected",
		},
		{
			name:       "ledger unavailable",
			err:        fmt.Errorf("failed to get nonce: %w", domain.ErrLedgerUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "ledger_unavailable",
		},
		{
			name:       "upload failed",
			err:        fmt.Errorf("%w: media: disk full", domain.ErrUploadFailed),
			wantStatus: http.StatusBadGateway,
			wantCode:   "upload_failed",
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestServer(t, server.Config{})
			tm.coordinator.EXPECT().Mint(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			rec := tm.do(mintRequest(t, validFields(), []byte("image")))

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decode(t, rec)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

func TestMint_Rejected_CarriesReason(t *testing.T) {
	tm := setupTestServer(t, server.Config{})
	tm.coordinator.EXPECT().Mint(gomock.Any(), gomock.Any()).
		Return(nil, &domain.RejectedError{TxID: txID, Reason: "NotEnoughFunds"})

	rec := tm.do(mintRequest(t, validFields(), []byte("image")))

	assert.Equal(t, "NotEnoughFunds", decode(t, rec).Error.Details)
}

type jwtKeys struct {
	private   *rsa.PrivateKey
	publicPEM string
}

func newJWTKeys(t *testing.T) jwtKeys {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return jwtKeys{
		private:   key,
		publicPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
	}
}

func (k jwtKeys) token(t *testing.T, subject string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(k.private)
	require.NoError(t, err)
	return signed
}

func TestMint_Auth(t *testing.T) {
	keys := newJWTKeys(t)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMint   bool
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "malformed header", header: "token", wantStatus: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + keys.token(t, creator, -time.Minute), wantStatus: http.StatusUnauthorized},
		{name: "subject mismatch", header: "Bearer " + keys.token(t, "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", time.Hour), wantStatus: http.StatusForbidden},
		{name: "subject matches", header: "Bearer " + keys.token(t, creator, time.Hour), wantStatus: http.StatusAccepted, wantMint: true},
		{name: "api key", header: "ApiKey operator-key", wantStatus: http.StatusAccepted, wantMint: true},
		{name: "wrong api key", header: "ApiKey other", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestServer(t, server.Config{
				Auth: middleware.AuthConfig{JWTPublicKey: keys.publicPEM, APIKeys: []string{"operator-key"}},
			})
			if tt.wantMint {
				tm.coordinator.EXPECT().Mint(gomock.Any(), gomock.Any()).Return(&minting.MintReceipt{TxID: txID}, nil)
			}

			req := mintRequest(t, validFields(), []byte("image"))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := tm.do(req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantMint, decode(t, rec).Success)
		})
	}
}

func TestRouter_InvalidJWTKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := server.New(server.Config{Auth: middleware.AuthConfig{JWTPublicKey: "not a pem"}},
		mocks.NewMockStore(ctrl), mocks.NewMockCoordinator(ctrl))

	_, err := srv.Router()
	assert.Error(t, err)
}

func TestGetMint_Confirmed(t *testing.T) {
	tm := setupTestServer(t, server.Config{})

	// ids are matched case-insensitively with or without the 0x prefix
	tm.store.EXPECT().GetAssetByMintTxID(gomock.Any(), txID).Return(testAsset(), nil)

	rec := tm.do(httptest.NewRequest(http.MethodGet, "/api/v1/mints/"+strings.ToUpper(strings.TrimPrefix(txID, "0x")), nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var status struct {
		TxID   string `json:"tx_id"`
		Status string `json:"status"`
		NFT    struct {
			TokenID      string          `json:"token_id"`
			Owner        string          `json:"owner"`
			ListingPrice string          `json:"listing_price"`
			Attributes   json.RawMessage `json:"attributes"`
		} `json:"nft"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &status))
	assert.Equal(t, txID, status.TxID)
	assert.Equal(t, "confirmed", status.Status)
	assert.Equal(t, "7", status.NFT.TokenID)
	assert.Equal(t, creator, status.NFT.Owner)
	assert.Equal(t, "12.5", status.NFT.ListingPrice)
	assert.JSONEq(t, `{"edition":"1"}`, string(status.NFT.Attributes))
}

func TestGetMint_Pending(t *testing.T) {
	tm := setupTestServer(t, server.Config{})

	tm.store.EXPECT().GetAssetByMintTxID(gomock.Any(), txID).Return(nil, nil)
	tm.coordinator.EXPECT().Pending(txID).Return(&minting.PendingMint{TxID: txID, TokenID: 7, Creator: creator}, true)

	rec := tm.do(httptest.NewRequest(http.MethodGet, "/api/v1/mints/"+txID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Status  string              `json:"status"`
		Pending minting.PendingMint `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &status))
	assert.Equal(t, "pending", status.Status)
	assert.Equal(t, uint64(7), status.Pending.TokenID)
}

func TestGetMint_NotFound(t *testing.T) {
	tm := setupTestServer(t, server.Config{})

	tm.store.EXPECT().GetAssetByMintTxID(gomock.Any(), txID).Return(nil, nil)
	tm.coordinator.EXPECT().Pending(txID).Return(nil, false)

	rec := tm.do(httptest.NewRequest(http.MethodGet, "/api/v1/mints/"+txID, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec).Error.Code)
}

func TestGetMint_InvalidTxID(t *testing.T) {
	tm := setupTestServer(t, server.Config{})

	rec := tm.do(httptest.NewRequest(http.MethodGet, "/api/v1/mints/0x1234", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetNFT(t *testing.T) {
	tm := setupTestServer(t, server.Config{})
	tm.store.EXPECT().GetAsset(gomock.Any(), "7").Return(testAsset(), nil)

	rec := tm.do(httptest.NewRequest(http.MethodGet, "/api/v1/nfts/7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var nft struct {
		TokenID string `json:"token_id"`
		Listed  bool   `json:"listed"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &nft))
	assert.Equal(t, "7", nft.TokenID)
	assert.True(t, nft.Listed)
}

func TestGetNFT_Errors(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		tm := setupTestServer(t, server.Config{})
		rec := tm.do(httptest.NewRequest(http.MethodGet, "/api/v1/nfts/-1", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		tm := setupTestServer(t, server.Config{})
		tm.store.EXPECT().GetAsset(gomock.Any(), "9").Return(nil, nil)
		rec := tm.do(httptest.NewRequest(http.MethodGet, "/api/v1/nfts/9", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store error", func(t *testing.T) {
		tm := setupTestServer(t, server.Config{})
		tm.store.EXPECT().GetAsset(gomock.Any(), "9").Return(nil, errors.New("connection refused"))
		rec := tm.do(httptest.NewRequest(http.MethodGet, "/api/v1/nfts/9", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestListNFTs(t *testing.T) {
	tm := setupTestServer(t, server.Config{})

	listed := true
	tm.store.EXPECT().
		ListAssets(gomock.Any(), store.AssetFilter{Owner: creator, Listed: &listed, Limit: 5, Offset: 10}).
		Return([]schema.Asset{*testAsset()}, int64(11), nil)

	rec := tm.do(httptest.NewRequest(http.MethodGet, "/api/v1/nfts?owner="+creator+"&listed=true&limit=5&offset=10", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page struct {
		Items  []json.RawMessage `json:"items"`
		Total  int64             `json:"total"`
		Limit  int               `json:"limit"`
		Offset int               `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(11), page.Total)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 10, page.Offset)
}

func TestListNFTs_Defaults(t *testing.T) {
	tm := setupTestServer(t, server.Config{})
	tm.store.EXPECT().
		ListAssets(gomock.Any(), store.AssetFilter{Limit: 20}).
		Return(nil, int64(0), nil)

	rec := tm.do(httptest.NewRequest(http.MethodGet, "/api/v1/nfts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestListNFTs_InvalidQuery(t *testing.T) {
	for _, query := range []string{
		"limit=0",
		"limit=101",
		"offset=-1",
		"listed=maybe",
		"owner=not-a-principal",
	} {
		t.Run(query, func(t *testing.T) {
			tm := setupTestServer(t, server.Config{})
			rec := tm.do(httptest.NewRequest(http.MethodGet, "/api/v1/nfts?"+query, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, decode(t, rec).Success)
		})
	}
}

func TestShutdown_NotStarted(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := server.New(server.Config{}, mocks.NewMockStore(ctrl), mocks.NewMockCoordinator(ctrl))
	assert.NoError(t, srv.Shutdown(context.Background()))
}
