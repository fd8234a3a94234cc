package rest

import (
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/api/middleware"
	apierrors "github.com/feral-file/ff-stacks-mint/internal/api/shared/errors"
	"github.com/feral-file/ff-stacks-mint/internal/minting"
	"github.com/feral-file/ff-stacks-mint/internal/providers/stacks"
	"github.com/feral-file/ff-stacks-mint/internal/store"
)

const (
	MEDIA_ROUTE = "/media"

	// multipartOverhead is allowed on top of the media limit for the other form fields
	multipartOverhead = 1 << 20
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)

	// Mint uploads the media and broadcasts a mint transaction
	// POST /api/v1/mint (multipart: creator, title, description, file)
	Mint(c *gin.Context)

	// GetMint reports a mint transaction as pending or confirmed
	// GET /api/v1/mints/:tx_id
	GetMint(c *gin.Context)

	// GetNFT retrieves a single asset
	// GET /api/v1/nfts/:token_id
	GetNFT(c *gin.Context)

	// ListNFTs retrieves assets with optional filters
	// GET /api/v1/nfts?owner=<principal>&creator=<principal>&listed=<bool>&limit=<limit>&offset=<offset>
	ListNFTs(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	coordinator  minting.Coordinator
	store        store.Store
	maxMediaSize int64
}

// NewHandler creates a new REST API handler
func NewHandler(coordinator minting.Coordinator, st store.Store, maxMediaSize int64) Handler {
	if maxMediaSize <= 0 {
		maxMediaSize = minting.DEFAULT_MAX_MEDIA_SIZE
	}
	return &handler{
		coordinator:  coordinator,
		store:        st,
		maxMediaSize: maxMediaSize,
	}
}

func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *handler) Mint(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxMediaSize+multipartOverhead)

	creator := strings.TrimSpace(c.PostForm("creator"))
	title := strings.TrimSpace(c.PostForm("title"))
	description := strings.TrimSpace(c.PostForm("description"))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondTooLarge(c)
			return
		}
		respondBadRequest(c, "Media file is required", err.Error())
		return
	}
	if fileHeader.Size > h.maxMediaSize {
		h.respondTooLarge(c)
		return
	}

	if creator == "" {
		respondValidationError(c, "creator is required")
		return
	}

	// A bearer token may only mint for its own principal
	if middleware.AuthType(c) == middleware.AuthTypeJWT && middleware.AuthSubject(c) != creator {
		respondWithError(c, http.StatusForbidden,
			apierrors.NewForbiddenError("Token subject does not match creator"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondBadRequest(c, "Failed to read media file", err.Error())
		return
	}
	defer func() { _ = file.Close() }()

	media, err := io.ReadAll(file)
	if err != nil {
		respondBadRequest(c, "Failed to read media file", err.Error())
		return
	}

	receipt, err := h.coordinator.Mint(c.Request.Context(), minting.MintRequest{
		Creator:     creator,
		Title:       title,
		Description: description,
		Media:       media,
	})
	if err != nil {
		respondDomainError(c, err, "Failed to mint", zap.String("creator", creator))
		return
	}

	respondOK(c, http.StatusAccepted, receipt)
}

func (h *handler) respondTooLarge(c *gin.Context) {
	respondWithError(c, http.StatusRequestEntityTooLarge, &apierrors.APIError{
		Code:    apierrors.ErrCodePayloadTooLarge,
		Message: "Media file is too large",
		Details: "limit is " + strconv.FormatInt(h.maxMediaSize, 10) + " bytes",
	})
}

func (h *handler) GetMint(c *gin.Context) {
	txID := stacks.NormalizeTxID(c.Param("tx_id"))
	if !validTxID(txID) {
		respondBadRequest(c, "Invalid transaction id")
		return
	}

	asset, err := h.store.GetAssetByMintTxID(c.Request.Context(), txID)
	if err != nil {
		respondDomainError(c, err, "Failed to get mint", zap.String("tx_id", txID))
		return
	}
	if asset != nil {
		nft := NewNFT(asset)
		respondOK(c, http.StatusOK, MintStatusResponse{TxID: txID, Status: MintStatusConfirmed, NFT: &nft})
		return
	}

	if pending, ok := h.coordinator.Pending(txID); ok {
		respondOK(c, http.StatusOK, MintStatusResponse{TxID: txID, Status: MintStatusPending, Pending: pending})
		return
	}

	respondNotFound(c, "Mint not found")
}

func (h *handler) GetNFT(c *gin.Context) {
	tokenID, err := strconv.ParseUint(c.Param("token_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid token id")
		return
	}

	asset, err := h.store.GetAsset(c.Request.Context(), strconv.FormatUint(tokenID, 10))
	if err != nil {
		respondDomainError(c, err, "Failed to get asset", zap.Uint64("token_id", tokenID))
		return
	}
	if asset == nil {
		respondNotFound(c, "Asset not found")
		return
	}

	respondOK(c, http.StatusOK, NewNFT(asset))
}

func (h *handler) ListNFTs(c *gin.Context) {
	params, err := ParseListNFTsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if err := params.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	assets, total, err := h.store.ListAssets(c.Request.Context(), store.AssetFilter{
		Owner:   params.Owner,
		Creator: params.Creator,
		Listed:  params.Listed,
		Limit:   params.Limit,
		Offset:  params.Offset,
	})
	if err != nil {
		respondDomainError(c, err, "Failed to list assets")
		return
	}

	items := make([]NFT, 0, len(assets))
	for i := range assets {
		items = append(items, NewNFT(&assets[i]))
	}

	respondOK(c, http.StatusOK, ListNFTsResponse{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// validTxID checks for a 0x-prefixed 32 byte hex id
func validTxID(txID string) bool {
	raw := strings.TrimPrefix(txID, "0x")
	if len(raw) != 64 {
		return false
	}
	_, err := hex.DecodeString(raw)
	return err == nil
}
