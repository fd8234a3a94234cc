package rest

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-stacks-mint/internal/clarity"
)

const (
	MAX_PAGE_SIZE     = 100
	DEFAULT_PAGE_SIZE = 20
)

// ListNFTsQueryParams holds query parameters for GET /nfts
type ListNFTsQueryParams struct {
	Owner   string `form:"owner"`
	Creator string `form:"creator"`
	Listed  *bool  `form:"-"`

	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}

// ParseListNFTsQuery parses query parameters for GET /nfts
func ParseListNFTsQuery(c *gin.Context) (*ListNFTsQueryParams, error) {
	var params ListNFTsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	if raw := c.Query("listed"); raw != "" {
		listed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("listed must be true or false")
		}
		params.Listed = &listed
	}

	return &params, nil
}

// Validate validates the query parameters
func (p *ListNFTsQueryParams) Validate() error {
	if p.Limit < 1 || p.Limit > MAX_PAGE_SIZE {
		return fmt.Errorf("limit must be between 1 and %d", MAX_PAGE_SIZE)
	}
	if p.Offset < 0 {
		return fmt.Errorf("offset must be non-negative")
	}
	for name, addr := range map[string]string{"owner": p.Owner, "creator": p.Creator} {
		if addr != "" && !clarity.IsValidAddress(addr) {
			return fmt.Errorf("%s is not a valid principal", name)
		}
	}
	return nil
}
