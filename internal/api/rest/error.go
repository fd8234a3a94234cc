package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stacks-mint/internal/api/middleware"
	apierrors "github.com/feral-file/ff-stacks-mint/internal/api/shared/errors"
	"github.com/feral-file/ff-stacks-mint/internal/logger"
)

// successResponse is the envelope of every successful response
type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// respondOK sends data in the success envelope
func respondOK(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, successResponse{Success: true, Data: data})
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, apiErr *apierrors.APIError) {
	c.JSON(statusCode, apierrors.NewResponse(apiErr))
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusNotFound, apierrors.NewNotFoundError(message, details...))
}

// respondValidationError sends a 400 Bad Request with validation error
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusBadRequest, apierrors.NewValidationError(details))
}

// respondDomainError maps err to a status and logs server side failures
func respondDomainError(c *gin.Context, err error, message string, fields ...zap.Field) {
	status, apiErr := apierrors.FromDomain(err)
	if status >= http.StatusInternalServerError {
		fields = append(fields,
			zap.String("message", message),
			zap.String("request_id", middleware.GetRequestID(c)))
		logger.ErrorCtx(c.Request.Context(), err, fields...)
	}
	respondWithError(c, status, apiErr)
}
