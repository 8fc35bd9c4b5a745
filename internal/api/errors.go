package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/preventive-care-server/internal/domain"
	"github.com/preventive-care-server/internal/middleware"
	"github.com/preventive-care-server/internal/service"
)

// respondError maps domain errors onto status codes and the APIError envelope.
func (s *Server) respondError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.CorrelationIDKey)

	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		catalogErr    *domain.CatalogError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, domain.NewAPIError(domain.ErrCodeValidation, "Invalid request", validationErr.Error(), requestID))
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, domain.NewAPIError(domain.ErrCodeNotFound, "Not found", notFoundErr.Error(), requestID))
	case errors.As(err, &catalogErr):
		s.deps.Logger.WithError(err).WithField("correlation_id", requestID).Error("Guideline catalog is misconfigured")
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(domain.ErrCodeCatalog, "Guideline catalog is misconfigured", "", requestID))
	case errors.Is(err, service.ErrConfirmationsDisabled):
		c.JSON(http.StatusServiceUnavailable, domain.NewAPIError(domain.ErrCodeUnavailable, "Recency confirmations are not enabled", "", requestID))
	default:
		s.deps.Logger.WithFields(logrus.Fields{
			"correlation_id": requestID,
			"path":           c.FullPath(),
		}).WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(domain.ErrCodeInternalServer, "Internal server error", "", requestID))
	}
}

// respondBindError reports a malformed request body.
func (s *Server) respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrCodeInvalidInput,
		"Malformed request body",
		err.Error(),
		c.GetString(middleware.CorrelationIDKey),
	))
}
