package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// statusFor maps domain errors to HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDataIntegrity):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrFlightNotFound),
		errors.Is(err, domain.ErrSeatNotFound),
		errors.Is(err, domain.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSeatUnavailable),
		errors.Is(err, domain.ErrTicketNotPending):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPaymentGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
