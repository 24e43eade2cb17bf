package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/Domenick1991/airticket/internal/service/reconcile"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxNotificationBytes = 64 << 10

type NotificationReconciler interface {
	Reconcile(ctx context.Context, body []byte) (reconcile.Result, error)
}

// PaymentHandler receives gateway webhooks. Non-2xx responses make the
// gateway redeliver, so only failures worth retrying answer 500.
type PaymentHandler struct {
	reconciler NotificationReconciler
	logger     *logrus.Logger
}

func NewPaymentHandler(reconciler NotificationReconciler, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{reconciler: reconciler, logger: logger}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/notification", h.notification)
}

func (h *PaymentHandler) notification(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxNotificationBytes)
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed payload"})
		return
	}

	if _, err := h.reconciler.Reconcile(c.Request.Context(), body); err != nil {
		switch {
		case errors.Is(err, domain.ErrMalformedPayload):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed payload"})
		case errors.Is(err, domain.ErrInvalidSignature):
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
		case errors.Is(err, domain.ErrTicketNotFound) && !errors.Is(err, domain.ErrDataIntegrity):
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		default:
			h.logger.WithError(err).Error("payment notification failed, gateway will redeliver")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
