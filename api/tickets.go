package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/Domenick1991/airticket/internal/middleware"
	"github.com/Domenick1991/airticket/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type TicketHandler struct {
	service booking.CheckoutUseCase
	logger  *logrus.Logger
}

func NewTicketHandler(service booking.CheckoutUseCase, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{service: service, logger: logger}
}

// Register expects router to be behind middleware.Auth.
func (h *TicketHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.POST("/:id/payment", h.retryPayment)
}

func (h *TicketHandler) create(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req booking.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkout, err := h.service.Book(c.Request.Context(), identity, req)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentGateway) && checkout != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":  "payment gateway unavailable, retry payment",
				"ticket": checkout.Ticket,
			})
			return
		}
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

func (h *TicketHandler) list(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	tickets, err := h.service.ListForCustomer(c.Request.Context(), identity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (h *TicketHandler) get(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := ticketID(c)
	if !ok {
		return
	}
	ticket, err := h.service.Get(c.Request.Context(), identity, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) retryPayment(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := ticketID(c)
	if !ok {
		return
	}
	checkout, err := h.service.RetryPayment(c.Request.Context(), identity, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

func requireIdentity(c *gin.Context) (domain.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return domain.Identity{}, false
	}
	return identity, true
}

func ticketID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return uuid.Nil, false
	}
	return id, true
}
