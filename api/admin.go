package api

import (
	"net/http"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/Domenick1991/airticket/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	service booking.CheckoutUseCase
	logger  *logrus.Logger
}

type overrideStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type overrideStatusResponse struct {
	Status  string         `json:"status"`
	Applied bool           `json:"applied"`
	Ticket  *domain.Ticket `json:"ticket,omitempty"`
}

func NewAdminHandler(service booking.CheckoutUseCase, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{service: service, logger: logger}
}

// Register expects router to be behind middleware.Auth and RequireRole(admin).
func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.PATCH("/tickets/:id/status", h.overrideStatus)
}

func (h *AdminHandler) overrideStatus(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := ticketID(c)
	if !ok {
		return
	}

	var req overrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outcome, err := domain.ParseOverrideOutcome(req.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	res, err := h.service.OverrideStatus(c.Request.Context(), identity, id, outcome)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, overrideStatusResponse{
		Status:  res.Outcome.String(),
		Applied: res.Applied,
		Ticket:  res.Ticket,
	})
}
