package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/airticket/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type FlightHandler struct {
	service flights.FlightUseCase
	logger  *logrus.Logger
}

func NewFlightHandler(service flights.FlightUseCase, logger *logrus.Logger) *FlightHandler {
	return &FlightHandler{service: service, logger: logger}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/seats", h.seats)
}

func (h *FlightHandler) list(c *gin.Context) {
	flights, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, flights)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) seats(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	seats, err := h.service.ListSeats(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, seats)
}

func flightID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
