package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Reserve - POST /api/events/:id/reservations
func (h *Handlers) Reserve(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	reservation, err := h.services.Reservations.Reserve(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

// CancelReservation - PATCH /api/reservations/:id/cancel
func (h *Handlers) CancelReservation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	reservation, err := h.services.Reservations.Cancel(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// ListMyReservations - GET /api/reservations
func (h *Handlers) ListMyReservations(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	list, err := h.services.Reservations.ListForUser(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListEventReservations - GET /api/events/:id/reservations
func (h *Handlers) ListEventReservations(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	list, err := h.services.Reservations.ListForEvent(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
