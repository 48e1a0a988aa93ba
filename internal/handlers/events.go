package handlers

import (
	"net/http"
	"strings"

	apperrors "seatwise/internal/errors"
	"seatwise/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateEvent - POST /api/events
func (h *Handlers) CreateEvent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.CreateEventInput
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.services.Events.Create(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.NewEventResponse(event))
}

// ListEvents - GET /api/events
func (h *Handlers) ListEvents(c *gin.Context) {
	events, err := h.services.Events.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewEventListResponse(events))
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	event, err := h.services.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewEventResponse(event))
}

// SearchEvents - GET /api/events/search?q=
func (h *Handlers) SearchEvents(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		respondError(c, apperrors.Invalid("q", "query is required"))
		return
	}

	events, err := h.services.Events.Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewEventListResponse(events))
}

// UpdateEvent - PATCH /api/events/:id
func (h *Handlers) UpdateEvent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.UpdateEventInput
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.services.Events.Update(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewEventResponse(event))
}

// DeleteEvent - DELETE /api/events/:id
func (h *Handlers) DeleteEvent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	if err := h.services.Events.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
