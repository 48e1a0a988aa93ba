package handlers

import (
	"context"
	"errors"
	"net/http"

	"seatwise/internal/database"
	apperrors "seatwise/internal/errors"
	"seatwise/internal/logger"
	"seatwise/internal/middleware"
	"seatwise/internal/models"
	"seatwise/internal/service"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports store health. *database.DB implements it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) database.HealthCheck
}

type Handlers struct {
	services *service.Services
	health   HealthChecker
}

// NewHandlers builds the HTTP handlers. health may be nil for the in-memory store.
func NewHandlers(services *service.Services, health HealthChecker) *Handlers {
	return &Handlers{services: services, health: health}
}

// principal returns the authenticated caller or answers 401.
func principal(c *gin.Context) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
	}
	return p, ok
}

// bindJSON decodes the request body or answers 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperrors.Invalid("body", "malformed JSON: "+err.Error()))
		return false
	}
	return true
}

// respondError maps an error to its status code and envelope.
func respondError(c *gin.Context, err error) {
	resp := models.ErrorResponse{Error: err.Error(), Code: apperrors.Code(err)}
	status := http.StatusInternalServerError

	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp.Error = apperrors.ErrValidationFailed.Error()
		resp.Fields = verr.Fields
	case errors.Is(err, apperrors.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		status = http.StatusForbidden
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsConflict(err):
		status = http.StatusConflict
		if errors.Is(err, apperrors.ErrContention) {
			c.Header("Retry-After", "1")
		}
	default:
		_ = c.Error(err)
		logger.WithContext(c.Request.Context()).Error("Request failed", "error", err, "path", c.FullPath())
		resp = models.ErrorResponse{Error: "internal error", Code: "INTERNAL"}
	}

	c.AbortWithStatusJSON(status, resp)
}

// Health - GET /health
func (h *Handlers) Health(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "store": "memory"})
		return
	}

	check := h.health.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if check.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, check)
}
