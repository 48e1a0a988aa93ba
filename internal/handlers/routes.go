package handlers

import "github.com/gin-gonic/gin"

// Register mounts the API under /api. Event reads are public; everything
// else goes through auth.
func (h *Handlers) Register(r gin.IRouter, auth gin.HandlerFunc) {
	api := r.Group("/api")

	public := api.Group("/events")
	{
		public.GET("", h.ListEvents)
		public.GET("/search", h.SearchEvents)
		public.GET("/:id", h.GetEvent)
	}

	secured := api.Group("", auth)
	{
		events := secured.Group("/events")
		{
			events.POST("", h.CreateEvent)
			events.PATCH("/:id", h.UpdateEvent)
			events.DELETE("/:id", h.DeleteEvent)
			events.POST("/:id/reservations", h.Reserve)
			events.GET("/:id/reservations", h.ListEventReservations)
		}

		reservations := secured.Group("/reservations")
		{
			reservations.GET("", h.ListMyReservations)
			reservations.PATCH("/:id/cancel", h.CancelReservation)
		}
	}

	r.GET("/health", h.Health)
}
