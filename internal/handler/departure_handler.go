package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/helsingbuss/service-booking/internal/application"
	"github.com/helsingbuss/service-booking/internal/platform/response"
)

// DepartureHandler handles HTTP requests for departures and their seat ledger.
type DepartureHandler struct {
	service *application.DepartureService
}

// NewDepartureHandler creates a new DepartureHandler.
func NewDepartureHandler(service *application.DepartureService) *DepartureHandler {
	return &DepartureHandler{service: service}
}

type reserveSeatsRequest struct {
	Seats int `json:"seats"`
}

type setTotalRequest struct {
	SeatsTotal *int `json:"seats_total" binding:"required"`
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RegisterRoutes registers all departure routes on the given router group.
func (h *DepartureHandler) RegisterRoutes(r *gin.RouterGroup) {
	departures := r.Group("/api/v1/departures")
	{
		departures.POST("", h.CreateDeparture)
		departures.GET("", h.ListDepartures)
		departures.GET("/:id", h.GetDeparture)
		departures.GET("/:id/availability", h.Availability)
		departures.POST("/:id/reservations", h.ReserveSeats)
		departures.PUT("/:id/capacity", h.SetTotal)
		departures.PUT("/:id/status", h.SetStatus)
		departures.DELETE("/:id", h.DeleteDeparture)
	}
}

// CreateDeparture handles POST /api/v1/departures.
func (h *DepartureHandler) CreateDeparture(c *gin.Context) {
	var req application.CreateDepartureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateDeparture(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListDepartures handles GET /api/v1/departures. With trip_id it lists that
// trip's departures, otherwise the next upcoming ones.
func (h *DepartureHandler) ListDepartures(c *gin.Context) {
	if raw := c.Query("trip_id"); raw != "" {
		tripID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid trip ID")
			return
		}
		result, err := h.service.ListByTrip(c.Request.Context(), tripID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, result)
		return
	}

	limit := cast.ToInt(c.DefaultQuery("limit", "20"))
	result, err := h.service.ListUpcoming(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetDeparture handles GET /api/v1/departures/:id.
func (h *DepartureHandler) GetDeparture(c *gin.Context) {
	id, ok := departureID(c)
	if !ok {
		return
	}
	result, err := h.service.GetDeparture(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Availability handles GET /api/v1/departures/:id/availability.
func (h *DepartureHandler) Availability(c *gin.Context) {
	id, ok := departureID(c)
	if !ok {
		return
	}
	result, err := h.service.Availability(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ReserveSeats handles POST /api/v1/departures/:id/reservations.
func (h *DepartureHandler) ReserveSeats(c *gin.Context) {
	id, ok := departureID(c)
	if !ok {
		return
	}
	var req reserveSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ReserveSeats(c.Request.Context(), id, req.Seats)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SetTotal handles PUT /api/v1/departures/:id/capacity.
func (h *DepartureHandler) SetTotal(c *gin.Context) {
	id, ok := departureID(c)
	if !ok {
		return
	}
	var req setTotalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SetTotal(c.Request.Context(), id, *req.SeatsTotal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SetStatus handles PUT /api/v1/departures/:id/status.
func (h *DepartureHandler) SetStatus(c *gin.Context) {
	id, ok := departureID(c)
	if !ok {
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteDeparture handles DELETE /api/v1/departures/:id.
func (h *DepartureHandler) DeleteDeparture(c *gin.Context) {
	id, ok := departureID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteDeparture(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func departureID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid departure ID")
		return uuid.Nil, false
	}
	return id, true
}
