package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/helsingbuss/service-booking/internal/application"
	"github.com/helsingbuss/service-booking/internal/platform/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/api/v1/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:ref", h.GetBooking)
		bookings.PATCH("/:ref/assignment", h.AssignBooking)
	}

	offers := r.Group("/api/v1/offers")
	{
		offers.POST("/:ref/convert", h.ConvertOffer)
		offers.GET("/:ref/bookings", h.ListByOffer)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ConvertOffer handles POST /api/v1/offers/:ref/convert. The body is optional.
func (h *BookingHandler) ConvertOffer(c *gin.Context) {
	var req application.ConvertOfferRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.service.ConvertOffer(c.Request.Context(), c.Param("ref"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListBookings handles GET /api/v1/bookings.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.service.ListBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:ref.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	result, err := h.service.GetBooking(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListByOffer handles GET /api/v1/offers/:ref/bookings.
func (h *BookingHandler) ListByOffer(c *gin.Context) {
	result, err := h.service.ListByOffer(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// AssignBooking handles PATCH /api/v1/bookings/:ref/assignment.
func (h *BookingHandler) AssignBooking(c *gin.Context) {
	var req application.AssignBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AssignBooking(c.Request.Context(), c.Param("ref"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page := cast.ToInt(c.DefaultQuery("page", "1"))
	limit := cast.ToInt(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
