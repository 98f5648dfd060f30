package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/helsingbuss/service-booking/internal/application"
	"github.com/helsingbuss/service-booking/internal/platform/response"
)

// AdminHandler serves the staff overview.
type AdminHandler struct {
	dashboard *application.DashboardService
	bookings  *application.BookingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(dashboard *application.DashboardService, bookings *application.BookingService) *AdminHandler {
	return &AdminHandler{dashboard: dashboard, bookings: bookings}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/api/v1/admin")
	{
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/bookings", h.ListBookings)
	}
}

// Dashboard handles GET /api/v1/admin/dashboard. Sections that could not be
// loaded are listed under warnings; the response is still 200.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	response.Success(c, h.dashboard.Overview(c.Request.Context()))
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.bookings.ListBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}
