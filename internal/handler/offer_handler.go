package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/helsingbuss/service-booking/internal/application"
	"github.com/helsingbuss/service-booking/internal/platform/response"
)

// OfferHandler handles HTTP requests for the offer lifecycle.
type OfferHandler struct {
	service *application.OfferService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(service *application.OfferService) *OfferHandler {
	return &OfferHandler{service: service}
}

// RegisterRoutes registers all offer routes on the given router group. An
// offer is addressed by its id or its offer number.
func (h *OfferHandler) RegisterRoutes(r *gin.RouterGroup) {
	offers := r.Group("/api/v1/offers")
	{
		offers.POST("", h.SubmitOffer)
		offers.GET("", h.ListOffers)
		offers.GET("/:ref", h.GetOffer)
		offers.POST("/:ref/send", h.SendOffer)
		offers.POST("/:ref/accept", h.AcceptOffer)
		offers.POST("/:ref/decline", h.DeclineOffer)
		offers.POST("/:ref/cancel", h.CancelOffer)
	}
}

// SubmitOffer handles POST /api/v1/offers.
func (h *OfferHandler) SubmitOffer(c *gin.Context) {
	var req application.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SubmitOffer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListOffers handles GET /api/v1/offers?status=&page=&limit=.
func (h *OfferHandler) ListOffers(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.service.ListOffers(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetOffer handles GET /api/v1/offers/:ref.
func (h *OfferHandler) GetOffer(c *gin.Context) {
	result, err := h.service.GetOffer(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SendOffer handles POST /api/v1/offers/:ref/send.
func (h *OfferHandler) SendOffer(c *gin.Context) {
	var req application.SendOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SendOffer(c.Request.Context(), c.Param("ref"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// AcceptOffer handles POST /api/v1/offers/:ref/accept.
func (h *OfferHandler) AcceptOffer(c *gin.Context) {
	h.respond(c, h.service.AcceptOffer)
}

// DeclineOffer handles POST /api/v1/offers/:ref/decline.
func (h *OfferHandler) DeclineOffer(c *gin.Context) {
	h.respond(c, h.service.DeclineOffer)
}

// CancelOffer handles POST /api/v1/offers/:ref/cancel.
func (h *OfferHandler) CancelOffer(c *gin.Context) {
	h.respond(c, h.service.CancelOffer)
}

func (h *OfferHandler) respond(c *gin.Context, step func(ctx context.Context, ref string) (*application.OfferDTO, error)) {
	result, err := step(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
