package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotswap/slotswap-api/internal/dto"
	"github.com/slotswap/slotswap-api/internal/models"
	appErrors "github.com/slotswap/slotswap-api/pkg/errors"
	"github.com/slotswap/slotswap-api/pkg/response"
)

type swapService interface {
	Create(ctx context.Context, requesterID string, req dto.CreateSwapRequest) (*dto.SwapRequestView, error)
	Respond(ctx context.Context, responderID, requestID string, accept bool) (*dto.SwapRequestView, error)
	Cancel(ctx context.Context, callerID, requestID string) (*dto.SwapRequestView, error)
	ListForUser(ctx context.Context, userID string) (*dto.SwapRequestLists, error)
}

type swappableLister interface {
	ListSwappable(ctx context.Context, excludeOwnerID string) ([]models.SlotWithOwner, error)
}

// SwapHandler exposes the negotiation endpoints.
type SwapHandler struct {
	service swapService
	slots   swappableLister
}

// NewSwapHandler builds a new handler.
func NewSwapHandler(service swapService, slots swappableLister) *SwapHandler {
	return &SwapHandler{service: service, slots: slots}
}

// Available godoc
// @Summary List other users' swappable slots
// @Tags Swaps
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /swaps/available [get]
func (h *SwapHandler) Available(c *gin.Context) {
	claims := claimsFromContext(c)
	slots, err := h.slots.ListSwappable(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Create godoc
// @Summary Request a swap
// @Tags Swaps
// @Accept json
// @Produce json
// @Param payload body dto.CreateSwapRequest true "Swap payload"
// @Success 201 {object} response.Envelope
// @Router /swaps/request [post]
func (h *SwapHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "please provide both slot IDs"))
		return
	}
	view, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// List godoc
// @Summary List my swap requests grouped by direction
// @Tags Swaps
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /swaps/requests [get]
func (h *SwapHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	lists, err := h.service.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lists, nil)
}

// Respond godoc
// @Summary Accept or reject a swap request
// @Tags Swaps
// @Accept json
// @Produce json
// @Param requestId path string true "Request ID"
// @Param payload body dto.RespondSwapRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /swaps/request/{requestId}/respond [post]
func (h *SwapHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.RespondSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Accept == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "please provide accept as true or false"))
		return
	}
	view, err := h.service.Respond(c.Request.Context(), claims.UserID, c.Param("requestId"), *req.Accept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Cancel godoc
// @Summary Cancel a pending swap request
// @Tags Swaps
// @Produce json
// @Param requestId path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /swaps/request/{requestId}/cancel [delete]
func (h *SwapHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	view, err := h.service.Cancel(c.Request.Context(), claims.UserID, c.Param("requestId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
