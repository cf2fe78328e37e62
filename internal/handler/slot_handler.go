package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotswap/slotswap-api/internal/dto"
	"github.com/slotswap/slotswap-api/internal/models"
	appErrors "github.com/slotswap/slotswap-api/pkg/errors"
	"github.com/slotswap/slotswap-api/pkg/response"
)

type slotService interface {
	Create(ctx context.Context, ownerID string, req dto.CreateSlotRequest) (*models.Slot, error)
	ListMine(ctx context.Context, ownerID string) ([]models.Slot, error)
	Update(ctx context.Context, ownerID, slotID string, req dto.UpdateSlotRequest) (*models.Slot, error)
	Delete(ctx context.Context, ownerID, slotID string) error
	ToggleSwappable(ctx context.Context, ownerID, slotID string) (*models.Slot, error)
	Export(ctx context.Context, ownerID string, format dto.ExportFormat) ([]byte, string, error)
}

// SlotHandler exposes slot management endpoints.
type SlotHandler struct {
	service slotService
}

// NewSlotHandler builds a new handler.
func NewSlotHandler(service slotService) *SlotHandler {
	return &SlotHandler{service: service}
}

// Create godoc
// @Summary Create a slot
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /events [post]
func (h *SlotHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// List godoc
// @Summary List my slots
// @Tags Events
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *SlotHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	slots, err := h.service.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Update godoc
// @Summary Update a slot
// @Tags Events
// @Accept json
// @Produce json
// @Param eventId path string true "Slot ID"
// @Param payload body dto.UpdateSlotRequest true "Slot patch"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId} [put]
func (h *SlotHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("eventId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Delete godoc
// @Summary Delete a slot
// @Tags Events
// @Param eventId path string true "Slot ID"
// @Success 204
// @Router /events/{eventId} [delete]
func (h *SlotHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("eventId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ToggleSwappable godoc
// @Summary Toggle a slot between BUSY and SWAPPABLE
// @Tags Events
// @Produce json
// @Param eventId path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/toggle-swappable [patch]
func (h *SlotHandler) ToggleSwappable(c *gin.Context) {
	claims := claimsFromContext(c)
	slot, err := h.service.ToggleSwappable(c.Request.Context(), claims.UserID, c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Export godoc
// @Summary Export my slots as CSV or PDF
// @Tags Events
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200
// @Router /events/export [get]
func (h *SlotHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	format := dto.ExportFormat(c.DefaultQuery("format", string(dto.ExportCSV)))
	payload, contentType, err := h.service.Export(c.Request.Context(), claims.UserID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("slots.%s", format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
