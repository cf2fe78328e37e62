package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/slotswap/slotswap-api/internal/dto"
	"github.com/slotswap/slotswap-api/internal/models"
	"github.com/slotswap/slotswap-api/internal/repository"
	"github.com/slotswap/slotswap-api/pkg/config"
	appErrors "github.com/slotswap/slotswap-api/pkg/errors"
	"github.com/slotswap/slotswap-api/pkg/export"
)

const (
	swappableCachePattern = "swappable:*"
	swappableCacheKeyFmt  = "swappable:exclude:%s"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

type slotStore interface {
	Create(ctx context.Context, slot *models.Slot) error
	FindByID(ctx context.Context, id string) (*models.Slot, error)
	Update(ctx context.Context, slot *models.Slot) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Slot, error)
	ListSwappable(ctx context.Context, excludeOwnerID string) ([]models.SlotWithOwner, error)
	UpdateStatusIf(ctx context.Context, id string, from, to models.SlotStatus) error
}

type slotCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type slotMetrics interface {
	ObserveCacheLookup(hit bool)
}

// SlotService owns slot CRUD and the owner-driven half of the slot state
// machine (BUSY <-> SWAPPABLE). SWAP_PENDING is entered and left only by
// the negotiation engine.
type SlotService struct {
	repo      slotStore
	cache     slotCache
	metrics   slotMetrics
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSlotService builds a SlotService with sane defaults.
func NewSlotService(
	repo slotStore,
	cache slotCache,
	metrics slotMetrics,
	cfg config.CacheConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		cacheTTL:  cfg.SwappableTTL,
		validator: validate,
		logger:    logger,
	}
}

// Create stores a new slot in BUSY status.
func (s *SlotService) Create(ctx context.Context, ownerID string, req dto.CreateSlotRequest) (*models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "please provide all required fields")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	slot := &models.Slot{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      models.SlotBusy,
		OwnerID:     ownerID,
		CreatedAt:   nowUTC(),
		UpdatedAt:   nowUTC(),
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create slot")
	}
	return slot, nil
}

// ListMine returns the caller's slots ordered by start time.
func (s *SlotService) ListMine(ctx context.Context, ownerID string) ([]models.Slot, error) {
	slots, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	return slots, nil
}

// Update edits slot fields. Slots locked in SWAP_PENDING cannot be edited.
func (s *SlotService) Update(ctx context.Context, ownerID, slotID string, req dto.UpdateSlotRequest) (*models.Slot, error) {
	slot, err := s.ownedSlot(ctx, ownerID, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status == models.SlotSwapPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "cannot edit a slot while a swap is pending")
	}

	if req.Title != nil {
		slot.Title = *req.Title
	}
	if req.Description != nil {
		slot.Description = *req.Description
	}
	if req.StartTime != nil {
		slot.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		slot.EndTime = *req.EndTime
	}
	if !slot.EndTime.After(slot.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	slot.UpdatedAt = nowUTC()

	if err := s.repo.Update(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update slot")
	}
	s.invalidate(ctx)
	return slot, nil
}

// Delete removes a slot. Slots locked in SWAP_PENDING cannot be deleted.
func (s *SlotService) Delete(ctx context.Context, ownerID, slotID string) error {
	slot, err := s.ownedSlot(ctx, ownerID, slotID)
	if err != nil {
		return err
	}
	if slot.Status == models.SlotSwapPending {
		return appErrors.Clone(appErrors.ErrInvalidState, "cannot delete a slot while a swap is pending")
	}

	if err := s.repo.Delete(ctx, slotID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete slot")
	}
	s.invalidate(ctx)
	return nil
}

// ToggleSwappable flips a slot between BUSY and SWAPPABLE. A slot locked by
// a pending negotiation cannot be toggled out from under it.
func (s *SlotService) ToggleSwappable(ctx context.Context, ownerID, slotID string) (*models.Slot, error) {
	slot, err := s.ownedSlot(ctx, ownerID, slotID)
	if err != nil {
		return nil, err
	}

	var next models.SlotStatus
	switch slot.Status {
	case models.SlotBusy:
		next = models.SlotSwappable
	case models.SlotSwappable:
		next = models.SlotBusy
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "cannot toggle status for slots in SWAP_PENDING state")
	}

	if err := s.repo.UpdateStatusIf(ctx, slot.ID, slot.Status, next); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "slot status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update slot status")
	}
	slot.Status = next
	slot.UpdatedAt = nowUTC()
	s.invalidate(ctx)
	return slot, nil
}

// ListSwappable returns every other user's SWAPPABLE slots, cache-aside.
func (s *SlotService) ListSwappable(ctx context.Context, excludeOwnerID string) ([]models.SlotWithOwner, error) {
	key := fmt.Sprintf(swappableCacheKeyFmt, excludeOwnerID)

	if s.cache != nil {
		var cached []models.SlotWithOwner
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.observeLookup(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("swappable cache read failed", zap.Error(err))
		}
		s.observeLookup(false)
	}

	slots, err := s.repo.ListSwappable(ctx, excludeOwnerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list swappable slots")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, slots, s.cacheTTL); err != nil {
			s.logger.Warn("swappable cache write failed", zap.Error(err))
		}
	}
	return slots, nil
}

// Export renders the caller's slots as CSV or PDF.
func (s *SlotService) Export(ctx context.Context, ownerID string, format dto.ExportFormat) ([]byte, string, error) {
	slots, err := s.ListMine(ctx, ownerID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Title", "Description", "Start", "End", "Status"},
	}
	for _, slot := range slots {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Title":       slot.Title,
			"Description": slot.Description,
			"Start":       slot.StartTime.Format(time.RFC3339),
			"End":         slot.EndTime.Format(time.RFC3339),
			"Status":      string(slot.Status),
		})
	}

	switch format {
	case dto.ExportCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
		}
		return payload, "text/csv", nil
	case dto.ExportPDF:
		payload, err := s.pdf.Render(dataset, "My Slots")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *SlotService) ownedSlot(ctx context.Context, ownerID, slotID string) (*models.Slot, error) {
	slot, err := s.repo.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if slot.OwnerID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to modify this slot")
	}
	return slot, nil
}

func (s *SlotService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, swappableCachePattern); err != nil {
		s.logger.Warn("failed to invalidate swappable cache", zap.Error(err))
	}
}

func (s *SlotService) observeLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.ObserveCacheLookup(hit)
	}
}
