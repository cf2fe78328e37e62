package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/slotswap/slotswap-api/internal/dto"
	"github.com/slotswap/slotswap-api/internal/models"
	"github.com/slotswap/slotswap-api/internal/repository"
	"github.com/slotswap/slotswap-api/pkg/config"
	appErrors "github.com/slotswap/slotswap-api/pkg/errors"
)

// Notifier is the realtime delivery port. Delivery is best-effort and
// at-most-once; implementations must never block on an offline recipient.
type Notifier interface {
	Notify(userID string, event dto.SwapEvent, payload interface{})
}

type swapStore interface {
	FindByID(ctx context.Context, id string) (*models.SwapRequest, error)
	OpenNegotiation(ctx context.Context, req *models.SwapRequest) error
	AcceptNegotiation(ctx context.Context, req *models.SwapRequest, newMyOwner, newTheirOwner string) error
	ReleaseNegotiation(ctx context.Context, req *models.SwapRequest) error
	FindViewByID(ctx context.Context, id string) (*dto.SwapRequestView, error)
	ListViewsForRecipient(ctx context.Context, userID string) ([]dto.SwapRequestView, error)
	ListViewsForRequester(ctx context.Context, userID string) ([]dto.SwapRequestView, error)
}

type swapSlotReader interface {
	FindByID(ctx context.Context, id string) (*models.Slot, error)
}

type swapUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type swapCache interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type swapMetrics interface {
	ObserveSwapOutcome(outcome string)
}

// SwapService is the negotiation engine: it owns every slot status
// transition tied to the request lifecycle and the notification side
// effects of each transition.
type SwapService struct {
	swaps     swapStore
	slots     swapSlotReader
	users     swapUserReader
	notifier  Notifier
	cache     swapCache
	metrics   swapMetrics
	cfg       config.SwapsConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSwapService builds a SwapService. The notifier is injected here and
// never reached through shared state; nil disables dispatch entirely.
func NewSwapService(
	swaps swapStore,
	slots swapSlotReader,
	users swapUserReader,
	notifier Notifier,
	cache swapCache,
	metrics swapMetrics,
	cfg config.SwapsConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *SwapService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwapService{
		swaps:     swaps,
		slots:     slots,
		users:     users,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
}

// Create opens a negotiation: the requester offers MySlotID against
// TheirSlotID. Both slots must be SWAPPABLE; both are locked to
// SWAP_PENDING in the same transaction that records the PENDING request.
func (s *SwapService) Create(ctx context.Context, requesterID string, req dto.CreateSwapRequest) (*dto.SwapRequestView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "please provide both slot IDs")
	}

	mySlot, err := s.slots.FindByID(ctx, req.MySlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "your slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if mySlot.OwnerID != requesterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not own this slot")
	}
	if mySlot.Status != models.SlotSwappable {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "your slot is not available for swapping")
	}

	theirSlot, err := s.slots.FindByID(ctx, req.TheirSlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "requested slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if theirSlot.Status != models.SlotSwappable {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "requested slot is not available for swapping")
	}
	if !s.cfg.AllowSelfSwap && theirSlot.OwnerID == requesterID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot swap with yourself")
	}

	record := &models.SwapRequest{
		ID:          uuid.NewString(),
		MySlotID:    mySlot.ID,
		TheirSlotID: theirSlot.ID,
		RequesterID: requesterID,
		RecipientID: theirSlot.OwnerID,
		Status:      models.RequestPending,
		CreatedAt:   nowUTC(),
		UpdatedAt:   nowUTC(),
	}

	if err := s.swaps.OpenNegotiation(ctx, record); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "slot is no longer available for swapping")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create swap request")
	}

	s.invalidateSwappable(ctx)
	s.observe("created")

	view, err := s.swaps.FindViewByID(ctx, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load swap request")
	}

	s.dispatch(record.RecipientID, dto.EventSwapRequestReceived, view, s.actorName(ctx, requesterID))
	return view, nil
}

// Respond settles a pending negotiation. Only the recipient may respond.
// Rejection reverts both slots to SWAPPABLE; acceptance exchanges ownership
// and parks both slots as BUSY under their new owners.
func (s *SwapService) Respond(ctx context.Context, responderID, requestID string, accept bool) (*dto.SwapRequestView, error) {
	record, err := s.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if record.RecipientID != responderID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to respond to this request")
	}

	if !accept {
		if err := s.release(ctx, record); err != nil {
			return nil, err
		}
		s.observe("rejected")
		return s.finish(ctx, record, record.RequesterID, dto.EventSwapRequestDeclined, s.actorName(ctx, responderID))
	}

	// Re-fetch both slots for the current owners; the request only holds
	// identities, not ownership state.
	mySlot, err := s.slots.FindByID(ctx, record.MySlotID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	theirSlot, err := s.slots.FindByID(ctx, record.TheirSlotID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}

	if err := s.swaps.AcceptNegotiation(ctx, record, theirSlot.OwnerID, mySlot.OwnerID); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "swap request has already been responded to")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept swap request")
	}

	s.invalidateSwappable(ctx)
	s.observe("accepted")
	return s.finish(ctx, record, record.RequesterID, dto.EventSwapRequestAccepted, s.actorName(ctx, responderID))
}

// Cancel withdraws a pending negotiation. Either party may cancel; the
// other party is notified.
func (s *SwapService) Cancel(ctx context.Context, callerID, requestID string) (*dto.SwapRequestView, error) {
	record, err := s.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if record.RequesterID != callerID && record.RecipientID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to cancel this request")
	}

	if err := s.release(ctx, record); err != nil {
		return nil, err
	}
	s.observe("cancelled")

	counterparty := record.RequesterID
	if callerID == record.RequesterID {
		counterparty = record.RecipientID
	}
	return s.finish(ctx, record, counterparty, dto.EventSwapRequestCancelled, s.actorName(ctx, callerID))
}

// ListForUser returns the user's requests grouped by direction, populated
// for display and sorted newest first.
func (s *SwapService) ListForUser(ctx context.Context, userID string) (*dto.SwapRequestLists, error) {
	incoming, err := s.swaps.ListViewsForRecipient(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list swap requests")
	}
	outgoing, err := s.swaps.ListViewsForRequester(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list swap requests")
	}
	return &dto.SwapRequestLists{Incoming: incoming, Outgoing: outgoing}, nil
}

func (s *SwapService) loadPending(ctx context.Context, requestID string) (*models.SwapRequest, error) {
	record, err := s.swaps.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "swap request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load swap request")
	}
	if record.Status != models.RequestPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "swap request has already been responded to")
	}
	return record, nil
}

func (s *SwapService) release(ctx context.Context, record *models.SwapRequest) error {
	if err := s.swaps.ReleaseNegotiation(ctx, record); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return appErrors.Clone(appErrors.ErrInvalidState, "swap request has already been responded to")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update swap request")
	}
	s.invalidateSwappable(ctx)
	return nil
}

// finish reloads the populated view and dispatches the event to the target
// party. Dispatch failures never surface to the caller.
func (s *SwapService) finish(ctx context.Context, record *models.SwapRequest, targetUserID string, event dto.SwapEvent, actorName string) (*dto.SwapRequestView, error) {
	view, err := s.swaps.FindViewByID(ctx, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load swap request")
	}
	s.dispatch(targetUserID, event, view, actorName)
	return view, nil
}

func (s *SwapService) dispatch(targetUserID string, event dto.SwapEvent, view *dto.SwapRequestView, actorName string) {
	if s.notifier == nil || view == nil {
		return
	}
	payload := dto.SwapNotification{
		RequestID:     view.ID,
		ActorName:     actorName,
		RequesterName: fallbackName(view.Requester.Name),
		RecipientName: fallbackName(view.Recipient.Name),
		MySlot: dto.NotificationSlot{
			Title:     view.MySlot.Title,
			StartTime: view.MySlot.StartTime,
			EndTime:   view.MySlot.EndTime,
		},
		TheirSlot: dto.NotificationSlot{
			Title:     view.TheirSlot.Title,
			StartTime: view.TheirSlot.StartTime,
			EndTime:   view.TheirSlot.EndTime,
		},
	}
	s.notifier.Notify(targetUserID, event, payload)
}

// actorName resolves a best-effort display name for notification payloads.
// A missing user row degrades to the legacy "User" fallback, never an error.
func (s *SwapService) actorName(ctx context.Context, userID string) string {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to resolve actor name", zap.String("user_id", userID), zap.Error(err))
		}
		return "User"
	}
	return user.DisplayName()
}

func (s *SwapService) invalidateSwappable(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, swappableCachePattern); err != nil {
		s.logger.Warn("failed to invalidate swappable cache", zap.Error(err))
	}
}

func (s *SwapService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveSwapOutcome(outcome)
	}
}

func fallbackName(name string) string {
	if name == "" {
		return "User"
	}
	return name
}
