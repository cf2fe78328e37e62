package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/slotswap/slotswap-api/internal/models"
)

// ErrStaleState is returned when a conditional status update matches no row:
// another caller completed a conflicting transition first.
var ErrStaleState = errors.New("concurrent transition won")

// SlotRepository provides persistence for time slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs the repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = "id, title, description, start_time, end_time, status, owner_id, created_at, updated_at"

// Create inserts a new slot row.
func (r *SlotRepository) Create(ctx context.Context, slot *models.Slot) error {
	const query = `
INSERT INTO slots (id, title, description, start_time, end_time, status, owner_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := r.db.ExecContext(ctx, query,
		slot.ID, slot.Title, slot.Description, slot.StartTime, slot.EndTime,
		slot.Status, slot.OwnerID, slot.CreatedAt, slot.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

// FindByID returns the slot with the given id or sql.ErrNoRows.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE id = $1 LIMIT 1", slotColumns)

	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find slot by id: %w", err)
	}
	return &slot, nil
}

// Update persists editable slot fields. Status transitions go through
// UpdateStatusIf instead.
func (r *SlotRepository) Update(ctx context.Context, slot *models.Slot) error {
	const query = `
UPDATE slots
SET title = $2, description = $3, start_time = $4, end_time = $5, updated_at = $6
WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query,
		slot.ID, slot.Title, slot.Description, slot.StartTime, slot.EndTime, slot.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	return nil
}

// Delete removes a slot row together with the settled swap requests that
// reference it, so the slot foreign keys never block the delete. A PENDING
// request cannot reference a deletable slot: opening a negotiation parks both
// slots in SWAP_PENDING, which blocks deletion upstream.
func (r *SlotRepository) Delete(ctx context.Context, id string) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const purge = `
DELETE FROM swap_requests
WHERE (my_slot_id = $1 OR their_slot_id = $1) AND status <> $2`

		if _, err := tx.ExecContext(ctx, purge, id, models.RequestPending); err != nil {
			return fmt.Errorf("delete slot swap history: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM slots WHERE id = $1", id); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		return nil
	})
}

// ListByOwner returns the owner's slots ordered by start time.
func (r *SlotRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE owner_id = $1 ORDER BY start_time ASC", slotColumns)

	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, ownerID); err != nil {
		return nil, fmt.Errorf("list slots by owner: %w", err)
	}
	return slots, nil
}

// ListSwappable returns every SWAPPABLE slot not owned by the given user,
// owner display fields resolved, ordered by start time.
func (r *SlotRepository) ListSwappable(ctx context.Context, excludeOwnerID string) ([]models.SlotWithOwner, error) {
	const query = `
SELECT
	s.id, s.title, s.description, s.start_time, s.end_time, s.status, s.owner_id, s.created_at, s.updated_at,
	u.name AS owner_name,
	u.email AS owner_email,
	u.avatar AS owner_avatar
FROM slots s
JOIN users u ON u.id = s.owner_id
WHERE s.status = $1 AND s.owner_id <> $2
ORDER BY s.start_time ASC`

	var slots []models.SlotWithOwner
	if err := r.db.SelectContext(ctx, &slots, query, models.SlotSwappable, excludeOwnerID); err != nil {
		return nil, fmt.Errorf("list swappable slots: %w", err)
	}
	return slots, nil
}

// UpdateStatusIf flips a slot's status only when the current status matches
// the expected value. Exactly one of two racing callers observes the match;
// the loser gets ErrStaleState.
func (r *SlotRepository) UpdateStatusIf(ctx context.Context, id string, from, to models.SlotStatus) error {
	return updateSlotStatusIf(ctx, r.db, id, from, to)
}

func updateSlotStatusIf(ctx context.Context, ext sqlx.ExtContext, id string, from, to models.SlotStatus) error {
	const query = `
UPDATE slots SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2`

	res, err := ext.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("conditional slot status update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conditional slot status update: %w", err)
	}
	if affected == 0 {
		return ErrStaleState
	}
	return nil
}

func reassignSlotIf(ctx context.Context, ext sqlx.ExtContext, id, newOwnerID string, from, to models.SlotStatus) error {
	const query = `
UPDATE slots SET owner_id = $2, status = $4, updated_at = $5
WHERE id = $1 AND status = $3`

	res, err := ext.ExecContext(ctx, query, id, newOwnerID, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("conditional slot reassignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conditional slot reassignment: %w", err)
	}
	if affected == 0 {
		return ErrStaleState
	}
	return nil
}
