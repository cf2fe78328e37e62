package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/slotswap/slotswap-api/internal/dto"
	"github.com/slotswap/slotswap-api/internal/models"
)

// SwapRepository provides persistence for swap requests and the transactional
// two-slot transitions tied to them. Every multi-row write runs in a single
// transaction with conditional updates, so exactly one of two racing callers
// commits; the other sees ErrStaleState and nothing is left half-applied.
type SwapRepository struct {
	db *sqlx.DB
}

// NewSwapRepository constructs the repository.
func NewSwapRepository(db *sqlx.DB) *SwapRepository {
	return &SwapRepository{db: db}
}

const swapColumns = "id, my_slot_id, their_slot_id, requester_id, recipient_id, status, created_at, updated_at"

// FindByID returns the swap request with the given id or sql.ErrNoRows.
func (r *SwapRepository) FindByID(ctx context.Context, id string) (*models.SwapRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM swap_requests WHERE id = $1 LIMIT 1", swapColumns)

	var req models.SwapRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find swap request by id: %w", err)
	}
	return &req, nil
}

// OpenNegotiation atomically locks both slots into SWAP_PENDING and inserts
// the PENDING request. Either slot already out of SWAPPABLE aborts the whole
// transaction with ErrStaleState.
func (r *SwapRepository) OpenNegotiation(ctx context.Context, req *models.SwapRequest) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := updateSlotStatusIf(ctx, tx, req.MySlotID, models.SlotSwappable, models.SlotSwapPending); err != nil {
			return err
		}
		if err := updateSlotStatusIf(ctx, tx, req.TheirSlotID, models.SlotSwappable, models.SlotSwapPending); err != nil {
			return err
		}

		const query = `
INSERT INTO swap_requests (id, my_slot_id, their_slot_id, requester_id, recipient_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		if _, err := tx.ExecContext(ctx, query,
			req.ID, req.MySlotID, req.TheirSlotID, req.RequesterID, req.RecipientID,
			req.Status, req.CreatedAt, req.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert swap request: %w", err)
		}
		return nil
	})
}

// AcceptNegotiation atomically marks the request ACCEPTED, exchanges slot
// ownership and parks both slots as BUSY under their new owners.
// newMyOwner/newTheirOwner are the post-exchange owners of mySlot/theirSlot.
func (r *SwapRepository) AcceptNegotiation(ctx context.Context, req *models.SwapRequest, newMyOwner, newTheirOwner string) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := updateRequestStatusIf(ctx, tx, req.ID, models.RequestPending, models.RequestAccepted); err != nil {
			return err
		}
		if err := reassignSlotIf(ctx, tx, req.MySlotID, newMyOwner, models.SlotSwapPending, models.SlotBusy); err != nil {
			return err
		}
		return reassignSlotIf(ctx, tx, req.TheirSlotID, newTheirOwner, models.SlotSwapPending, models.SlotBusy)
	})
}

// ReleaseNegotiation atomically marks the request REJECTED and reverts both
// slots to SWAPPABLE. Used for rejection and cancellation alike.
func (r *SwapRepository) ReleaseNegotiation(ctx context.Context, req *models.SwapRequest) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := updateRequestStatusIf(ctx, tx, req.ID, models.RequestPending, models.RequestRejected); err != nil {
			return err
		}
		if err := updateSlotStatusIf(ctx, tx, req.MySlotID, models.SlotSwapPending, models.SlotSwappable); err != nil {
			return err
		}
		return updateSlotStatusIf(ctx, tx, req.TheirSlotID, models.SlotSwapPending, models.SlotSwappable)
	})
}

// FindViewByID returns the populated projection of a single request.
func (r *SwapRepository) FindViewByID(ctx context.Context, id string) (*dto.SwapRequestView, error) {
	query := swapViewQuery + " WHERE r.id = $1"

	var row swapViewRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find swap request view: %w", err)
	}
	view := row.toView()
	return &view, nil
}

// ListViewsForRecipient returns populated incoming requests, newest first.
func (r *SwapRepository) ListViewsForRecipient(ctx context.Context, userID string) ([]dto.SwapRequestView, error) {
	return r.listViews(ctx, "r.recipient_id", userID)
}

// ListViewsForRequester returns populated outgoing requests, newest first.
func (r *SwapRepository) ListViewsForRequester(ctx context.Context, userID string) ([]dto.SwapRequestView, error) {
	return r.listViews(ctx, "r.requester_id", userID)
}

func (r *SwapRepository) listViews(ctx context.Context, column, userID string) ([]dto.SwapRequestView, error) {
	query := fmt.Sprintf("%s WHERE %s = $1 ORDER BY r.created_at DESC", swapViewQuery, column)

	var rows []swapViewRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list swap request views: %w", err)
	}
	views := make([]dto.SwapRequestView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.toView())
	}
	return views, nil
}

func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func updateRequestStatusIf(ctx context.Context, ext sqlx.ExtContext, id string, from, to models.RequestStatus) error {
	const query = `
UPDATE swap_requests SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2`

	res, err := ext.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("conditional request status update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conditional request status update: %w", err)
	}
	if affected == 0 {
		return ErrStaleState
	}
	return nil
}

const swapViewQuery = `
SELECT
	r.id, r.status, r.created_at, r.updated_at,
	ms.id AS my_slot_id, ms.title AS my_slot_title,
	ms.start_time AS my_slot_start, ms.end_time AS my_slot_end,
	ms.status AS my_slot_status, ms.owner_id AS my_slot_owner,
	ts.id AS their_slot_id, ts.title AS their_slot_title,
	ts.start_time AS their_slot_start, ts.end_time AS their_slot_end,
	ts.status AS their_slot_status, ts.owner_id AS their_slot_owner,
	rq.id AS requester_id, rq.name AS requester_name,
	rq.email AS requester_email, rq.avatar AS requester_avatar,
	rc.id AS recipient_id, rc.name AS recipient_name,
	rc.email AS recipient_email, rc.avatar AS recipient_avatar
FROM swap_requests r
JOIN slots ms ON ms.id = r.my_slot_id
JOIN slots ts ON ts.id = r.their_slot_id
JOIN users rq ON rq.id = r.requester_id
JOIN users rc ON rc.id = r.recipient_id`

type swapViewRow struct {
	ID        string               `db:"id"`
	Status    models.RequestStatus `db:"status"`
	CreatedAt time.Time            `db:"created_at"`
	UpdatedAt time.Time            `db:"updated_at"`

	MySlotID     string            `db:"my_slot_id"`
	MySlotTitle  string            `db:"my_slot_title"`
	MySlotStart  time.Time         `db:"my_slot_start"`
	MySlotEnd    time.Time         `db:"my_slot_end"`
	MySlotStatus models.SlotStatus `db:"my_slot_status"`
	MySlotOwner  string            `db:"my_slot_owner"`

	TheirSlotID     string            `db:"their_slot_id"`
	TheirSlotTitle  string            `db:"their_slot_title"`
	TheirSlotStart  time.Time         `db:"their_slot_start"`
	TheirSlotEnd    time.Time         `db:"their_slot_end"`
	TheirSlotStatus models.SlotStatus `db:"their_slot_status"`
	TheirSlotOwner  string            `db:"their_slot_owner"`

	RequesterID     string `db:"requester_id"`
	RequesterName   string `db:"requester_name"`
	RequesterEmail  string `db:"requester_email"`
	RequesterAvatar string `db:"requester_avatar"`

	RecipientID     string `db:"recipient_id"`
	RecipientName   string `db:"recipient_name"`
	RecipientEmail  string `db:"recipient_email"`
	RecipientAvatar string `db:"recipient_avatar"`
}

func (row swapViewRow) toView() dto.SwapRequestView {
	return dto.SwapRequestView{
		ID:        row.ID,
		Status:    row.Status,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		MySlot: dto.SlotInfo{
			ID:        row.MySlotID,
			Title:     row.MySlotTitle,
			StartTime: row.MySlotStart,
			EndTime:   row.MySlotEnd,
			Status:    row.MySlotStatus,
			OwnerID:   row.MySlotOwner,
		},
		TheirSlot: dto.SlotInfo{
			ID:        row.TheirSlotID,
			Title:     row.TheirSlotTitle,
			StartTime: row.TheirSlotStart,
			EndTime:   row.TheirSlotEnd,
			Status:    row.TheirSlotStatus,
			OwnerID:   row.TheirSlotOwner,
		},
		Requester: dto.PartyInfo{
			ID:     row.RequesterID,
			Name:   row.RequesterName,
			Email:  row.RequesterEmail,
			Avatar: row.RequesterAvatar,
		},
		Recipient: dto.PartyInfo{
			ID:     row.RecipientID,
			Name:   row.RecipientName,
			Email:  row.RecipientEmail,
			Avatar: row.RecipientAvatar,
		},
	}
}
