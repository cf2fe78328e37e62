package dto

import (
	"time"

	"github.com/slotswap/slotswap-api/internal/models"
)

// CreateSwapRequest is the payload for opening a negotiation: the caller
// offers mySlotId in exchange for theirSlotId.
type CreateSwapRequest struct {
	MySlotID    string `json:"mySlotId" validate:"required"`
	TheirSlotID string `json:"theirSlotId" validate:"required"`
}

// RespondSwapRequest carries the recipient's decision.
type RespondSwapRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

// PartyInfo is the resolved display snapshot of a user referenced by a
// swap request.
type PartyInfo struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Email  string `db:"email" json:"email"`
	Avatar string `db:"avatar" json:"avatar"`
}

// SlotInfo is the resolved display snapshot of a slot referenced by a
// swap request.
type SlotInfo struct {
	ID        string            `db:"id" json:"id"`
	Title     string            `db:"title" json:"title"`
	StartTime time.Time         `db:"start_time" json:"startTime"`
	EndTime   time.Time         `db:"end_time" json:"endTime"`
	Status    models.SlotStatus `db:"status" json:"status"`
	OwnerID   string            `db:"owner_id" json:"ownerId"`
}

// SwapRequestView is a swap request with its slot and user references
// resolved for display, the relational equivalent of a populated document.
type SwapRequestView struct {
	ID        string               `json:"id"`
	Status    models.RequestStatus `json:"status"`
	MySlot    SlotInfo             `json:"mySlot"`
	TheirSlot SlotInfo             `json:"theirSlot"`
	Requester PartyInfo            `json:"requester"`
	Recipient PartyInfo            `json:"recipient"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// SwapRequestLists groups a user's requests by direction.
type SwapRequestLists struct {
	Incoming []SwapRequestView `json:"incoming"`
	Outgoing []SwapRequestView `json:"outgoing"`
}
