package models

import "time"

// SlotStatus is the closed set of states a slot can occupy.
type SlotStatus string

const (
	// SlotBusy is the default state; the slot is held by its owner and
	// not offered for exchange.
	SlotBusy SlotStatus = "BUSY"
	// SlotSwappable marks the slot as open to swap requests.
	SlotSwappable SlotStatus = "SWAPPABLE"
	// SlotSwapPending locks the slot while a pending request references it.
	SlotSwapPending SlotStatus = "SWAP_PENDING"
)

// Valid reports whether the status is a known value.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotBusy, SlotSwappable, SlotSwapPending:
		return true
	}
	return false
}

// Slot is a personal time slot owned by exactly one user at a time.
// Ownership changes only through an accepted swap.
type Slot struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	StartTime   time.Time  `db:"start_time" json:"startTime"`
	EndTime     time.Time  `db:"end_time" json:"endTime"`
	Status      SlotStatus `db:"status" json:"status"`
	OwnerID     string     `db:"owner_id" json:"ownerId"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// SlotWithOwner embeds the resolved owner display fields alongside the slot.
type SlotWithOwner struct {
	Slot
	OwnerName   string `db:"owner_name" json:"ownerName"`
	OwnerEmail  string `db:"owner_email" json:"ownerEmail"`
	OwnerAvatar string `db:"owner_avatar" json:"ownerAvatar"`
}
