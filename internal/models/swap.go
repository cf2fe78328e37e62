package models

import "time"

// RequestStatus is the closed set of swap-request states. PENDING is the
// only non-terminal state; cancellation reuses REJECTED.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
)

// Terminal reports whether the status permits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

// SwapRequest links exactly two slots and two distinct users. It references
// the slots by identity only; current slot state must be re-fetched before
// every mutation.
type SwapRequest struct {
	ID          string        `db:"id" json:"id"`
	MySlotID    string        `db:"my_slot_id" json:"mySlotId"`
	TheirSlotID string        `db:"their_slot_id" json:"theirSlotId"`
	RequesterID string        `db:"requester_id" json:"requesterId"`
	RecipientID string        `db:"recipient_id" json:"recipientId"`
	Status      RequestStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}
