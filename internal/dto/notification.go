package dto

import "time"

// SwapEvent identifies a realtime notification type. Values match the
// websocket event names consumed by the frontend.
type SwapEvent string

const (
	EventSwapRequestReceived  SwapEvent = "swap:request-received"
	EventSwapRequestAccepted  SwapEvent = "swap:request-accepted"
	EventSwapRequestDeclined  SwapEvent = "swap:request-declined"
	EventSwapRequestCancelled SwapEvent = "swap:request-cancelled"
)

// NotificationSlot is the compact slot snapshot carried in event payloads.
type NotificationSlot struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// SwapNotification is the best-effort display snapshot pushed to the
// counterparty of a negotiation state change. Names reflect what was known
// at dispatch time and are not a data guarantee.
type SwapNotification struct {
	RequestID     string           `json:"requestId"`
	ActorName     string           `json:"actorName"`
	RequesterName string           `json:"requesterName"`
	RecipientName string           `json:"recipientName"`
	MySlot        NotificationSlot `json:"mySlot"`
	TheirSlot     NotificationSlot `json:"theirSlot"`
}
