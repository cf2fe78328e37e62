package dto

import "time"

// CreateSlotRequest is the payload for creating a slot. New slots always
// start in BUSY status.
type CreateSlotRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required"`
}

// UpdateSlotRequest carries partial slot edits. Nil fields are untouched.
type UpdateSlotRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
}

// ExportFormat selects the rendering for slot exports.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)
