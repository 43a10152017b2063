package dto

import (
	"time"

	"github.com/noah-isme/mentora-api/internal/models"
)

// MonitoredUserResolveRequest is the body accepted by the resolve endpoint.
type MonitoredUserResolveRequest struct {
	ResolutionNotes string `json:"resolution_notes" validate:"required,max=2000"`
}

// MonitoredUserResponse serialises a monitored user record.
type MonitoredUserResponse struct {
	ID              uint       `json:"id"`
	UserID          uint       `json:"user_id"`
	Reason          string     `json:"reason"`
	OperationCount  int64      `json:"operation_count"`
	TimePeriod      string     `json:"time_period"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy      *uint      `json:"resolved_by,omitempty"`
	ResolutionNotes *string    `json:"resolution_notes,omitempty"`
}

// MonitoredUserListResponse wraps a list of monitored user records.
type MonitoredUserListResponse struct {
	Items []MonitoredUserResponse `json:"items"`
	Count int                     `json:"count"`
}

// NewMonitoredUserResponse converts the model into its API representation.
func NewMonitoredUserResponse(record models.MonitoredUser) MonitoredUserResponse {
	return MonitoredUserResponse{
		ID:              record.ID,
		UserID:          record.UserID,
		Reason:          record.Reason,
		OperationCount:  record.OperationCount,
		TimePeriod:      record.TimePeriod,
		IsActive:        record.IsActive,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
		ResolvedAt:      record.ResolvedAt,
		ResolvedBy:      record.ResolvedBy,
		ResolutionNotes: record.ResolutionNotes,
	}
}

// NewMonitoredUserListResponse converts a slice of models.
func NewMonitoredUserListResponse(records []models.MonitoredUser) MonitoredUserListResponse {
	items := make([]MonitoredUserResponse, 0, len(records))
	for _, record := range records {
		items = append(items, NewMonitoredUserResponse(record))
	}
	return MonitoredUserListResponse{Items: items, Count: len(items)}
}
