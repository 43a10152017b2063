package dto

import (
	"time"

	"github.com/noah-isme/mentora-api/internal/models"
)

// ActionLogResponse serialises an action event.
type ActionLogResponse struct {
	ID            string                 `json:"id"`
	UserID        uint                   `json:"user_id"`
	Action        string                 `json:"action"`
	EntityType    string                 `json:"entity_type"`
	EntityID      string                 `json:"entity_id"`
	Details       string                 `json:"details,omitempty"`
	IPAddress     string                 `json:"ip_address,omitempty"`
	UserAgent     string                 `json:"user_agent,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// ActionLogListResponse wraps a list of action events.
type ActionLogListResponse struct {
	Items []ActionLogResponse `json:"items"`
	Count int                 `json:"count"`
}

// NewActionLogResponse converts the model into its API representation.
func NewActionLogResponse(entry models.ActionLog) ActionLogResponse {
	return ActionLogResponse{
		ID:            entry.ID,
		UserID:        entry.UserID,
		Action:        string(entry.Action),
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		Details:       entry.Details,
		IPAddress:     entry.IPAddress,
		UserAgent:     entry.UserAgent,
		CorrelationID: entry.CorrelationID,
		Metadata:      map[string]interface{}(entry.Metadata),
		OccurredAt:    entry.OccurredAt,
	}
}

// NewActionLogListResponse converts a slice of models.
func NewActionLogListResponse(entries []models.ActionLog) ActionLogListResponse {
	items := make([]ActionLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, NewActionLogResponse(entry))
	}
	return ActionLogListResponse{Items: items, Count: len(items)}
}

// WindowFrequency reports a user's qualifying action count for one window.
type WindowFrequency struct {
	TimePeriod    string    `json:"time_period"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	Count         int64     `json:"count"`
	MaxOperations int64     `json:"max_operations"`
	Exceeded      bool      `json:"exceeded"`
}

// UserFrequencyResponse reports a user's action frequency across every configured window.
type UserFrequencyResponse struct {
	UserID   uint              `json:"user_id"`
	Windows  []WindowFrequency `json:"windows"`
	CacheHit bool              `json:"cache_hit"`
}
