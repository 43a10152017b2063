package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ActionType enumerates the operation kinds recorded in the action log.
type ActionType string

const (
	ActionCreate      ActionType = "CREATE"
	ActionRead        ActionType = "READ"
	ActionUpdate      ActionType = "UPDATE"
	ActionDelete      ActionType = "DELETE"
	ActionLogin       ActionType = "LOGIN"
	ActionFailedLogin ActionType = "FAILED_LOGIN"
)

// AllActionTypes lists every recognised action in declaration order.
var AllActionTypes = []ActionType{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionLogin, ActionFailedLogin}

// ParseActionType normalises the raw value and reports whether it is a known action.
func ParseActionType(raw string) (ActionType, bool) {
	candidate := ActionType(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range AllActionTypes {
		if candidate == known {
			return candidate, true
		}
	}
	return "", false
}

// ActionLog is an immutable audit record of a single user action.
type ActionLog struct {
	ID            string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID        uint              `gorm:"not null;index:idx_action_logs_user_time,priority:1" json:"user_id"`
	Action        ActionType        `gorm:"size:32;not null;index" json:"action"`
	EntityType    string            `gorm:"size:64;not null;index:idx_action_logs_entity,priority:1" json:"entity_type"`
	EntityID      string            `gorm:"size:128;not null;index:idx_action_logs_entity,priority:2" json:"entity_id"`
	Details       string            `gorm:"type:text" json:"details"`
	IPAddress     string            `gorm:"size:64" json:"ip_address"`
	UserAgent     string            `gorm:"size:512" json:"user_agent"`
	CorrelationID string            `gorm:"size:64" json:"correlation_id,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	OccurredAt    time.Time         `gorm:"not null;index;index:idx_action_logs_user_time,priority:2" json:"occurred_at"`
}
