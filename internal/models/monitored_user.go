package models

import "time"

// MonitoredUser is an escalation raised when a user's activity breaches a window threshold.
// Only one active record may exist per (user, time period); the partial unique index enforces it.
type MonitoredUser struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index;uniqueIndex:idx_monitored_users_active_pair,where:is_active = true" json:"user_id"`
	Reason          string     `gorm:"size:255;not null" json:"reason"`
	OperationCount  int64      `gorm:"not null" json:"operation_count"`
	TimePeriod      string     `gorm:"size:64;not null;uniqueIndex:idx_monitored_users_active_pair,where:is_active = true" json:"time_period"`
	IsActive        bool       `gorm:"not null;index" json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy      *uint      `json:"resolved_by,omitempty"`
	ResolutionNotes *string    `gorm:"type:text" json:"resolution_notes,omitempty"`
}
