package models

import (
	"time"

	"gorm.io/datatypes"
)

// MissionProgressEvent is the append-only audit trail of state changes.
type MissionProgressEvent struct {
	ID        string            `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID string            `gorm:"not null;index" json:"profile_id"`
	MissionID string            `gorm:"type:uuid;not null;index" json:"mission_id"`
	EventType string            `gorm:"type:varchar(32);not null;index" json:"event_type"` // MISSION_STARTED, MISSION_CLAIMED, ...
	Payload   datatypes.JSONMap `json:"payload,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
}
