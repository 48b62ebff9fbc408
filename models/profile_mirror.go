package models

import (
	"time"

	"gorm.io/gorm"
)

// ProfileMirror is a local snapshot of the profile service's users, kept
// only so missions can reject unknown profiles without a network call.
// Populated by the profile sync worker.
type ProfileMirror struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalProfileID string    `gorm:"uniqueIndex;not null" json:"external_profile_id"`
	Username          string    `gorm:"index" json:"username"`
	PreferredLanguage string    `gorm:"type:varchar(16)" json:"preferred_language,omitempty"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RemoteProfile mirrors one row of the sync service's profile feed.
type RemoteProfile struct {
	ExternalID        string     `json:"external_id"`
	Username          string     `json:"username"`
	PreferredLanguage string     `json:"preferred_language"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at"`
}
