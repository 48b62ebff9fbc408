package models

import "time"

// MissionTranslation holds display text for one mission in one locale.
type MissionTranslation struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	MissionID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_mission_locale" json:"mission_id"`
	Locale      string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_mission_locale" json:"locale"` // BCP 47
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
