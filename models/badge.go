package models

import "time"

// ProfileBadge is a badge granted by a mission reward. A profile holds each
// badge code at most once.
type ProfileBadge struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID string    `gorm:"not null;uniqueIndex:idx_profile_badge" json:"profile_id"`
	BadgeCode string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_profile_badge" json:"badge_code"`
	MissionID string    `gorm:"type:uuid;index" json:"mission_id"`
	AwardedAt time.Time `gorm:"not null" json:"awarded_at"`
}
