package models

import "time"

// MissionEventReceipt records that an event's unique hash has already
// counted towards a mission for a profile. It outlives restarts of
// repeatable missions, which clear the progress blob.
type MissionEventReceipt struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID  string    `gorm:"not null;uniqueIndex:idx_receipt_profile_mission_hash,priority:1" json:"profile_id"`
	MissionID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_receipt_profile_mission_hash,priority:2" json:"mission_id"`
	UniqueHash string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_receipt_profile_mission_hash,priority:3" json:"unique_hash"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
