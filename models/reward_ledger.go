package models

import (
	"errors"
	"time"

	"mission-progression-system/engine"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LedgerSourceMissionClaim tags entries written by a mission claim.
const LedgerSourceMissionClaim = "mission_claim"

// ErrLedgerImmutable is returned by the ledger hooks on update or delete.
var ErrLedgerImmutable = errors.New("reward ledger entries are append-only")

// MissionRewardLedgerEntry records one granted reward. The sum of XP per
// profile must equal ProfileProgression.XP.
type MissionRewardLedgerEntry struct {
	ID        string                             `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID string                             `gorm:"not null;index" json:"profile_id"`
	MissionID string                             `gorm:"type:uuid;not null;index" json:"mission_id"`
	Source    string                             `gorm:"type:varchar(32);not null" json:"source"`
	XP        int64                              `gorm:"column:xp;not null;default:0" json:"xp"`
	Rewards   datatypes.JSONType[engine.Rewards] `json:"rewards"`
	CreatedAt time.Time                          `gorm:"autoCreateTime;index" json:"created_at"`
}

func (MissionRewardLedgerEntry) TableName() string {
	return "mission_reward_ledger"
}

func (*MissionRewardLedgerEntry) BeforeUpdate(*gorm.DB) error {
	return ErrLedgerImmutable
}

func (*MissionRewardLedgerEntry) BeforeDelete(*gorm.DB) error {
	return ErrLedgerImmutable
}
