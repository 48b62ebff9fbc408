package models

import (
	"time"

	"mission-progression-system/engine"

	"gorm.io/gorm"
)

// ProfileProgression is the per-profile reward aggregate. XP only moves
// additively; Level is rewritten whenever XP changes.
type ProfileProgression struct {
	ID                string     `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID         string     `gorm:"uniqueIndex;not null" json:"profile_id"`
	XP                int64      `gorm:"column:xp;not null;default:0" json:"xp"`
	Level             int        `gorm:"not null;default:1" json:"level"`
	CurrentStreak     int        `gorm:"not null;default:0" json:"current_streak"`
	BestStreak        int        `gorm:"not null;default:0" json:"best_streak"`
	FreezesOwned      int        `gorm:"not null;default:0" json:"freezes_owned"`
	FreezesUsed       int        `gorm:"not null;default:0" json:"freezes_used"`
	LastActiveDate    *time.Time `json:"last_active_date,omitempty"`
	LastRewardClaimAt *time.Time `json:"last_reward_claim_at,omitempty"`
	LastLevelUpAt     *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Streak returns the streak bookkeeping fields.
func (p *ProfileProgression) Streak() engine.StreakState {
	return engine.StreakState{
		Current:        p.CurrentStreak,
		Best:           p.BestStreak,
		FreezesOwned:   p.FreezesOwned,
		FreezesUsed:    p.FreezesUsed,
		LastActiveDate: p.LastActiveDate,
	}
}

// Totals returns the reward-bearing fields.
func (p *ProfileProgression) Totals() engine.Totals {
	return engine.Totals{XP: p.XP, Level: p.Level, FreezesOwned: p.FreezesOwned}
}
