package models

import (
	"mission-progression-system/engine"

	"gorm.io/datatypes"
)

// MissionCategory is the closed set of catalog categories.
type MissionCategory string

const (
	CategoryOnboarding MissionCategory = "onboarding"
	CategoryEngagement MissionCategory = "engagement"
	CategorySocial     MissionCategory = "social"
	CategoryStreak     MissionCategory = "streak"
	CategorySeasonal   MissionCategory = engine.CategorySeasonal
)

// Valid reports whether c is a known category.
func (c MissionCategory) Valid() bool {
	switch c {
	case CategoryOnboarding, CategoryEngagement, CategorySocial, CategoryStreak, CategorySeasonal:
		return true
	}
	return false
}

// MissionRules is descriptive metadata for a mission's completion logic.
// Only IncrementStreak is executed; the rest documents what the registered
// criterion for the code does.
type MissionRules struct {
	Triggers        []string `json:"triggers,omitempty" yaml:"triggers"`
	Completion      string   `json:"completion,omitempty" yaml:"completion"`
	ProgressKey     string   `json:"progress_key,omitempty" yaml:"progress_key"`
	Threshold       int      `json:"threshold,omitempty" yaml:"threshold"`
	Validation      string   `json:"validation,omitempty" yaml:"validation"`
	AntiCheat       string   `json:"anti_cheat,omitempty" yaml:"anti_cheat"`
	IncrementStreak bool     `json:"increment_streak,omitempty" yaml:"increment_streak"`
}

// Mission is one catalog entry.
type Mission struct {
	ID               string                             `gorm:"primaryKey;type:uuid" json:"id"`
	Code             string                             `gorm:"uniqueIndex;not null" json:"code"`
	Category         MissionCategory                    `gorm:"type:varchar(32);not null" json:"category"`
	Repeatable       bool                               `gorm:"not null;default:false" json:"repeatable"`
	CooldownDays     int                                `gorm:"not null;default:0" json:"cooldown_days"`
	SeasonStartMonth *int                               `json:"season_start_month,omitempty"`
	SeasonEndMonth   *int                               `json:"season_end_month,omitempty"`
	Rules            datatypes.JSONType[MissionRules]   `json:"rules"`
	Rewards          datatypes.JSONType[engine.Rewards] `json:"rewards"`
	Metadata         datatypes.JSONMap                  `json:"metadata"`

	Translations []MissionTranslation `gorm:"foreignKey:MissionID" json:"-"`

	Timestamps
}

// Season returns the seasonal window, or nil when none is configured.
func (m *Mission) Season() *engine.Season {
	if m.SeasonStartMonth == nil || m.SeasonEndMonth == nil {
		return nil
	}
	return &engine.Season{StartMonth: *m.SeasonStartMonth, EndMonth: *m.SeasonEndMonth}
}

// Definition projects the row onto what the engine evaluates.
func (m *Mission) Definition() engine.Definition {
	rules := m.Rules.Data()
	return engine.Definition{
		Code:            m.Code,
		Category:        string(m.Category),
		Repeatable:      m.Repeatable,
		CooldownDays:    m.CooldownDays,
		Season:          m.Season(),
		Rewards:         m.Rewards.Data(),
		IncrementStreak: rules.IncrementStreak,
	}
}
