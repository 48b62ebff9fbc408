package models

import (
	"encoding/json"
	"time"

	"mission-progression-system/engine"

	"gorm.io/datatypes"
)

// MissionUserState is the relationship between one profile and one mission.
// Rows are created lazily and never deleted.
type MissionUserState struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID      string         `gorm:"not null;uniqueIndex:idx_profile_mission" json:"profile_id"`
	MissionID      string         `gorm:"type:uuid;not null;uniqueIndex:idx_profile_mission" json:"mission_id"`
	Status         engine.Status  `gorm:"type:varchar(16);not null;index" json:"status"`
	Progress       datatypes.JSON `json:"progress,omitempty"`
	StreakCounter  int            `gorm:"not null;default:0" json:"streak_counter"`
	Attempts       int            `gorm:"not null;default:0" json:"attempts"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	NextEligibleAt *time.Time     `json:"next_eligible_at,omitempty"`
	LastEventAt    *time.Time     `json:"last_event_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// EngineState converts the row to the engine's view.
func (s *MissionUserState) EngineState() engine.State {
	var progress json.RawMessage
	if len(s.Progress) > 0 {
		progress = json.RawMessage(s.Progress)
	}
	return engine.State{
		Status:         s.Status,
		Progress:       progress,
		StreakCounter:  s.StreakCounter,
		Attempts:       s.Attempts,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		NextEligibleAt: s.NextEligibleAt,
		LastEventAt:    s.LastEventAt,
	}
}

// Apply copies an engine state onto the row.
func (s *MissionUserState) Apply(st engine.State) {
	s.Status = st.Status
	s.Progress = datatypes.JSON(st.Progress)
	s.StreakCounter = st.StreakCounter
	s.Attempts = st.Attempts
	s.StartedAt = st.StartedAt
	s.CompletedAt = st.CompletedAt
	s.NextEligibleAt = st.NextEligibleAt
	s.LastEventAt = st.LastEventAt
}

// StateColumns returns the mutable columns of st for a conditional update.
func StateColumns(st engine.State) map[string]any {
	var progress any
	if len(st.Progress) > 0 {
		progress = datatypes.JSON(st.Progress)
	}
	return map[string]any{
		"status":           st.Status,
		"progress":         progress,
		"streak_counter":   st.StreakCounter,
		"attempts":         st.Attempts,
		"started_at":       st.StartedAt,
		"completed_at":     st.CompletedAt,
		"next_eligible_at": st.NextEligibleAt,
		"last_event_at":    st.LastEventAt,
	}
}
