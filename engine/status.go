// Package engine contains the mission progression rules: status derivation,
// transitions, reward computation, leveling and streak bookkeeping.
// Everything here is a pure function of its inputs; callers own persistence.
package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the relationship between one profile and one mission.
type Status string

const (
	StatusHidden     Status = "hidden"
	StatusLocked     Status = "locked"
	StatusAvailable  Status = "available"
	StatusInProgress Status = "in_progress"
	StatusClaimable  Status = "claimable"
	StatusCompleted  Status = "completed"
	StatusCooldown   Status = "cooldown"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusHidden, StatusLocked, StatusAvailable, StatusInProgress,
		StatusClaimable, StatusCompleted, StatusCooldown:
		return true
	}
	return false
}

// CategorySeasonal is the only category with status semantics of its own.
const CategorySeasonal = "seasonal"

// Season is an inclusive month window. StartMonth > EndMonth wraps the year
// end, so {11, 2} covers November through February.
type Season struct {
	StartMonth int `json:"start_month" yaml:"start_month"`
	EndMonth   int `json:"end_month" yaml:"end_month"`
}

// Validate checks that both months are within 1-12.
func (s Season) Validate() error {
	if s.StartMonth < 1 || s.StartMonth > 12 {
		return fmt.Errorf("season start month %d out of range 1-12", s.StartMonth)
	}
	if s.EndMonth < 1 || s.EndMonth > 12 {
		return fmt.Errorf("season end month %d out of range 1-12", s.EndMonth)
	}
	return nil
}

// Contains reports whether month m falls inside the window.
func (s Season) Contains(m time.Month) bool {
	start, end := time.Month(s.StartMonth), time.Month(s.EndMonth)
	if start <= end {
		return m >= start && m <= end
	}
	return m >= start || m <= end
}

// Definition is the slice of a catalog entry the engine needs.
type Definition struct {
	Code            string
	Category        string
	Repeatable      bool
	CooldownDays    int
	Season          *Season
	Rewards         Rewards
	IncrementStreak bool
}

// State mirrors one stored (profile, mission) row.
type State struct {
	Status         Status
	Progress       json.RawMessage
	StreakCounter  int
	Attempts       int
	StartedAt      *time.Time
	CompletedAt    *time.Time
	NextEligibleAt *time.Time
	LastEventAt    *time.Time
}

// DetermineInitialStatus computes the status a mission starts from, and the
// status a mission returns to once nothing else pins it.
// A seasonal mission without a window is never visible.
func DetermineInitialStatus(def Definition, now time.Time) Status {
	if def.Category != CategorySeasonal {
		return StatusAvailable
	}
	if def.Season != nil && def.Season.Contains(now.UTC().Month()) {
		return StatusAvailable
	}
	return StatusHidden
}

// EffectiveStatus derives the status to present at now. Cooldown and season
// windows expire lazily here, so a stored cooldown or hidden value is never
// trusted without checking it against the clock.
func EffectiveStatus(def Definition, st State, now time.Time) Status {
	switch st.Status {
	case StatusCooldown:
		if st.NextEligibleAt != nil && now.Before(*st.NextEligibleAt) {
			return StatusCooldown
		}
		return DetermineInitialStatus(def, now)
	case StatusHidden, StatusAvailable:
		return DetermineInitialStatus(def, now)
	default:
		return st.Status
	}
}

// Effective returns st as it should be presented at now. NextEligibleAt is
// only kept while the mission is still cooling down.
func Effective(def Definition, st State, now time.Time) State {
	out := st
	out.Status = EffectiveStatus(def, st, now)
	if out.Status != StatusCooldown {
		out.NextEligibleAt = nil
	}
	return out
}
