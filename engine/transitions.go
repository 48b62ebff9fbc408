package engine

import (
	"bytes"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a start or claim is attempted from a
// status that does not allow it. Callers surface it as a conflict.
var ErrInvalidTransition = errors.New("invalid mission transition")

// TransitionError carries the rejected operation and the status it saw.
type TransitionError struct {
	Op   string
	Code string
	From Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s mission %s from status %s", e.Op, e.Code, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Progress event types written to the audit trail.
const (
	EventStateCreated = "MISSION_STATE_CREATED"
	EventStarted      = "MISSION_STARTED"
	EventProgressed   = "MISSION_PROGRESSED"
	EventClaimable    = "MISSION_CLAIMABLE"
	EventClaimed      = "MISSION_CLAIMED"
	EventUnlocked     = "MISSION_UNLOCKED"
)

// ActionKind names a side effect the caller must apply with the new state.
type ActionKind string

const (
	ActionGrantReward     ActionKind = "grant_reward"
	ActionIncrementStreak ActionKind = "increment_streak"
	ActionAwardBadge      ActionKind = "award_badge"
	ActionUnlockMission   ActionKind = "unlock_mission"
	ActionRecordEvent     ActionKind = "record_event"
)

// Action is one side effect of a decision. Only the fields relevant to Kind
// are set.
type Action struct {
	Kind        ActionKind
	Grant       *Grant
	Badge       string
	MissionCode string
	EventType   string
	Payload     map[string]any
}

// Decision is the outcome of evaluating a request against a mission state.
// When Changed is false, Next equals the effective current state and nothing
// needs to be written.
type Decision struct {
	Next    State
	Changed bool
	Actions []Action
}

// Grant returns the reward action's grant, if any.
func (d Decision) Grant() (Grant, bool) {
	for _, a := range d.Actions {
		if a.Kind == ActionGrantReward && a.Grant != nil {
			return *a.Grant, true
		}
	}
	return Grant{}, false
}

// Has reports whether the decision carries an action of kind k.
func (d Decision) Has(k ActionKind) bool {
	for _, a := range d.Actions {
		if a.Kind == k {
			return true
		}
	}
	return false
}

func recordEvent(eventType string, payload map[string]any) Action {
	return Action{Kind: ActionRecordEvent, EventType: eventType, Payload: payload}
}

// Start moves an available mission to in_progress. Missions already past
// that point are returned unchanged so repeated starts are harmless.
func Start(def Definition, st State, now time.Time) (Decision, error) {
	cur := Effective(def, st, now)
	switch cur.Status {
	case StatusInProgress, StatusClaimable, StatusCompleted:
		return Decision{Next: cur}, nil
	case StatusAvailable:
		next := cur
		started := now
		next.Status = StatusInProgress
		next.StartedAt = &started
		next.NextEligibleAt = nil
		next.Progress = nil
		return Decision{
			Next:    next,
			Changed: true,
			Actions: []Action{recordEvent(EventStarted, map[string]any{
				"from":     string(st.Status),
				"attempts": cur.Attempts,
			})},
		}, nil
	default:
		return Decision{Next: cur}, &TransitionError{Op: "start", Code: def.Code, From: cur.Status}
	}
}

// Progress feeds an event through the mission's completion criterion. Only
// in_progress missions accept progress; anything else is a no-op.
func Progress(def Definition, st State, crit Criterion, evt ItemCreated, now time.Time) (Decision, error) {
	cur := Effective(def, st, now)
	if cur.Status != StatusInProgress {
		return Decision{Next: cur}, nil
	}

	progress, met, err := crit.Evaluate(evt, cur.Progress)
	if err != nil {
		return Decision{Next: cur}, fmt.Errorf("evaluate %s: %w", def.Code, err)
	}
	if !met && bytes.Equal(progress, cur.Progress) {
		return Decision{Next: cur}, nil
	}

	next := cur
	seen := now
	next.Progress = progress
	next.LastEventAt = &seen
	actions := []Action{recordEvent(EventProgressed, map[string]any{
		"source":      evt.Source,
		"unique_hash": evt.UniqueHash,
	})}
	if met {
		next.Status = StatusClaimable
		actions = append(actions, recordEvent(EventClaimable, nil))
	}
	return Decision{Next: next, Changed: true, Actions: actions}, nil
}

// Claim settles a claimable mission: it picks the follow-up status, bumps the
// attempt counter and lists the rewards to grant. Anything but claimable is
// rejected.
func Claim(def Definition, st State, now time.Time) (Decision, error) {
	cur := Effective(def, st, now)
	if cur.Status != StatusClaimable {
		return Decision{Next: cur}, &TransitionError{Op: "claim", Code: def.Code, From: cur.Status}
	}

	next := cur
	completed := now
	next.CompletedAt = &completed
	next.Attempts = cur.Attempts + 1
	next.NextEligibleAt = nil

	switch {
	case !def.Repeatable:
		next.Status = StatusCompleted
	case def.CooldownDays > 0:
		eligible := now.Add(time.Duration(def.CooldownDays) * 24 * time.Hour)
		next.Status = StatusCooldown
		next.NextEligibleAt = &eligible
	default:
		next.Status = DetermineInitialStatus(def, now)
	}

	grant := ComputeReward(def.Rewards)
	actions := []Action{{Kind: ActionGrantReward, Grant: &grant}}
	if def.IncrementStreak {
		next.StreakCounter = cur.StreakCounter + 1
		actions = append(actions, Action{Kind: ActionIncrementStreak})
	}
	for _, badge := range def.Rewards.Badges {
		actions = append(actions, Action{Kind: ActionAwardBadge, Badge: badge})
	}
	for _, code := range def.Rewards.Unlocks {
		actions = append(actions, Action{Kind: ActionUnlockMission, MissionCode: code})
	}
	actions = append(actions, recordEvent(EventClaimed, map[string]any{
		"xp":            grant.XP,
		"freeze_tokens": grant.FreezeTokens,
		"attempts":      next.Attempts,
		"next_status":   string(next.Status),
	}))

	return Decision{Next: next, Changed: true, Actions: actions}, nil
}

// Unlock releases a locked mission into its initial status. Other statuses
// are left alone.
func Unlock(def Definition, st State, now time.Time) Decision {
	if st.Status != StatusLocked {
		return Decision{Next: Effective(def, st, now)}
	}
	next := st
	next.Status = DetermineInitialStatus(def, now)
	next.NextEligibleAt = nil
	return Decision{
		Next:    next,
		Changed: true,
		Actions: []Action{recordEvent(EventUnlocked, map[string]any{"status": string(next.Status)})},
	}
}
