package services

import (
	"errors"
	"fmt"
	"time"

	"mission-progression-system/engine"
	"mission-progression-system/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateStore reads and writes mission_user_states. Every method runs on the
// handle it is given so callers can compose them inside one transaction.
type StateStore struct{}

// ForProfile returns the profile's state rows keyed by mission id.
func (StateStore) ForProfile(tx *gorm.DB, profileID string) (map[string]models.MissionUserState, error) {
	var rows []models.MissionUserState
	if err := tx.Where("profile_id = ?", profileID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load mission states: %w", err)
	}
	out := make(map[string]models.MissionUserState, len(rows))
	for _, r := range rows {
		out[r.MissionID] = r
	}
	return out, nil
}

// Ensure returns the locked state row for (profile, mission), creating it
// with the computed initial status when it does not exist yet.
func (st StateStore) Ensure(tx *gorm.DB, profileID string, m *models.Mission, now time.Time) (*models.MissionUserState, error) {
	row := models.MissionUserState{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		MissionID: m.ID,
		Status:    engine.DetermineInitialStatus(m.Definition(), now),
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "mission_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("create mission state: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		if err := st.record(tx, profileID, m.ID, engine.EventStateCreated, map[string]any{
			"status": string(row.Status),
		}); err != nil {
			return nil, err
		}
	}
	return st.Lock(tx, profileID, m.ID)
}

// Lock loads the state row with a row lock held until the transaction ends.
// Returns gorm.ErrRecordNotFound when the row does not exist.
func (StateStore) Lock(tx *gorm.DB, profileID, missionID string) (*models.MissionUserState, error) {
	var row models.MissionUserState
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("profile_id = ? AND mission_id = ?", profileID, missionID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lock mission state: %w", err)
	}
	return &row, nil
}

// Swap writes next over row only if the stored status and attempts still
// match what was read. A lost race surfaces as engine.ErrInvalidTransition.
func (StateStore) Swap(tx *gorm.DB, row *models.MissionUserState, code string, next engine.State) error {
	res := tx.Model(&models.MissionUserState{}).
		Where("id = ? AND status = ? AND attempts = ?", row.ID, row.Status, row.Attempts).
		Updates(models.StateColumns(next))
	if res.Error != nil {
		return fmt.Errorf("update mission state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: mission %s is no longer %s", engine.ErrInvalidTransition, code, row.Status)
	}
	row.Apply(next)
	return nil
}

// RecordEvents appends the audit events carried by actions.
func (st StateStore) RecordEvents(tx *gorm.DB, profileID, missionID string, actions []engine.Action) error {
	for _, a := range actions {
		if a.Kind != engine.ActionRecordEvent {
			continue
		}
		if err := st.record(tx, profileID, missionID, a.EventType, a.Payload); err != nil {
			return err
		}
	}
	return nil
}

func (StateStore) record(tx *gorm.DB, profileID, missionID, eventType string, payload map[string]any) error {
	evt := models.MissionProgressEvent{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		MissionID: missionID,
		EventType: eventType,
		Payload:   datatypes.JSONMap(payload),
	}
	if err := tx.Create(&evt).Error; err != nil {
		return fmt.Errorf("record %s: %w", eventType, err)
	}
	return nil
}

// Consume marks hash as counted for (profile, mission). It returns false
// when the hash was consumed before, in this or an earlier attempt.
func (StateStore) Consume(tx *gorm.DB, profileID, missionID, hash string) (bool, error) {
	receipt := models.MissionEventReceipt{
		ID:         uuid.NewString(),
		ProfileID:  profileID,
		MissionID:  missionID,
		UniqueHash: hash,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "mission_id"}, {Name: "unique_hash"}},
		DoNothing: true,
	}).Create(&receipt)
	if res.Error != nil {
		return false, fmt.Errorf("record event receipt: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
