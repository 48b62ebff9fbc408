package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mission-progression-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileDirectory answers whether a profile exists. Profile storage lives in
// another service; this is the only question missions ask of it.
type ProfileDirectory interface {
	Exists(ctx context.Context, profileID string) (bool, error)
}

// ProfileService serves the directory from the local profile mirror.
type ProfileService struct {
	DB *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

func (s *ProfileService) Exists(ctx context.Context, profileID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.ProfileMirror{}).
		Where("external_profile_id = ?", profileID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("lookup profile: %w", err)
	}
	return count > 0, nil
}

// Upsert applies a batch of remote profile changes. Profiles deleted
// upstream are soft-deleted locally. Returns the number of rows applied.
func (s *ProfileService) Upsert(ctx context.Context, profiles []models.RemoteProfile) (int, error) {
	applied := 0
	for _, rp := range profiles {
		if rp.ExternalID == "" {
			continue
		}
		db := s.DB.WithContext(ctx)

		if rp.DeletedAt != nil {
			// updated_at follows the feed so LastSyncedAt moves past the deletion.
			updatedAt := rp.UpdatedAt
			if updatedAt.IsZero() {
				updatedAt = *rp.DeletedAt
			}
			if err := db.Unscoped().Model(&models.ProfileMirror{}).
				Where("external_profile_id = ?", rp.ExternalID).
				Updates(map[string]any{
					"deleted_at": *rp.DeletedAt,
					"updated_at": updatedAt,
				}).Error; err != nil {
				log.Printf("[SYNC] ⚠️ Failed to delete profile mirror %s: %v", rp.ExternalID, err)
				continue
			}
			applied++
			continue
		}

		row := models.ProfileMirror{
			ID:                uuid.NewString(),
			ExternalProfileID: rp.ExternalID,
			Username:          rp.Username,
			PreferredLanguage: rp.PreferredLanguage,
			UpdatedAt:         rp.UpdatedAt,
		}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_profile_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"username":           rp.Username,
				"preferred_language": rp.PreferredLanguage,
				"updated_at":         rp.UpdatedAt,
				"deleted_at":         nil,
			}),
		}).Create(&row).Error
		if err != nil {
			log.Printf("[SYNC] ⚠️ Failed to upsert profile mirror %s: %v", rp.ExternalID, err)
			continue
		}
		applied++
	}
	return applied, nil
}

// LastSyncedAt returns the newest mirrored update time, including deleted
// rows, or the zero time when the mirror is empty.
func (s *ProfileService) LastSyncedAt(ctx context.Context) (time.Time, error) {
	var latest models.ProfileMirror
	err := s.DB.WithContext(ctx).Unscoped().Select("updated_at").Order("updated_at DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last profile sync: %w", err)
	}
	return latest.UpdatedAt, nil
}

// requireProfile maps a missing profile to ErrProfileNotFound.
func requireProfile(ctx context.Context, dir ProfileDirectory, profileID string) error {
	if dir == nil {
		return nil
	}
	ok, err := dir.Exists(ctx, profileID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
	}
	return nil
}
