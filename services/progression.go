package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mission-progression-system/engine"
	"mission-progression-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressView is the profile's progression as served to clients.
type ProgressView struct {
	ProfileID         string     `json:"profile_id"`
	XP                int64      `json:"xp"`
	Level             int        `json:"level"`
	MaxLevel          int        `json:"max_level"`
	LevelProgress     float64    `json:"level_progress"`
	NextLevelXP       *int64     `json:"next_level_xp,omitempty"`
	CurrentStreak     int        `json:"current_streak"`
	BestStreak        int        `json:"best_streak"`
	FreezesOwned      int        `json:"freezes_owned"`
	FreezesUsed       int        `json:"freezes_used"`
	FreezesAvailable  int        `json:"freezes_available"`
	LastActiveDate    *time.Time `json:"last_active_date,omitempty"`
	LastRewardClaimAt *time.Time `json:"last_reward_claim_at,omitempty"`
}

// NewProgressView renders prog, which may be nil for a profile that has
// not earned anything yet.
func NewProgressView(profileID string, prog *models.ProfileProgression) ProgressView {
	if prog == nil {
		prog = &models.ProfileProgression{ProfileID: profileID, Level: engine.LevelFor(0)}
	}
	v := ProgressView{
		ProfileID:         profileID,
		XP:                prog.XP,
		Level:             prog.Level,
		MaxLevel:          engine.MaxLevel(),
		LevelProgress:     engine.ProgressToNextLevel(prog.XP),
		CurrentStreak:     prog.CurrentStreak,
		BestStreak:        prog.BestStreak,
		FreezesOwned:      prog.FreezesOwned,
		FreezesUsed:       prog.FreezesUsed,
		FreezesAvailable:  prog.Streak().FreezesAvailable(),
		LastActiveDate:    prog.LastActiveDate,
		LastRewardClaimAt: prog.LastRewardClaimAt,
	}
	if next, ok := engine.NextLevelFloor(prog.XP); ok {
		v.NextLevelXP = &next
	}
	return v
}

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// EnsureProgressRecord returns the profile's progression row locked for
// update, creating it at level 1 when missing.
func (s *ProgressionService) EnsureProgressRecord(tx *gorm.DB, profileID string) (*models.ProfileProgression, error) {
	prog := models.ProfileProgression{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		Level:     engine.LevelFor(0),
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		DoNothing: true,
	}).Create(&prog).Error; err != nil {
		return nil, fmt.Errorf("create progression: %w", err)
	}
	return s.lock(tx, profileID)
}

func (s *ProgressionService) lock(tx *gorm.DB, profileID string) (*models.ProfileProgression, error) {
	var prog models.ProfileProgression
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("profile_id = ?", profileID).
		First(&prog).Error; err != nil {
		return nil, fmt.Errorf("load progression: %w", err)
	}
	return &prog, nil
}

// ApplyGrant credits a claim's reward. XP and freeze tokens are added with
// column increments; level is recomputed from the stored total afterwards.
func (s *ProgressionService) ApplyGrant(tx *gorm.DB, profileID string, grant engine.Grant, incrementStreak bool, now time.Time) (*models.ProfileProgression, error) {
	current, err := s.EnsureProgressRecord(tx, profileID)
	if err != nil {
		return nil, err
	}

	if err := tx.Model(&models.ProfileProgression{}).
		Where("id = ?", current.ID).
		Updates(map[string]any{
			"xp":                   gorm.Expr("xp + ?", grant.XP),
			"freezes_owned":        gorm.Expr("freezes_owned + ?", grant.FreezeTokens),
			"last_reward_claim_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("credit reward: %w", err)
	}

	prog, err := s.lock(tx, profileID)
	if err != nil {
		return nil, err
	}
	if expected := engine.ApplyReward(current.Totals(), grant); expected.XP != prog.XP {
		log.Printf("[PROGRESSION] ⚠️ %s xp moved during claim: expected %d, stored %d", profileID, expected.XP, prog.XP)
	}

	updates := map[string]any{}
	if level := engine.LevelFor(prog.XP); level != prog.Level {
		updates["level"] = level
		if level > prog.Level {
			updates["last_level_up_at"] = now
			log.Printf("[PROGRESSION] 🆙 %s reached level %d", profileID, level)
		}
		prog.Level = level
	}
	if incrementStreak {
		streak := engine.IncrementStreak(prog.Streak())
		updates["current_streak"] = streak.Current
		updates["best_streak"] = streak.Best
		prog.CurrentStreak, prog.BestStreak = streak.Current, streak.Best
	}
	if len(updates) > 0 {
		if err := tx.Model(&models.ProfileProgression{}).Where("id = ?", prog.ID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update progression: %w", err)
		}
	}

	log.Printf("[PROGRESSION] 🎮 XP awarded: %s +%d → XP=%d, Lvl=%d, freezes=%d",
		profileID, grant.XP, prog.XP, prog.Level, prog.FreezesOwned)
	return prog, nil
}

// RecordActivity advances the profile's last active day and settles the
// streak against it, spending freeze tokens on missed days where possible.
func (s *ProgressionService) RecordActivity(tx *gorm.DB, profileID string, at time.Time) (*models.ProfileProgression, error) {
	prog, err := s.EnsureProgressRecord(tx, profileID)
	if err != nil {
		return nil, err
	}

	before := prog.Streak()
	after := engine.SettleStreak(before, at)
	if after.LastActiveDate == before.LastActiveDate {
		return prog, nil
	}
	if before.FreezesUsed != after.FreezesUsed {
		log.Printf("[PROGRESSION] 🧊 %s spent %d freeze token(s)", profileID, after.FreezesUsed-before.FreezesUsed)
	}

	if err := tx.Model(&models.ProfileProgression{}).Where("id = ?", prog.ID).Updates(map[string]any{
		"current_streak":   after.Current,
		"freezes_used":     after.FreezesUsed,
		"last_active_date": after.LastActiveDate,
	}).Error; err != nil {
		return nil, fmt.Errorf("record activity: %w", err)
	}
	prog.CurrentStreak = after.Current
	prog.FreezesUsed = after.FreezesUsed
	prog.LastActiveDate = after.LastActiveDate
	return prog, nil
}

// GetProgress returns the progression view without creating a row.
func (s *ProgressionService) GetProgress(ctx context.Context, profileID string) (ProgressView, error) {
	var prog models.ProfileProgression
	err := s.DB.WithContext(ctx).Where("profile_id = ?", profileID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewProgressView(profileID, nil), nil
	}
	if err != nil {
		return ProgressView{}, fmt.Errorf("load progression: %w", err)
	}
	return NewProgressView(profileID, &prog), nil
}

// GetLedger returns a page of the profile's ledger, newest first.
func (s *ProgressionService) GetLedger(ctx context.Context, profileID string, page, size int) (map[string]interface{}, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size
	db := s.DB.WithContext(ctx)

	var total int64
	if err := db.Model(&models.MissionRewardLedgerEntry{}).Where("profile_id = ?", profileID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count ledger: %w", err)
	}

	var entries []models.MissionRewardLedgerEntry
	if err := db.Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Limit(size).Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	return map[string]interface{}{
		"entries":     entries,
		"page":        page,
		"size":        size,
		"total_items": total,
		"total_pages": int((total + int64(size) - 1) / int64(size)),
	}, nil
}

// GetBadges lists the badges the profile holds, oldest first.
func (s *ProgressionService) GetBadges(ctx context.Context, profileID string) ([]models.ProfileBadge, error) {
	var badges []models.ProfileBadge
	if err := s.DB.WithContext(ctx).Where("profile_id = ?", profileID).
		Order("awarded_at ASC").
		Find(&badges).Error; err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	return badges, nil
}

// AwardBadge grants code once per profile. Returns false when the profile
// already holds it.
func (s *ProgressionService) AwardBadge(tx *gorm.DB, profileID, missionID, code string, now time.Time) (bool, error) {
	badge := models.ProfileBadge{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		BadgeCode: code,
		MissionID: missionID,
		AwardedAt: now,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "badge_code"}},
		DoNothing: true,
	}).Create(&badge)
	if res.Error != nil {
		return false, fmt.Errorf("award badge %s: %w", code, res.Error)
	}
	if res.RowsAffected == 1 {
		log.Printf("[PROGRESSION] 🎖️ Badge awarded: %s → %s", code, profileID)
	}
	return res.RowsAffected == 1, nil
}
