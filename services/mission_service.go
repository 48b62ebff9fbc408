package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mission-progression-system/engine"
	"mission-progression-system/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/text/language"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TranslationView is the display text chosen for the caller's locale.
type TranslationView struct {
	Locale      string `json:"locale"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UserStateView is the effective per-profile state of a mission.
type UserStateView struct {
	Status         engine.Status   `json:"status"`
	Progress       json.RawMessage `json:"progress,omitempty"`
	StreakCounter  int             `json:"streak_counter"`
	Attempts       int             `json:"attempts"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	NextEligibleAt *time.Time      `json:"next_eligible_at,omitempty"`
	LastEventAt    *time.Time      `json:"last_event_at,omitempty"`
}

// MissionView merges a catalog entry with the profile's state.
type MissionView struct {
	ID           string                 `json:"id"`
	Code         string                 `json:"code"`
	Category     models.MissionCategory `json:"category"`
	Status       engine.Status          `json:"status"`
	Repeatable   bool                   `json:"repeatable"`
	CooldownDays int                    `json:"cooldown_days"`
	Season       *engine.Season         `json:"season,omitempty"`
	Rules        models.MissionRules    `json:"rules"`
	Rewards      engine.Rewards         `json:"rewards"`
	Metadata     map[string]any         `json:"metadata,omitempty"`
	Translation  *TranslationView       `json:"translation,omitempty"`
	UserState    UserStateView          `json:"user_state"`
}

// ProgressionDelta reports what a claim paid out and where it left the profile.
type ProgressionDelta struct {
	XPAwarded           int64    `json:"xp_awarded"`
	FreezeTokensAwarded int      `json:"freeze_tokens_awarded"`
	XP                  int64    `json:"xp"`
	Level               int      `json:"level"`
	FreezeTokensOwned   int      `json:"freeze_tokens_owned"`
	LevelProgress       float64  `json:"level_progress"`
	BadgesAwarded       []string `json:"badges_awarded,omitempty"`
}

// ClaimResult is the outcome of a successful claim.
type ClaimResult struct {
	Mission     MissionView      `json:"mission"`
	Progression ProgressionDelta `json:"progression"`
}

func newMissionView(m *models.Mission, st engine.State, prefs []language.Tag) MissionView {
	v := MissionView{
		ID:           m.ID,
		Code:         m.Code,
		Category:     m.Category,
		Status:       st.Status,
		Repeatable:   m.Repeatable,
		CooldownDays: m.CooldownDays,
		Season:       m.Season(),
		Rules:        m.Rules.Data(),
		Rewards:      m.Rewards.Data(),
		Metadata:     m.Metadata,
		UserState: UserStateView{
			Status:         st.Status,
			Progress:       st.Progress,
			StreakCounter:  st.StreakCounter,
			Attempts:       st.Attempts,
			StartedAt:      st.StartedAt,
			CompletedAt:    st.CompletedAt,
			NextEligibleAt: st.NextEligibleAt,
			LastEventAt:    st.LastEventAt,
		},
	}
	if tr := ResolveTranslation(m.Translations, prefs...); tr != nil {
		v.Translation = &TranslationView{Locale: tr.Locale, Title: tr.Title, Description: tr.Description}
	}
	return v
}

// MissionService runs list, start and claim for a profile. Every state
// change is applied in one transaction together with its ledger entry,
// progression update and audit events.
type MissionService struct {
	DB          *gorm.DB
	Catalog     *CatalogService
	Progression *ProgressionService
	Profiles    ProfileDirectory
	Clock       clockwork.Clock

	states StateStore
}

func NewMissionService(db *gorm.DB, catalog *CatalogService, progression *ProgressionService, profiles ProfileDirectory, clock clockwork.Clock) *MissionService {
	return &MissionService{
		DB:          db,
		Catalog:     catalog,
		Progression: progression,
		Profiles:    profiles,
		Clock:       clock,
	}
}

func (s *MissionService) mission(code string) (*models.Mission, error) {
	m, ok := s.Catalog.Snapshot().Lookup(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissionNotFound, code)
	}
	return m, nil
}

// List returns every catalog mission with the profile's effective state,
// creating missing state rows on the way.
func (s *MissionService) List(ctx context.Context, profileID string, prefs ...language.Tag) ([]MissionView, error) {
	if err := requireProfile(ctx, s.Profiles, profileID); err != nil {
		return nil, err
	}
	now := s.Clock.Now().UTC()
	catalog := s.Catalog.Snapshot()

	var views []MissionView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.states.ForProfile(tx, profileID)
		if err != nil {
			return err
		}

		views = make([]MissionView, 0, catalog.Len())
		for i := range catalog.Missions() {
			m := &catalog.Missions()[i]
			row, ok := existing[m.ID]
			if !ok {
				created, err := s.states.Ensure(tx, profileID, m, now)
				if err != nil {
					return err
				}
				row = *created
			}
			st := engine.Effective(m.Definition(), row.EngineState(), now)
			views = append(views, newMissionView(m, st, prefs))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// Start moves the mission to in_progress. Starting a mission that is
// already underway or finished returns it unchanged.
func (s *MissionService) Start(ctx context.Context, profileID, code string, prefs ...language.Tag) (*MissionView, error) {
	m, err := s.mission(code)
	if err != nil {
		return nil, err
	}
	if err := requireProfile(ctx, s.Profiles, profileID); err != nil {
		return nil, err
	}
	now := s.Clock.Now().UTC()
	def := m.Definition()

	var view MissionView
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.states.Ensure(tx, profileID, m, now)
		if err != nil {
			return err
		}
		dec, err := engine.Start(def, row.EngineState(), now)
		if err != nil {
			return err
		}
		if dec.Changed {
			if err := s.states.Swap(tx, row, code, dec.Next); err != nil {
				return err
			}
			if err := s.states.RecordEvents(tx, profileID, m.ID, dec.Actions); err != nil {
				return err
			}
			log.Printf("[MISSIONS] ▶️ %s started %s", profileID, code)
		}
		view = newMissionView(m, dec.Next, prefs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Claim settles a claimable mission and grants its reward. Anything but a
// claimable mission is rejected with engine.ErrInvalidTransition and leaves
// the ledger and progression untouched.
func (s *MissionService) Claim(ctx context.Context, profileID, code string, prefs ...language.Tag) (*ClaimResult, error) {
	m, err := s.mission(code)
	if err != nil {
		return nil, err
	}
	if err := requireProfile(ctx, s.Profiles, profileID); err != nil {
		return nil, err
	}
	now := s.Clock.Now().UTC()
	def := m.Definition()

	var result ClaimResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.states.Ensure(tx, profileID, m, now)
		if err != nil {
			return err
		}
		dec, err := engine.Claim(def, row.EngineState(), now)
		if err != nil {
			return err
		}
		if err := s.states.Swap(tx, row, code, dec.Next); err != nil {
			return err
		}

		grant, _ := dec.Grant()
		entry := models.MissionRewardLedgerEntry{
			ID:        uuid.NewString(),
			ProfileID: profileID,
			MissionID: m.ID,
			Source:    models.LedgerSourceMissionClaim,
			XP:        grant.XP,
			CreatedAt: now,
		}
		entry.Rewards = datatypes.NewJSONType(grant.Snapshot)
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append ledger: %w", err)
		}

		prog, err := s.Progression.ApplyGrant(tx, profileID, grant, dec.Has(engine.ActionIncrementStreak), now)
		if err != nil {
			return err
		}

		var badges []string
		for _, a := range dec.Actions {
			switch a.Kind {
			case engine.ActionAwardBadge:
				awarded, err := s.Progression.AwardBadge(tx, profileID, m.ID, a.Badge, now)
				if err != nil {
					return err
				}
				if awarded {
					badges = append(badges, a.Badge)
				}
			case engine.ActionUnlockMission:
				if err := s.unlock(tx, profileID, a.MissionCode, now); err != nil {
					return err
				}
			}
		}
		if err := s.states.RecordEvents(tx, profileID, m.ID, dec.Actions); err != nil {
			return err
		}

		result = ClaimResult{
			Mission: newMissionView(m, dec.Next, prefs),
			Progression: ProgressionDelta{
				XPAwarded:           grant.XP,
				FreezeTokensAwarded: grant.FreezeTokens,
				XP:                  prog.XP,
				Level:               prog.Level,
				FreezeTokensOwned:   prog.FreezesOwned,
				LevelProgress:       engine.ProgressToNextLevel(prog.XP),
				BadgesAwarded:       badges,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[MISSIONS] 🏆 %s claimed %s (+%d xp, status=%s)", profileID, code, result.Progression.XPAwarded, result.Mission.Status)
	return &result, nil
}

// unlock releases a locked mission named by a reward. Unknown codes are
// skipped; the seed validator rejects them up front.
func (s *MissionService) unlock(tx *gorm.DB, profileID, code string, now time.Time) error {
	target, ok := s.Catalog.Snapshot().Lookup(code)
	if !ok {
		log.Printf("[MISSIONS] ⚠️ unlock target %s not in catalog", code)
		return nil
	}
	row, err := s.states.Ensure(tx, profileID, target, now)
	if err != nil {
		return err
	}
	dec := engine.Unlock(target.Definition(), row.EngineState(), now)
	if !dec.Changed {
		return nil
	}
	if err := s.states.Swap(tx, row, code, dec.Next); err != nil {
		return err
	}
	return s.states.RecordEvents(tx, profileID, target.ID, dec.Actions)
}
