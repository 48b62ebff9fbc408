package services

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"sort"
	"sync/atomic"

	"mission-progression-system/engine"
	"mission-progression-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed seed/missions.yaml
var defaultSeed []byte

// SeedTranslation is the display text for one locale in the seed file.
type SeedTranslation struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// SeedMission is one catalog entry as written in the seed file.
type SeedMission struct {
	Code         string                     `yaml:"code"`
	Category     models.MissionCategory     `yaml:"category"`
	Repeatable   bool                       `yaml:"repeatable"`
	CooldownDays int                        `yaml:"cooldown_days"`
	Season       *engine.Season             `yaml:"season"`
	Rules        models.MissionRules        `yaml:"rules"`
	Rewards      engine.Rewards             `yaml:"rewards"`
	Metadata     map[string]any             `yaml:"metadata"`
	Translations map[string]SeedTranslation `yaml:"translations"`
}

type seedFile struct {
	Missions []SeedMission `yaml:"missions"`
}

// DefaultSeed returns the catalog compiled into the binary.
func DefaultSeed() ([]SeedMission, error) {
	return ParseSeed(defaultSeed)
}

// ParseSeed decodes and validates a seed document.
func ParseSeed(data []byte) ([]SeedMission, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if err := validateSeed(f.Missions); err != nil {
		return nil, err
	}
	return f.Missions, nil
}

func validateSeed(missions []SeedMission) error {
	codes := make(map[string]bool, len(missions))
	for _, m := range missions {
		if !slug.IsSlug(m.Code) {
			return fmt.Errorf("%w: code %q is not a slug", ErrInvalidSeed, m.Code)
		}
		if codes[m.Code] {
			return fmt.Errorf("%w: duplicate code %q", ErrInvalidSeed, m.Code)
		}
		codes[m.Code] = true

		if !m.Category.Valid() {
			return fmt.Errorf("%w: %s has unknown category %q", ErrInvalidSeed, m.Code, m.Category)
		}
		if m.CooldownDays < 0 {
			return fmt.Errorf("%w: %s has negative cooldown", ErrInvalidSeed, m.Code)
		}
		if m.CooldownDays > 0 && !m.Repeatable {
			return fmt.Errorf("%w: %s sets a cooldown but is not repeatable", ErrInvalidSeed, m.Code)
		}
		if m.Season != nil {
			if err := m.Season.Validate(); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidSeed, m.Code, err)
			}
		}
		if m.Category == models.CategorySeasonal && m.Season == nil {
			log.Printf("[CATALOG] ⚠️ seasonal mission %s has no season and will stay hidden", m.Code)
		}
		for _, badge := range m.Rewards.Badges {
			if !slug.IsSlug(badge) {
				return fmt.Errorf("%w: %s has badge %q that is not a slug", ErrInvalidSeed, m.Code, badge)
			}
		}
		for locale, tr := range m.Translations {
			if _, err := language.Parse(locale); err != nil {
				return fmt.Errorf("%w: %s has invalid locale %q", ErrInvalidSeed, m.Code, locale)
			}
			if tr.Title == "" {
				return fmt.Errorf("%w: %s/%s has no title", ErrInvalidSeed, m.Code, locale)
			}
		}
	}
	for _, m := range missions {
		for _, code := range m.Rewards.Unlocks {
			if !codes[code] {
				return fmt.Errorf("%w: %s unlocks unknown mission %q", ErrInvalidSeed, m.Code, code)
			}
		}
	}
	return nil
}

// Catalog is an immutable snapshot of the mission table. It is replaced
// wholesale on reseed and never mutated in place.
type Catalog struct {
	missions []models.Mission
	byCode   map[string]int
	byID     map[string]int
}

func newCatalog(missions []models.Mission) *Catalog {
	sort.SliceStable(missions, func(i, j int) bool {
		oi, oj := sortOrder(missions[i]), sortOrder(missions[j])
		if oi != oj {
			return oi < oj
		}
		return missions[i].Code < missions[j].Code
	})
	c := &Catalog{
		missions: missions,
		byCode:   make(map[string]int, len(missions)),
		byID:     make(map[string]int, len(missions)),
	}
	for i, m := range missions {
		c.byCode[m.Code] = i
		c.byID[m.ID] = i
	}
	return c
}

func sortOrder(m models.Mission) float64 {
	switch v := m.Metadata["sort_order"].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return 0
}

// Missions returns the catalog in display order. Callers must not modify
// the returned elements.
func (c *Catalog) Missions() []models.Mission {
	return c.missions
}

// Lookup finds a mission by code.
func (c *Catalog) Lookup(code string) (*models.Mission, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return nil, false
	}
	return &c.missions[i], true
}

// ByID finds a mission by primary key.
func (c *Catalog) ByID(id string) (*models.Mission, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.missions[i], true
}

func (c *Catalog) Len() int { return len(c.missions) }

type CatalogService struct {
	DB      *gorm.DB
	current atomic.Pointer[Catalog]
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	s := &CatalogService{DB: db}
	s.current.Store(newCatalog(nil))
	return s
}

// Snapshot returns the catalog currently in effect.
func (s *CatalogService) Snapshot() *Catalog {
	return s.current.Load()
}

// Load reads the persisted catalog and makes it current.
func (s *CatalogService) Load(ctx context.Context) error {
	var missions []models.Mission
	if err := s.DB.WithContext(ctx).Preload("Translations").Find(&missions).Error; err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	s.current.Store(newCatalog(missions))
	log.Printf("[CATALOG] 📚 loaded %d missions", len(missions))
	return nil
}

// Reseed upserts the compiled-in seed and reloads the catalog.
func (s *CatalogService) Reseed(ctx context.Context) (int, error) {
	seed, err := DefaultSeed()
	if err != nil {
		return 0, err
	}
	return s.Apply(ctx, seed)
}

// Apply upserts seed missions and their translations by code, then reloads.
// Missions absent from seed are left untouched.
func (s *CatalogService) Apply(ctx context.Context, seed []SeedMission) (int, error) {
	if err := validateSeed(seed); err != nil {
		return 0, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sm := range seed {
			m := models.Mission{
				ID:           uuid.NewString(),
				Code:         sm.Code,
				Category:     sm.Category,
				Repeatable:   sm.Repeatable,
				CooldownDays: sm.CooldownDays,
				Rules:        datatypes.NewJSONType(sm.Rules),
				Rewards:      datatypes.NewJSONType(sm.Rewards),
				Metadata:     datatypes.JSONMap(sm.Metadata),
			}
			if sm.Season != nil {
				start, end := sm.Season.StartMonth, sm.Season.EndMonth
				m.SeasonStartMonth = &start
				m.SeasonEndMonth = &end
			}

			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"category", "repeatable", "cooldown_days",
					"season_start_month", "season_end_month",
					"rules", "rewards", "metadata", "updated_at",
				}),
			}).Create(&m).Error; err != nil {
				return fmt.Errorf("upsert mission %s: %w", sm.Code, err)
			}

			// The conflict path keeps the stored id, not the one generated above.
			var stored models.Mission
			if err := tx.Select("id").Where("code = ?", sm.Code).First(&stored).Error; err != nil {
				return fmt.Errorf("reload mission %s: %w", sm.Code, err)
			}

			for locale, tr := range sm.Translations {
				row := models.MissionTranslation{
					ID:          uuid.NewString(),
					MissionID:   stored.ID,
					Locale:      locale,
					Title:       tr.Title,
					Description: tr.Description,
				}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "mission_id"}, {Name: "locale"}},
					DoUpdates: clause.AssignmentColumns([]string{"title", "description", "updated_at"}),
				}).Create(&row).Error; err != nil {
					return fmt.Errorf("upsert translation %s/%s: %w", sm.Code, locale, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("[CATALOG] 🌱 seeded %d missions", len(seed))
	if err := s.Load(ctx); err != nil {
		return 0, err
	}
	return len(seed), nil
}
