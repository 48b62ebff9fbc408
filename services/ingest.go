package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"mission-progression-system/engine"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// DefaultMaxClockSkew bounds how far in the future an event may be dated.
const DefaultMaxClockSkew = 5 * time.Minute

// DomainEvent is an event reported by another feature area.
type DomainEvent struct {
	Type      string          `json:"type"`
	ProfileID string          `json:"profile_id"`
	Payload   json.RawMessage `json:"payload"`
}

// IngestResult lists the missions an event moved.
type IngestResult struct {
	Progressed []string `json:"progressed"`
	Claimable  []string `json:"claimable"`
}

type IngestService struct {
	DB           *gorm.DB
	Catalog      *CatalogService
	Progression  *ProgressionService
	Profiles     ProfileDirectory
	Registry     *engine.Registry
	Clock        clockwork.Clock
	MaxClockSkew time.Duration

	states StateStore
}

func NewIngestService(db *gorm.DB, catalog *CatalogService, progression *ProgressionService, profiles ProfileDirectory, registry *engine.Registry, clock clockwork.Clock) *IngestService {
	return &IngestService{
		DB:           db,
		Catalog:      catalog,
		Progression:  progression,
		Profiles:     profiles,
		Registry:     registry,
		Clock:        clock,
		MaxClockSkew: DefaultMaxClockSkew,
	}
}

// Decode validates evt and returns its payload. Nothing is written when it
// fails.
func (s *IngestService) Decode(evt DomainEvent) (engine.ItemCreated, error) {
	var payload engine.ItemCreated
	if evt.Type != engine.EventItemCreated {
		return payload, fmt.Errorf("%w: %q", ErrUnknownEventType, evt.Type)
	}
	if strings.TrimSpace(evt.ProfileID) == "" {
		return payload, fmt.Errorf("%w: profile_id is required", ErrValidation)
	}
	if len(evt.Payload) == 0 {
		return payload, fmt.Errorf("%w: payload is required", ErrValidation)
	}
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := payload.Validate(); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if limit := s.Clock.Now().Add(s.MaxClockSkew); payload.CreatedAt.After(limit) {
		return payload, fmt.Errorf("%w: created_at is in the future", ErrValidation)
	}
	return payload, nil
}

// Ingest feeds evt to every in-progress mission the profile has. It returns
// once all resulting state changes are committed, so a client reading right
// after sees them. A unique hash counts at most once per (profile, mission),
// across every attempt of a repeatable mission.
func (s *IngestService) Ingest(ctx context.Context, evt DomainEvent) (*IngestResult, error) {
	payload, err := s.Decode(evt)
	if err != nil {
		return nil, err
	}
	if err := requireProfile(ctx, s.Profiles, evt.ProfileID); err != nil {
		return nil, err
	}

	now := s.Clock.Now().UTC()
	catalog := s.Catalog.Snapshot()
	result := &IngestResult{Progressed: []string{}, Claimable: []string{}}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Progression.RecordActivity(tx, evt.ProfileID, payload.CreatedAt); err != nil {
			return err
		}

		for i := range catalog.Missions() {
			m := &catalog.Missions()[i]
			crit, ok := s.Registry.Lookup(m.Code)
			if !ok {
				continue
			}

			row, err := s.states.Lock(tx, evt.ProfileID, m.ID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			dec, err := engine.Progress(m.Definition(), row.EngineState(), crit, payload, now)
			if err != nil {
				return err
			}
			if !dec.Changed {
				continue
			}
			fresh, err := s.states.Consume(tx, evt.ProfileID, m.ID, payload.UniqueHash)
			if err != nil {
				return err
			}
			if !fresh {
				continue
			}
			if err := s.states.Swap(tx, row, m.Code, dec.Next); err != nil {
				return err
			}
			if err := s.states.RecordEvents(tx, evt.ProfileID, m.ID, dec.Actions); err != nil {
				return err
			}

			result.Progressed = append(result.Progressed, m.Code)
			if dec.Next.Status == engine.StatusClaimable {
				result.Claimable = append(result.Claimable, m.Code)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INGEST] 📨 %s %s/%s: progressed=%v claimable=%v",
		evt.ProfileID, payload.Source, payload.Subtype, result.Progressed, result.Claimable)
	return result, nil
}
