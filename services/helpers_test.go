package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mission-progression-system/engine"
	"mission-progression-system/models"
	"mission-progression-system/testutil"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var june15 = time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t)
}

type testEnv struct {
	db          *gorm.DB
	clock       *clockwork.FakeClock
	catalog     *CatalogService
	progression *ProgressionService
	profiles    *ProfileService
	missions    *MissionService
	ingest      *IngestService
	reconcile   *ReconcileService
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(now)

	catalog := NewCatalogService(db)
	_, err := catalog.Reseed(context.Background())
	require.NoError(t, err)

	progression := NewProgressionService(db)
	profiles := NewProfileService(db)
	return &testEnv{
		db:          db,
		clock:       clock,
		catalog:     catalog,
		progression: progression,
		profiles:    profiles,
		missions:    NewMissionService(db, catalog, progression, profiles, clock),
		ingest:      NewIngestService(db, catalog, progression, profiles, engine.DefaultRegistry(), clock),
		reconcile:   NewReconcileService(db, clock, nil),
	}
}

func (e *testEnv) addProfile(t *testing.T, id string) {
	t.Helper()
	_, err := e.profiles.Upsert(context.Background(), []models.RemoteProfile{{
		ExternalID: id,
		Username:   "user-" + id,
		UpdatedAt:  e.clock.Now(),
	}})
	require.NoError(t, err)
}

func (e *testEnv) event(t *testing.T, profileID string, payload engine.ItemCreated) DomainEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return DomainEvent{Type: engine.EventItemCreated, ProfileID: profileID, Payload: raw}
}

func (e *testEnv) statusOf(t *testing.T, profileID, code string) engine.Status {
	t.Helper()
	views, err := e.missions.List(context.Background(), profileID)
	require.NoError(t, err)
	for _, v := range views {
		if v.Code == code {
			return v.Status
		}
	}
	t.Fatalf("mission %s not listed", code)
	return ""
}

func (e *testEnv) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (e *testEnv) progressionOf(t *testing.T, profileID string) ProgressView {
	t.Helper()
	v, err := e.progression.GetProgress(context.Background(), profileID)
	require.NoError(t, err)
	return v
}
