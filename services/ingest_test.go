package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mission-progression-system/engine"
	"mission-progression-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestRejectsBadEvents(t *testing.T) {
	env := newTestEnv(t, june15)
	env.addProfile(t, "p-1")
	ctx := context.Background()

	valid := engine.ItemCreated{Source: "measurement", CreatedAt: june15, UniqueHash: "h"}
	raw, err := json.Marshal(valid)
	require.NoError(t, err)

	tests := []struct {
		name string
		evt  DomainEvent
		want error
	}{
		{"unknown type", DomainEvent{Type: "item_deleted", ProfileID: "p-1", Payload: raw}, ErrUnknownEventType},
		{"missing profile id", DomainEvent{Type: engine.EventItemCreated, Payload: raw}, ErrValidation},
		{"missing payload", DomainEvent{Type: engine.EventItemCreated, ProfileID: "p-1"}, ErrValidation},
		{"malformed payload", DomainEvent{Type: engine.EventItemCreated, ProfileID: "p-1", Payload: json.RawMessage(`{"source":`)}, ErrValidation},
		{"missing hash", env.event(t, "p-1", engine.ItemCreated{Source: "measurement", CreatedAt: june15}), ErrValidation},
		{"negative field count", env.event(t, "p-1", engine.ItemCreated{Source: "profile", CreatedAt: june15, UniqueHash: "h", FieldCount: -2}), ErrValidation},
		{"dated in the future", env.event(t, "p-1", engine.ItemCreated{Source: "measurement", CreatedAt: june15.Add(time.Hour), UniqueHash: "h"}), ErrValidation},
		{"unknown profile", DomainEvent{Type: engine.EventItemCreated, ProfileID: "ghost", Payload: raw}, ErrProfileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ingest.Ingest(ctx, tt.evt)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, env.count(t, &models.ProfileProgression{}, "1 = 1"))
	assert.Zero(t, env.count(t, &models.MissionProgressEvent{}, "event_type = ?", engine.EventProgressed))
}

func TestIngestIgnoresMissionsNotStarted(t *testing.T) {
	env := newTestEnv(t, june15)
	env.addProfile(t, "p-1")
	ctx := context.Background()

	res, err := env.ingest.Ingest(ctx, env.event(t, "p-1", engine.ItemCreated{
		Source: "measurement", CreatedAt: june15, UniqueHash: "m-1",
	}))
	require.NoError(t, err)
	assert.Empty(t, res.Progressed)

	// Activity is still recorded.
	prog := env.progressionOf(t, "p-1")
	require.NotNil(t, prog.LastActiveDate)
	assert.Equal(t, "2026-06-15", prog.LastActiveDate.UTC().Format("2006-01-02"))
}

func TestIngestReplayIsAbsorbed(t *testing.T) {
	env := newTestEnv(t, june15)
	env.addProfile(t, "p-1")
	ctx := context.Background()

	_, err := env.missions.Start(ctx, "p-1", engine.MissionWishlistBuilder)
	require.NoError(t, err)

	item := env.event(t, "p-1", engine.ItemCreated{Source: "wishlist", Subtype: "item", CreatedAt: june15, UniqueHash: "w-1"})
	first, err := env.ingest.Ingest(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, []string{engine.MissionWishlistBuilder}, first.Progressed)

	again, err := env.ingest.Ingest(ctx, item)
	require.NoError(t, err)
	assert.Empty(t, again.Progressed)

	views, err := env.missions.List(ctx, "p-1")
	require.NoError(t, err)
	for _, v := range views {
		if v.Code != engine.MissionWishlistBuilder {
			continue
		}
		var p engine.CountProgress
		require.NoError(t, json.Unmarshal(v.UserState.Progress, &p))
		assert.Equal(t, 1, p.Count)
		assert.Equal(t, engine.StatusInProgress, v.Status)
	}
}

func TestReplayAfterRestartDoesNotRecomplete(t *testing.T) {
	env := newTestEnv(t, june15)
	env.addProfile(t, "p-1")
	ctx := context.Background()
	invite := env.event(t, "p-1", engine.ItemCreated{Source: "circle", Subtype: "invite", CreatedAt: june15, UniqueHash: "i-1"})

	_, err := env.missions.Start(ctx, "p-1", engine.MissionInviteContact)
	require.NoError(t, err)
	res, err := env.ingest.Ingest(ctx, invite)
	require.NoError(t, err)
	assert.Equal(t, []string{engine.MissionInviteContact}, res.Claimable)
	_, err = env.missions.Claim(ctx, "p-1", engine.MissionInviteContact)
	require.NoError(t, err)

	for round := 0; round < 2; round++ {
		_, err = env.missions.Start(ctx, "p-1", engine.MissionInviteContact)
		require.NoError(t, err)

		res, err = env.ingest.Ingest(ctx, invite)
		require.NoError(t, err)
		assert.Empty(t, res.Claimable)
		assert.Empty(t, res.Progressed)

		_, err = env.missions.Claim(ctx, "p-1", engine.MissionInviteContact)
		assert.ErrorIs(t, err, engine.ErrInvalidTransition)
	}

	// A new invite still counts for the new attempt.
	res, err = env.ingest.Ingest(ctx, env.event(t, "p-1", engine.ItemCreated{
		Source: "circle", Subtype: "invite", CreatedAt: june15, UniqueHash: "i-2",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{engine.MissionInviteContact}, res.Claimable)

	assert.Equal(t, int64(40), env.progressionOf(t, "p-1").XP)
	assert.Equal(t, int64(1), env.count(t, &models.MissionRewardLedgerEntry{}, "profile_id = ?", "p-1"))
	assert.Equal(t, int64(2), env.count(t, &models.MissionEventReceipt{}, "profile_id = ?", "p-1"))
}

func TestIngestCompletesProfileMission(t *testing.T) {
	env := newTestEnv(t, june15)
	env.addProfile(t, "p-1")
	ctx := context.Background()

	_, err := env.missions.Start(ctx, "p-1", engine.MissionCompleteProfile)
	require.NoError(t, err)

	res, err := env.ingest.Ingest(ctx, env.event(t, "p-1", engine.ItemCreated{
		Source: "profile", Category: "profile", FieldCount: 3, CreatedAt: june15, UniqueHash: "pf-1",
	}))
	require.NoError(t, err)
	assert.Empty(t, res.Claimable)

	res, err = env.ingest.Ingest(ctx, env.event(t, "p-1", engine.ItemCreated{
		Source: "profile", Category: "profile", FieldCount: 5, CriticalFieldCompleted: true, CreatedAt: june15, UniqueHash: "pf-2",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{engine.MissionCompleteProfile}, res.Claimable)
}
