package services

import (
	"context"
	"testing"
	"time"

	"mission-progression-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileUpsertLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewProfileService(db)
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	n, err := svc.Upsert(ctx, []models.RemoteProfile{
		{ExternalID: "p-1", Username: "ana", PreferredLanguage: "es", UpdatedAt: t0},
		{ExternalID: "", Username: "skipped"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := svc.Exists(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Upsert(ctx, []models.RemoteProfile{
		{ExternalID: "p-1", Username: "ana.b", PreferredLanguage: "pt-BR", UpdatedAt: t0.Add(time.Hour)},
	})
	require.NoError(t, err)
	var mirror models.ProfileMirror
	require.NoError(t, db.Where("external_profile_id = ?", "p-1").First(&mirror).Error)
	assert.Equal(t, "ana.b", mirror.Username)
	assert.Equal(t, "pt-BR", mirror.PreferredLanguage)

	deleted := t0.Add(2 * time.Hour)
	_, err = svc.Upsert(ctx, []models.RemoteProfile{{ExternalID: "p-1", DeletedAt: &deleted, UpdatedAt: deleted}})
	require.NoError(t, err)
	ok, err = svc.Exists(ctx, "p-1")
	require.NoError(t, err)
	assert.False(t, ok)

	synced, err := svc.LastSyncedAt(ctx)
	require.NoError(t, err)
	assert.True(t, synced.Equal(deleted), "deletion advances the sync cursor, got %s", synced)

	_, err = svc.Upsert(ctx, []models.RemoteProfile{{ExternalID: "p-1", Username: "ana", UpdatedAt: t0.Add(3 * time.Hour)}})
	require.NoError(t, err)
	ok, err = svc.Exists(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, ok, "a profile that comes back is restored")
}
