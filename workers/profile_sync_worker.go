// workers/profile_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"mission-progression-system/models"
	"mission-progression-system/services"
	"mission-progression-system/utils"
)

// ProfileChangesResponse is the sync service's profile feed.
type ProfileChangesResponse struct {
	Users []models.RemoteProfile `json:"users"`
}

// ProfileSyncWorker keeps the local profile mirror in step with the
// profile service by polling its change feed.
type ProfileSyncWorker struct {
	profiles     *services.ProfileService
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client

	// MinRefresh bounds how often a directory miss may trigger a sync.
	MinRefresh time.Duration

	refreshMu   sync.Mutex
	lastRefresh time.Time
}

func NewProfileSyncWorker(profiles *services.ProfileService, syncServiceBaseURL, endpointPath, serviceToken string, interval time.Duration) *ProfileSyncWorker {
	return &ProfileSyncWorker{
		profiles:     profiles,
		interval:     interval,
		baseURL:      syncServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.NewHTTPClient(30 * time.Second),
		MinRefresh:   5 * time.Second,
	}
}

// Exists answers from the mirror and, on a miss, pulls the feed once before
// answering again so profiles created since the last tick are found.
func (w *ProfileSyncWorker) Exists(ctx context.Context, profileID string) (bool, error) {
	ok, err := w.profiles.Exists(ctx, profileID)
	if err != nil || ok {
		return ok, err
	}

	w.refreshMu.Lock()
	refreshed := false
	if time.Since(w.lastRefresh) >= w.MinRefresh {
		w.lastRefresh = time.Now()
		refreshed = true
		if _, err := w.SyncOnce(ctx); err != nil {
			log.Printf("[SYNC] ⚠️ On-demand refresh for %s failed: %v", profileID, err)
		}
	}
	w.refreshMu.Unlock()

	if !refreshed {
		return false, nil
	}
	return w.profiles.Exists(ctx, profileID)
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Profile Sync Worker (sync-service → profile_mirrors)…")
	go w.run(ctx)
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncOnce(ctx); err != nil {
		log.Printf("⚠️ Initial profile sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx); err != nil {
				log.Printf("❌ Profile sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Profile Sync Worker stopped")
			return
		}
	}
}

// SyncOnce pulls every change since the newest mirrored update and applies
// it. Returns the number of profiles written.
func (w *ProfileSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	since, err := w.profiles.LastSyncedAt(ctx)
	if err != nil {
		return 0, err
	}
	if since.IsZero() {
		since = time.Unix(0, 0)
	}

	changes, err := w.fetch(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(changes) == 0 {
		log.Printf("[SYNC] ✅ No profile changes since %s", since.UTC().Format(time.RFC3339))
		return 0, nil
	}

	log.Printf("[SYNC] 📥 Processing %d profile(s) from sync service…", len(changes))
	applied, err := w.profiles.Upsert(ctx, changes)
	if err != nil {
		return applied, err
	}
	log.Printf("[SYNC] ✅ Synced %d profiles (%d applied, %d skipped)", len(changes), applied, len(changes)-applied)
	return applied, nil
}

func (w *ProfileSyncWorker) fetch(ctx context.Context, since time.Time) ([]models.RemoteProfile, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base sync service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	log.Printf("[SYNC] ➡️  GET %s", finalURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		log.Printf("[SYNC] ❌ Request to %s failed: %v", finalURL, err)
		return nil, fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[SYNC] ❌ Sync service returned %d for %s: %s", resp.StatusCode, finalURL, string(body))
		return nil, fmt.Errorf("sync service non-200 response: %d: %s", resp.StatusCode, string(body))
	}

	var response ProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode sync service response: %w", err)
	}
	return response.Users, nil
}
